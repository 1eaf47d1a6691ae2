package loader

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/oskarp/uen/internal/gamefile"
	"github.com/oskarp/uen/internal/position"
)

func writeArchive(t *testing.T, path string, games int, plies int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	w := gamefile.NewWriter(f)

	for g := 0; g < games; g++ {
		start := position.StartPosition()
		if err := w.WriteStart(start, gamefile.ResultWin, gamefile.ValueNone, 0); err != nil {
			t.Fatalf("WriteStart: %v", err)
		}
		pos := start
		moves := []position.Move{
			{From: position.MakeSquare(4, 1), To: position.MakeSquare(4, 3)},
			{From: position.MakeSquare(4, 6), To: position.MakeSquare(4, 4)},
			{From: position.MakeSquare(6, 0), To: position.MakeSquare(5, 2)},
			{From: position.MakeSquare(1, 7), To: position.MakeSquare(2, 5)},
		}
		for p := 0; p < plies && p < len(moves); p++ {
			m := moves[p]
			m.Captured = pos.PieceOn(m.To).Type()
			pos.MakeMove(m)
			if err := w.WriteMove(m, int32(p*10), 0); err != nil {
				t.Fatalf("WriteMove: %v", err)
			}
		}
	}
}

func TestDataLoaderFetchesAllBatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "games.bin")
	const games, plies = 20, 4
	writeArchive(t, path, games, plies)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rd := gamefile.NewReader(f)
	dl := Open(rd, position.White, Config{
		Jobs:      3,
		BatchSize: 7,
		Seed:      1,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	total := 0
	for {
		b, err := dl.Fetch()
		if err != nil {
			break
		}
		total += b.Size
	}

	if err := dl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The sampling filter's adaptive WDL gate (internal/sampler) can drop
	// any given position, so the fetched total is a ceiling, not an exact
	// count: one entry for the start record plus one per move, per game.
	max := games * (plies + 1)
	if total == 0 || total > max {
		t.Fatalf("total samples fetched = %d, want in (0, %d]", total, max)
	}
}
