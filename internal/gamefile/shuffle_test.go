package gamefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oskarp/uen/internal/position"
)

func writeGames(t *testing.T, path string, n int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	w := NewWriter(f)
	for i := 0; i < n; i++ {
		start := position.StartPosition()
		if err := w.WriteStart(start, ResultDraw, ValueNone, 0); err != nil {
			t.Fatalf("WriteStart game %d: %v", i, err)
		}
		m := position.Move{From: position.MakeSquare(4, 1), To: position.MakeSquare(4, 3)}
		if err := w.WriteMove(m, int32(i), 0); err != nil {
			t.Fatalf("WriteMove game %d: %v", i, err)
		}
	}
}

func TestShuffleFilePreservesGameMultiset(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "games.bin")
	dst := filepath.Join(dir, "shuffled.bin")
	writeGames(t, src, 8)

	if err := ShuffleFile(src, dst, 12345); err != nil {
		t.Fatalf("ShuffleFile: %v", err)
	}

	srcRanges, err := ScanGames(src)
	if err != nil {
		t.Fatalf("ScanGames(src): %v", err)
	}
	dstRanges, err := ScanGames(dst)
	if err != nil {
		t.Fatalf("ScanGames(dst): %v", err)
	}
	if len(srcRanges) != len(dstRanges) {
		t.Fatalf("game count changed: %d vs %d", len(srcRanges), len(dstRanges))
	}

	srcBytes, _ := os.ReadFile(src)
	dstBytes, _ := os.ReadFile(dst)
	counts := make(map[string]int)
	for _, r := range srcRanges {
		counts[string(srcBytes[r.Start:r.End])]++
	}
	for _, r := range dstRanges {
		key := string(dstBytes[r.Start:r.End])
		counts[key]--
	}
	for k, c := range counts {
		if c != 0 {
			t.Fatalf("game multiset changed for range len %d: count delta %d", len(k), c)
		}
	}
}

func TestShuffleFileDeterministicForSameSeed(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "games.bin")
	dstA := filepath.Join(dir, "a.bin")
	dstB := filepath.Join(dir, "b.bin")
	writeGames(t, src, 10)

	if err := ShuffleFile(src, dstA, 999); err != nil {
		t.Fatalf("ShuffleFile A: %v", err)
	}
	if err := ShuffleFile(src, dstB, 999); err != nil {
		t.Fatalf("ShuffleFile B: %v", err)
	}

	a, _ := os.ReadFile(dstA)
	b, _ := os.ReadFile(dstB)
	if string(a) != string(b) {
		t.Fatal("same seed produced different shuffles")
	}
}
