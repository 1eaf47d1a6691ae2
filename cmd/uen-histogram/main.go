// Command uen-histogram reports summary statistics over a game archive:
// eval distribution by bucket, ply distribution, and result breakdown,
// grounded on the reference engine's histogram.c/histbit.c. The original
// tool's illegal-position reporting branch is intentionally not carried
// over here; see SPEC_FULL.md's note on this Open Question.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/oskarp/uen/internal/gamefile"
	"github.com/oskarp/uen/internal/position"
)

const evalBucketWidth = 50 // centipawns per histogram bucket

func main() {
	var bucketWidth = flag.Int("bucket", evalBucketWidth, "eval histogram bucket width, in centipawns")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: uen-histogram [flags] <archive>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	h, err := run(path, *bucketWidth)
	if err != nil {
		log.Fatalf("uen-histogram: %s: %v", path, err)
	}
	h.Print(os.Stdout)
}

type histogram struct {
	bucketWidth int
	evalBuckets map[int]int
	plyBuckets  map[int]int

	games      int
	positions  int
	wins       int
	draws      int
	losses     int
	unknownRes int
	skipped    int
}

func run(path string, bucketWidth int) (*histogram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := &histogram{
		bucketWidth: bucketWidth,
		evalBuckets: make(map[int]int),
		plyBuckets:  make(map[int]int),
	}

	rd := gamefile.NewReader(f)
	for {
		entry, err := rd.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if rd.LastWasStart() {
			h.games++
			switch entry.Result {
			case gamefile.ResultWin:
				h.wins++
			case gamefile.ResultDraw:
				h.draws++
			case gamefile.ResultLoss:
				h.losses++
			default:
				h.unknownRes++
			}
		}
		if entry.Flag&gamefile.FlagSkip != 0 {
			h.skipped++
			continue
		}
		h.positions++
		if entry.Eval != gamefile.ValueNone {
			bucket := int(entry.Eval) / h.bucketWidth
			h.evalBuckets[bucket]++
		}
		ply := 2*(entry.Pos.Fullmove-1) + boolToInt(entry.Pos.Turn == position.Black)
		h.plyBuckets[ply]++
	}
	return h, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (h *histogram) Print(w io.Writer) {
	fmt.Fprintf(w, "games:     %d (win %d / draw %d / loss %d / unknown %d)\n",
		h.games, h.wins, h.draws, h.losses, h.unknownRes)
	fmt.Fprintf(w, "positions: %d (skipped %d)\n", h.positions, h.skipped)

	fmt.Fprintln(w, "\neval histogram (bucket width", h.bucketWidth, "cp):")
	keys := sortedKeys(h.evalBuckets)
	for _, k := range keys {
		fmt.Fprintf(w, "  [%6d, %6d): %d\n", k*h.bucketWidth, (k+1)*h.bucketWidth, h.evalBuckets[k])
	}

	fmt.Fprintln(w, "\nply histogram:")
	plyKeys := sortedKeys(h.plyBuckets)
	for _, k := range plyKeys {
		fmt.Fprintf(w, "  ply %4d: %d\n", k, h.plyBuckets[k])
	}
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
