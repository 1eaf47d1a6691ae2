package gamefile

import (
	"fmt"
	"io"
	"os"
)

// xorshift64 is the reference engine's PRNG (checkbit.c / batchbit.c): a
// single 64-bit state, three shifts, used wherever the original needs a
// fast non-cryptographic stream of pseudo-random numbers.
type xorshift64 struct{ state uint64 }

func newXorshift64(seed uint64) *xorshift64 {
	if seed == 0 {
		seed = 1 // all-zero state is a fixed point
	}
	return &xorshift64{state: seed}
}

func (x *xorshift64) next() uint64 {
	x.state ^= x.state << 13
	x.state ^= x.state >> 7
	x.state ^= x.state << 17
	return x.state
}

// boundedUint64 returns a value in [0, n) via rejection sampling against
// the largest multiple of n that fits in 64 bits, avoiding modulo bias.
func (x *xorshift64) boundedUint64(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	limit := (^uint64(0) / n) * n
	for {
		v := x.next()
		if v < limit {
			return v % n
		}
	}
}

// gameRange is a [start,end) byte offset into a game archive, one entry
// per game (a game begins at a move==0 start record and runs to the byte
// just before the next start record or EOF).
type gameRange struct {
	start, end int64
}

// GameRange is the exported form of gameRange, for callers (gamecache,
// the CLI tools) that need the offset table without pulling in the
// unexported scanning machinery.
type GameRange struct {
	Start, End int64
}

// ScanGames opens path and returns the byte offset of every game in it,
// without performing any shuffling. It is the same linear pass
// ShuffleFile uses internally; callers that only need the offset table
// (e.g. to warm internal/gamecache) should use this instead of
// ShuffleFile with a throwaway destination.
func ScanGames(path string) ([]GameRange, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gamefile: open: %w", err)
	}
	defer f.Close()
	ranges, err := scanGames(f)
	if err != nil {
		return nil, err
	}
	out := make([]GameRange, len(ranges))
	for i, r := range ranges {
		out[i] = GameRange{Start: r.start, End: r.end}
	}
	return out, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// scanGames walks the archive once and returns the [start,end) byte
// offset of each game, delimited by move==0 start records.
func scanGames(f *os.File) ([]gameRange, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	cr := &countingReader{r: f}
	rd := NewReader(cr)

	var ranges []gameRange
	curStart := int64(-1)
	for {
		offsetBefore := cr.n
		isStart, err := rd.nextMarked()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if isStart {
			if curStart >= 0 {
				ranges = append(ranges, gameRange{start: curStart, end: offsetBefore})
			}
			curStart = offsetBefore
		}
	}
	if curStart >= 0 {
		ranges = append(ranges, gameRange{start: curStart, end: cr.n})
	}
	return ranges, nil
}

// ShuffleFile reads the game archive at srcPath, shuffles the order of
// whole games with a Fisher-Yates pass driven by xorshift64 seeded from
// seed, and writes the result to dstPath. Individual games are copied
// byte-for-byte; only their order changes, exactly as the reference
// engine's checkbit.c shuffle mode does (it never re-encodes a game, it
// only permutes the [start,end) byte ranges).
func ShuffleFile(srcPath, dstPath string, seed uint64) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("gamefile: open source: %w", err)
	}
	defer src.Close()

	ranges, err := scanGames(src)
	if err != nil {
		return fmt.Errorf("gamefile: scan games: %w", err)
	}

	order := make([]int, len(ranges))
	for i := range order {
		order[i] = i
	}
	rng := newXorshift64(seed)
	for i := len(order) - 1; i > 0; i-- {
		j := int(rng.boundedUint64(uint64(i + 1)))
		order[i], order[j] = order[j], order[i]
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("gamefile: create destination: %w", err)
	}
	defer dst.Close()

	var buf []byte
	for _, idx := range order {
		gr := ranges[idx]
		n := gr.end - gr.start
		if int64(cap(buf)) < n {
			buf = make([]byte, n)
		}
		buf = buf[:n]
		if _, err := src.ReadAt(buf, gr.start); err != nil {
			return fmt.Errorf("gamefile: read game range: %w", err)
		}
		if _, err := dst.Write(buf); err != nil {
			return fmt.Errorf("gamefile: write game range: %w", err)
		}
	}
	return nil
}
