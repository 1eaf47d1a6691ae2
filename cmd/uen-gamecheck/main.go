// Command uen-gamecheck validates a binary game archive, exiting with a
// distinct status code per failure class, grounded on the reference
// engine's checkbit.c.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/oskarp/uen/internal/gamecache"
	"github.com/oskarp/uen/internal/gamefile"
)

// Exit codes mirror checkbit.c's taxonomy: distinct failure classes get
// distinct codes so calling scripts can react without scraping text.
const (
	exitOK              = 0
	exitUsage           = 2
	exitTruncatedMove   = 3
	exitBadPosition     = 5
	exitPosNotOK        = 6
	exitBadResult       = 7
	exitBadEval         = 8
	exitBadFlag         = 10
	exitShuffleMismatch = 11
)

func main() {
	var (
		shuffle      = flag.String("shuffle", "", "shuffle the validated archive's game order, writing the result to this path")
		seed         = flag.Uint64("seed", 0, "xorshift64 seed for -shuffle (default: derived from wall clock)")
		shuffleCheck = flag.Bool("shuffle-check", false, "verify a shuffled file is a permutation of the source")
		cacheDir     = flag.String("cache-dir", "", "optional badger directory to cache scanned game offsets")
		shuffledPath = flag.String("shuffled", "", "path to the shuffled archive, required with -shuffle-check")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: uen-gamecheck [flags] <archive>")
		os.Exit(exitUsage)
	}
	path := flag.Arg(0)

	n, err := validate(path)
	if err != nil {
		log.Printf("uen-gamecheck: %s: %v", path, err)
		os.Exit(codeFor(err))
	}
	fmt.Printf("%s: %d games OK\n", path, n)

	if *shuffle != "" {
		s := *seed
		if s == 0 {
			s = uint64(time.Now().UnixNano())
		}
		if err := gamefile.ShuffleFile(path, *shuffle, s); err != nil {
			log.Printf("uen-gamecheck: shuffle: %v", err)
			os.Exit(exitUsage)
		}
		fmt.Printf("shuffled %s -> %s (seed %d)\n", path, *shuffle, s)
	}

	if *cacheDir != "" {
		c, err := gamecache.Open(*cacheDir)
		if err != nil {
			log.Printf("uen-gamecheck: cache: %v", err)
			os.Exit(exitUsage)
		}
		defer c.Close()
		if _, err := c.GetOrScan(path); err != nil {
			log.Printf("uen-gamecheck: cache warm: %v", err)
			os.Exit(exitUsage)
		}
	}

	if *shuffleCheck {
		if *shuffledPath == "" {
			fmt.Fprintln(os.Stderr, "uen-gamecheck: -shuffle-check requires -shuffled")
			os.Exit(exitUsage)
		}
		if err := checkShufflePermutation(path, *shuffledPath); err != nil {
			log.Printf("uen-gamecheck: %v", err)
			os.Exit(exitShuffleMismatch)
		}
		fmt.Println("shuffle check OK: same game multiset")
	}
}

// validate reads every record in path and returns the number of games
// seen, or the first error encountered.
func validate(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rd := gamefile.NewReader(f)
	games := 0
	for {
		_, err := rd.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return games, nil
			}
			return games, err
		}
		if rd.LastWasStart() {
			games++
		}
	}
}

func codeFor(err error) int {
	switch {
	case errors.Is(err, gamefile.ErrTruncatedMove):
		return exitTruncatedMove
	case errors.Is(err, gamefile.ErrBadPosition):
		return exitBadPosition
	case errors.Is(err, gamefile.ErrPosNotOK):
		return exitPosNotOK
	case errors.Is(err, gamefile.ErrBadResult):
		return exitBadResult
	case errors.Is(err, gamefile.ErrBadEval):
		return exitBadEval
	case errors.Is(err, gamefile.ErrBadFlag):
		return exitBadFlag
	default:
		return exitUsage
	}
}

// checkShufflePermutation verifies dst has exactly the same multiset of
// games (by byte content) as src, ignoring order -- the invariant
// ShuffleFile must uphold.
func checkShufflePermutation(srcPath, dstPath string) error {
	srcRanges, err := gamefile.ScanGames(srcPath)
	if err != nil {
		return fmt.Errorf("scan source: %w", err)
	}
	dstRanges, err := gamefile.ScanGames(dstPath)
	if err != nil {
		return fmt.Errorf("scan shuffled: %w", err)
	}
	if len(srcRanges) != len(dstRanges) {
		return fmt.Errorf("game count mismatch: %d vs %d", len(srcRanges), len(dstRanges))
	}

	srcBytes, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	dstBytes, err := os.ReadFile(dstPath)
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(srcRanges))
	for _, r := range srcRanges {
		counts[string(srcBytes[r.Start:r.End])]++
	}
	for _, r := range dstRanges {
		key := string(dstBytes[r.Start:r.End])
		if counts[key] == 0 {
			return fmt.Errorf("shuffled archive contains a game not present in the source")
		}
		counts[key]--
	}
	for _, remaining := range counts {
		if remaining != 0 {
			return fmt.Errorf("shuffled archive is missing a source game")
		}
	}
	return nil
}
