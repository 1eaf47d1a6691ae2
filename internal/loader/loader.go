// Package loader implements the bounded multi-producer/single-consumer
// training batch queue, grounded on the reference engine's batchbit.c
// struct dataloader: several worker goroutines each read batches from
// their own share of the work (serialized against the single
// game-archive reader, since the archive's move-delta encoding is
// inherently stateful) and push them onto a bounded queue; one consumer
// goroutine fetches completed batches via Fetch.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/oskarp/uen/internal/batch"
	"github.com/oskarp/uen/internal/gamefile"
	"github.com/oskarp/uen/internal/position"
	"github.com/oskarp/uen/internal/sampler"
)

// ErrClosed is returned by Fetch once the loader has been closed and its
// queue fully drained.
var ErrClosed = errors.New("loader: closed")

// Config controls loader construction.
type Config struct {
	Jobs           int     // number of producer goroutines
	BatchSize      int     // samples per batch
	Seed           uint64  // base PRNG seed; each worker uses Seed+workerID
	RandomFraction float64 // unconditional sampling thinning, see internal/sampler
	Logger         *slog.Logger
}

// DataLoader reads a single game archive and produces sampled, filtered
// training batches. It is not safe to share a DataLoader's underlying
// file across two DataLoader instances, since the archive's move-delta
// encoding requires a single linear cursor (internal/gamefile.Reader is
// itself not concurrency-safe).
type DataLoader struct {
	cfg    Config
	logger *slog.Logger

	readMu sync.Mutex
	reader *gamefile.Reader
	eof    bool

	mu         sync.Mutex
	condReady  *sync.Cond // signaled when a batch is pushed or the loader stops
	condFetch  *sync.Cond // signaled when a queue slot frees up
	queue      []*batch.Batch
	maxQueued  int
	numBatches int // batches produced but not yet fetched; must reach 0 by Close
	stop       bool
	err        error

	g      *errgroup.Group
	cancel context.CancelFunc
}

// Open starts cfg.Jobs producer goroutines reading from r (already
// positioned at the start of a game archive) and returns a DataLoader
// ready for Fetch. recordedFrom is the color the archive's per-game
// results are recorded relative to.
func Open(r *gamefile.Reader, recordedFrom position.Color, cfg Config) *DataLoader {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}

	dl := &DataLoader{
		cfg:       cfg,
		logger:    cfg.Logger,
		reader:    r,
		maxQueued: 4 * cfg.Jobs,
	}
	dl.condReady = sync.NewCond(&dl.mu)
	dl.condFetch = sync.NewCond(&dl.mu)

	ctx, cancel := context.WithCancel(context.Background())
	dl.cancel = cancel
	g, ctx := errgroup.WithContext(ctx)
	dl.g = g

	for w := 0; w < cfg.Jobs; w++ {
		workerID := w
		g.Go(func() error {
			dl.worker(ctx, workerID, recordedFrom)
			return nil
		})
	}

	// Once every producer has returned on its own (archive exhausted),
	// wake any blocked Fetch rather than leaving it waiting forever for a
	// caller to notice and call Close.
	go func() {
		_ = g.Wait()
		dl.mu.Lock()
		dl.stop = true
		dl.mu.Unlock()
		dl.condReady.Broadcast()
	}()

	return dl
}

func (dl *DataLoader) worker(ctx context.Context, workerID int, recordedFrom position.Color) {
	filter := sampler.NewFilter(dl.cfg.Seed, workerID, dl.cfg.RandomFraction)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b := batch.NewBatch(dl.cfg.BatchSize)
		for b.Size < dl.cfg.BatchSize {
			entry, err := dl.readNext()
			if err != nil {
				if errors.Is(err, errEOF) {
					dl.logger.Debug("loader: worker hit end of archive", "worker", workerID)
					dl.finish(b)
					return
				}
				dl.fail(fmt.Errorf("loader: worker %d: %w", workerID, err))
				return
			}
			if entry.Flag&gamefile.FlagSkip != 0 {
				continue
			}
			result := int(entry.Result)
			if entry.Result != gamefile.ResultUnknown && entry.Pos.SideToMove() != recordedFrom {
				result = -result
			}
			if filter.Skip(float64(entry.Eval), entry.Pos.Fullmove, result) {
				continue
			}
			b.Add(entry, recordedFrom)
		}
		if !dl.push(b) {
			return
		}
	}
}

var errEOF = errors.New("loader: end of archive")

// readNext serializes access to the single shared gamefile.Reader across
// every producer goroutine.
func (dl *DataLoader) readNext() (*gamefile.Entry, error) {
	dl.readMu.Lock()
	defer dl.readMu.Unlock()
	if dl.eof {
		return nil, errEOF
	}
	entry, err := dl.reader.Next()
	if err != nil {
		dl.eof = true
		if errors.Is(err, io.EOF) {
			return nil, errEOF
		}
		return nil, err
	}
	return entry, nil
}

// push enqueues b, blocking under backpressure until a slot frees or the
// loader is stopped. It reports whether the push succeeded.
func (dl *DataLoader) push(b *batch.Batch) bool {
	if b.Size == 0 {
		return true
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	for len(dl.queue) >= dl.maxQueued && !dl.stop {
		dl.condFetch.Wait()
	}
	if dl.stop {
		return false
	}
	dl.queue = append(dl.queue, b)
	dl.numBatches++
	dl.condReady.Signal()
	return true
}

// finish flushes a final partial batch, if any, then lets this worker's
// goroutine exit cleanly.
func (dl *DataLoader) finish(b *batch.Batch) {
	if b.Size > 0 {
		dl.push(b)
	}
}

func (dl *DataLoader) fail(err error) {
	dl.mu.Lock()
	if dl.err == nil {
		dl.err = err
	}
	dl.mu.Unlock()
	dl.condReady.Broadcast()
	dl.condFetch.Broadcast()
	dl.cancel()
}

// Fetch blocks until a batch is available, the loader is closed, or a
// worker error occurs.
func (dl *DataLoader) Fetch() (*batch.Batch, error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	for len(dl.queue) == 0 && !dl.stop && dl.err == nil {
		dl.condReady.Wait()
	}
	if dl.err != nil {
		return nil, dl.err
	}
	if len(dl.queue) == 0 {
		return nil, ErrClosed
	}
	b := dl.queue[0]
	dl.queue = dl.queue[1:]
	dl.numBatches--
	dl.condFetch.Signal()
	return b, nil
}

// Close stops all producer goroutines and waits for them to exit. It is
// an error to call Close while a consumer might still call Fetch
// concurrently.
func (dl *DataLoader) Close() error {
	dl.mu.Lock()
	dl.stop = true
	dl.mu.Unlock()
	dl.condReady.Broadcast()
	dl.condFetch.Broadcast()
	dl.cancel()

	_ = dl.g.Wait()

	dl.mu.Lock()
	defer dl.mu.Unlock()
	// Draining invariant from batchbit.c's loader_close: every produced
	// batch must already have been fetched (or the queue cleared here)
	// before the loader is considered cleanly closed.
	dl.queue = nil
	if dl.numBatches != 0 {
		dl.logger.Warn("loader: closed with undrained batches", "outstanding", dl.numBatches)
	}
	return dl.err
}
