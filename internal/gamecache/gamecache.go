// Package gamecache persists the game byte-offset table that shuffle
// mode computes (internal/gamefile.ScanGames, the same pass ShuffleFile
// runs), keyed by the archive's path, size and mtime. GetOrScan returns
// the cached table when it is fresh; internal/gamefile.ShuffleFile and
// internal/loader do not read the cache and always scan the archive
// themselves, so correctness never depends on the cache being warm or
// even present.
//
// Adapted from the teacher's badger-backed key/value store: the same
// db.View/db.Update transaction idiom, generalized from whatever the
// teacher cached to this package's game offset tables.
package gamecache

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/oskarp/uen/internal/gamefile"
)

// Cache wraps a badger KV store mapping archive fingerprints to their
// scanned game offset tables.
type Cache struct {
	db *badger.DB
}

// Open opens (creating if necessary) a badger database at dir.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("gamecache: open: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Offsets is the cached table of per-game [start,end) byte ranges.
type Offsets struct {
	Start []int64
	End   []int64
}

// fingerprint identifies an archive by path, size, and modification time,
// so a stale cache entry is invalidated automatically whenever the file
// underneath it changes.
func fingerprint(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("gamecache: stat: %w", err)
	}
	return fmt.Sprintf("%s:%d:%d", path, fi.Size(), fi.ModTime().UnixNano()), nil
}

// Get returns the cached offsets for path, or (nil, false, nil) on a
// cache miss (including a stale fingerprint).
func (c *Cache) Get(path string) (*Offsets, bool, error) {
	key, err := fingerprint(path)
	if err != nil {
		return nil, false, err
	}

	var out *Offsets
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var o Offsets
			if err := json.Unmarshal(val, &o); err != nil {
				return err
			}
			out = &o
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("gamecache: get: %w", err)
	}
	return out, out != nil, nil
}

// Put stores offsets for path under its current fingerprint.
func (c *Cache) Put(path string, offsets *Offsets) error {
	key, err := fingerprint(path)
	if err != nil {
		return err
	}
	val, err := json.Marshal(offsets)
	if err != nil {
		return fmt.Errorf("gamecache: marshal: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
	if err != nil {
		return fmt.Errorf("gamecache: put: %w", err)
	}
	return nil
}

// GetOrScan returns the cached offset table for path if present and
// fresh, otherwise scans the archive with gamefile.ScanGames and
// populates the cache before returning.
func (c *Cache) GetOrScan(path string) ([]gamefile.GameRange, error) {
	if cached, ok, err := c.Get(path); err != nil {
		return nil, err
	} else if ok {
		out := make([]gamefile.GameRange, len(cached.Start))
		for i := range cached.Start {
			out[i] = gamefile.GameRange{Start: cached.Start[i], End: cached.End[i]}
		}
		return out, nil
	}

	ranges, err := gamefile.ScanGames(path)
	if err != nil {
		return nil, err
	}
	offsets := &Offsets{Start: make([]int64, len(ranges)), End: make([]int64, len(ranges))}
	for i, r := range ranges {
		offsets.Start[i] = r.Start
		offsets.End[i] = r.End
	}
	if err := c.Put(path, offsets); err != nil {
		return nil, err
	}
	return ranges, nil
}

