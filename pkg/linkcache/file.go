package linkcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sanonone/wikiwalk/pkg/persistence"
)

// FileCache persists the whole table as one snapshot frame.
//
// The table is loaded once at open into an in-memory index and reads never
// touch the disk again. Each Put reloads the snapshot under a cross-process
// lock, merges entries written by other processes, inserts if absent and
// atomically replaces the file.
type FileCache struct {
	path   string
	lock   *persistence.FileLock
	index  *MemoryCache
	logger *slog.Logger

	// established becomes true once the file was loaded or written
	// successfully. From then on a corrupt file is fatal.
	established atomic.Bool
	closed      atomic.Bool
}

// OpenFile opens or creates a FileCache at path. An unreadable or corrupt
// file is logged and the cache starts empty.
func OpenFile(path string, logger *slog.Logger) (*FileCache, error) {
	if path == "" {
		return nil, errors.New("link cache path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &FileCache{
		path:   path,
		lock:   persistence.NewFileLock(path + ".lock"),
		index:  NewMemoryCache(),
		logger: logger.With("component", "linkcache", "path", path),
	}

	table, err := c.readDisk()
	switch {
	case err == nil:
		c.index.merge(table)
		c.established.Store(true)
		c.logger.Debug("link cache loaded", "titles", len(table))
	case errors.Is(err, persistence.ErrNoSnapshot):
		c.logger.Debug("link cache empty, cold start")
	default:
		c.logger.Warn("link cache unreadable, starting empty", "error", err)
	}

	return c, nil
}

// Get serves from the in-memory index.
func (c *FileCache) Get(title string) ([]string, bool, error) {
	if c.closed.Load() {
		return nil, false, ErrClosed
	}
	return c.index.Get(title)
}

// Put inserts links for title if absent, persisting the whole table.
func (c *FileCache) Put(title string, links []string) ([]string, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if existing, ok, _ := c.index.Get(title); ok {
		return existing, nil
	}

	if err := c.lock.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if err := c.lock.Unlock(); err != nil {
			c.logger.Error("failed to release link cache lock", "error", err)
		}
	}()

	disk, err := c.readDisk()
	switch {
	case err == nil:
		if added := c.index.merge(disk); added > 0 {
			c.logger.Debug("merged entries written by another process", "added", added)
		}
	case errors.Is(err, persistence.ErrNoSnapshot):
		// Deleted or never written; the index holds everything we know.
	case !isCorrupt(err):
		// The file may be intact; never overwrite what we could not read.
		return nil, fmt.Errorf("read link cache: %w", err)
	case c.established.Load():
		if errors.Is(err, ErrCorrupt) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	default:
		c.logger.Warn("overwriting corrupt link cache", "error", err)
	}

	// Another writer may have stored this title while we waited for the lock.
	if existing, ok, _ := c.index.Get(title); ok {
		return existing, nil
	}

	table := c.index.table()
	table[title] = clone(links)
	if err := c.writeDisk(table); err != nil {
		return nil, err
	}
	c.established.Store(true)

	return c.index.Put(title, links)
}

// Len returns the number of titles in the index.
func (c *FileCache) Len() int {
	return c.index.Len()
}

// Range iterates the index in title order.
func (c *FileCache) Range(fn func(title string, links []string) bool) {
	c.index.Range(fn)
}

// Path returns the snapshot file path.
func (c *FileCache) Path() string {
	return c.path
}

// Close marks the cache closed. Every Put is already durable.
func (c *FileCache) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *FileCache) readDisk() (map[string][]string, error) {
	payload, err := persistence.ReadSnapshot(c.path)
	if err != nil {
		return nil, err
	}
	table := make(map[string][]string)
	if err := json.Unmarshal(payload, &table); err != nil {
		return nil, fmt.Errorf("%w: decode link table: %v", ErrCorrupt, err)
	}
	return table, nil
}

func isCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt) || persistence.IsCorruption(err)
}

func (c *FileCache) writeDisk(table map[string][]string) error {
	// encoding/json sorts map keys, so identical tables produce identical files.
	payload, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode link table: %w", err)
	}
	if err := persistence.WriteSnapshot(c.path, payload); err != nil {
		return fmt.Errorf("persist link table: %w", err)
	}
	return nil
}
