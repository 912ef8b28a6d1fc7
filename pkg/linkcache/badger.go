package linkcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

const (
	keyPrefix = "links:"

	// maxConflictRetries bounds Put retries when two writers race on one title.
	maxConflictRetries = 16
)

// BadgerConfig holds configuration for a BadgerCache.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs. If nil they are discarded.
	Logger *slog.Logger
}

// BadgerCache stores one key per title in BadgerDB. Insert-only semantics
// come from a read-then-set inside a single transaction; Badger's optimistic
// concurrency aborts the later of two racing writers, which then observes the
// winner's value on retry.
type BadgerCache struct {
	db *badger.DB
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens a BadgerCache.
func OpenBadger(cfg BadgerConfig) (*BadgerCache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent link cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create link cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.With("component", "badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger link cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// Get reads the entry for title.
func (b *BadgerCache) Get(title string) ([]string, bool, error) {
	var links []string
	found := false

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(title))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		links, err = decodeItem(item)
		found = err == nil
		return err
	})
	if err != nil {
		return nil, false, wrapBadgerErr(err)
	}
	return links, found, nil
}

// Put inserts links for title unless a value is already committed.
func (b *BadgerCache) Put(title string, links []string) ([]string, error) {
	value, err := json.Marshal(clone(links))
	if err != nil {
		return nil, fmt.Errorf("encode links for %q: %w", title, err)
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		var stored []string
		err = b.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(badgerKey(title))
			if err == nil {
				stored, err = decodeItem(item)
				return err
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			stored = clone(links)
			return txn.Set(badgerKey(title), value)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, wrapBadgerErr(err)
		}
		return stored, nil
	}
	return nil, fmt.Errorf("put %q: %w", title, err)
}

// Len counts the stored titles.
func (b *BadgerCache) Len() int {
	n := 0
	_ = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n
}

// Range iterates stored entries in title order until fn returns false.
// Entries that fail to decode are skipped.
func (b *BadgerCache) Range(fn func(title string, links []string) bool) {
	_ = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			links, err := decodeItem(it.Item())
			if err != nil {
				continue
			}
			title := string(it.Item().Key()[len(keyPrefix):])
			if !fn(title, links) {
				return nil
			}
		}
		return nil
	})
}

// Close closes the underlying database.
func (b *BadgerCache) Close() error {
	return b.db.Close()
}

func badgerKey(title string) []byte {
	return []byte(keyPrefix + title)
}

func decodeItem(item *badger.Item) ([]string, error) {
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var links []string
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, fmt.Errorf("%w: entry %q: %v", ErrCorrupt, string(item.Key()), err)
	}
	return clone(links), nil
}

func wrapBadgerErr(err error) error {
	if errors.Is(err, ErrCorrupt) {
		return err
	}
	return fmt.Errorf("badger link cache: %w", err)
}
