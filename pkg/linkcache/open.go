package linkcache

import (
	"fmt"
	"log/slog"
)

// Open builds the Cache named by backend. path is the snapshot file for
// "file" and the database directory for "badger"; "memory" ignores it.
func Open(backend, path string, logger *slog.Logger) (Cache, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryCache(), nil
	case BackendFile, "":
		return OpenFile(path, logger)
	case BackendBadger:
		return OpenBadger(BadgerConfig{Path: path, SyncWrites: true, Logger: logger})
	default:
		return nil, fmt.Errorf("unknown link cache backend %q", backend)
	}
}
