//go:build !unix && !windows

package persistence

import "os"

// No advisory locking available; the in-process mutex in FileLock still applies.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
