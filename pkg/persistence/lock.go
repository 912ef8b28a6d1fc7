package persistence

import (
	"fmt"
	"os"
	"sync"
)

// FileLock is an exclusive advisory lock shared by every process that opens
// the same lock file. It also serializes goroutines of the current process,
// since advisory locks on some platforms are per-process.
type FileLock struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// NewFileLock prepares a lock backed by path. The file is created on first Lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock blocks until the lock is held.
func (l *FileLock) Lock() error {
	l.mu.Lock()

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := lockFile(file); err != nil {
		_ = file.Close()
		l.mu.Unlock()
		return fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
	}
	l.file = file
	return nil
}

// Unlock releases a lock taken by Lock.
func (l *FileLock) Unlock() error {
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := unlockFile(l.file)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.path, err)
	}
	return closeErr
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}
