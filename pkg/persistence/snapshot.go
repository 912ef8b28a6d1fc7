package persistence

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrNoSnapshot is returned when the snapshot file is missing or empty.
	ErrNoSnapshot = errors.New("no snapshot")
	// ErrTrailingData indicates bytes after the snapshot frame.
	ErrTrailingData = errors.New("trailing data after snapshot frame")
)

// ReadSnapshot loads the single snapshot frame stored at path.
// A missing or zero-length file yields ErrNoSnapshot, which callers treat as
// an empty table. Damaged content yields an error for which IsCorruption is true.
func ReadSnapshot(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	frame, _, err := ReadFrame(reader)
	if err != nil {
		if err == io.EOF {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	if frame.Op != OpCodeSnapshot {
		return nil, fmt.Errorf("snapshot %s: %w", path, ErrUnknownOpCode)
	}

	// Exactly one frame per file.
	if _, err := reader.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("snapshot %s: %w", path, ErrTrailingData)
	}

	return frame.Payload, nil
}

// WriteSnapshot replaces the file at path with a single snapshot frame.
// The frame is written to a temporary file in the same directory, fsynced and
// renamed over path, so a concurrent reader sees either the old table or the
// new one, never a partial write.
func WriteSnapshot(path string, payload []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	buf := bufio.NewWriter(tmp)
	if err := NewFrameWriter(buf).WriteFrame(OpCodeSnapshot, payload); err != nil {
		cleanup()
		return fmt.Errorf("failed to write snapshot frame: %w", err)
	}
	if err := buf.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	syncDir(dir)
	return nil
}

// syncDir makes the rename durable. Not all platforms allow fsync on a
// directory, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
