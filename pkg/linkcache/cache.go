// Package linkcache stores the outbound links of pages that were already
// fetched, so that a page is asked of the link provider at most once.
//
// Every backend is insert-only: the first Put for a title wins and later
// Puts for the same title return the stored value unchanged.
package linkcache

import (
	"errors"
	"slices"
)

var (
	// ErrCorrupt is returned when the backing store became unreadable after
	// it had already been loaded or written successfully.
	ErrCorrupt = errors.New("link cache corrupt")
	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("link cache closed")
)

// Cache maps a page title to its outbound link titles.
type Cache interface {
	// Get returns the cached links for title. A miss is (nil, false, nil).
	Get(title string) ([]string, bool, error)

	// Put stores links for title if no entry exists yet and returns the
	// authoritative value: links on insert, the existing entry otherwise.
	Put(title string, links []string) ([]string, error)

	// Len returns the number of cached titles.
	Len() int

	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBadger = "badger"
)

func clone(links []string) []string {
	if links == nil {
		return []string{}
	}
	return slices.Clone(links)
}
