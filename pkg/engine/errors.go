package engine

import (
	"errors"

	"github.com/sanonone/wikiwalk/pkg/ranker"
)

var (
	// ErrProviderUnavailable wraps any failure of the link provider.
	ErrProviderUnavailable = errors.New("link provider unavailable")

	// ErrEmbedding wraps any failure of the ranker to embed text.
	ErrEmbedding = ranker.ErrEmbedding

	// ErrCancelled is returned when the run's context ends between steps or
	// while it waits on a link fetch.
	ErrCancelled = errors.New("walk cancelled")
)
