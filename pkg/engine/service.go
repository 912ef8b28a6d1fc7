package engine

import (
	"context"
	"log/slog"

	"github.com/sanonone/wikiwalk/pkg/embeddings"
	"github.com/sanonone/wikiwalk/pkg/ranker"
)

// Request describes one walk for Service.Walk.
type Request struct {
	Start  string `json:"start"`
	Target string `json:"target"`

	// MaxSteps overrides the service default when non-nil. Zero is a valid budget.
	MaxSteps *int `json:"max_steps,omitempty"`
	// TopK overrides the service default when positive.
	TopK int `json:"top_k,omitempty"`

	OnHop func(Hop) `json:"-"`
}

// Service builds a fresh ranker and engine for every walk while sharing one
// LinkSource, so concurrent walks share the cache and in-flight fetches.
type Service struct {
	Source   *LinkSource
	Embedder embeddings.Embedder
	Rank     ranker.Options
	Defaults Options
	Logger   *slog.Logger
}

// Walk runs req to completion.
func (s *Service) Walk(ctx context.Context, req Request) (*Result, error) {
	opts := s.Defaults
	if opts.Logger == nil {
		opts.Logger = s.Logger
	}
	if req.MaxSteps != nil {
		opts.MaxSteps = *req.MaxSteps
	}
	if req.TopK > 0 {
		opts.TopK = req.TopK
	}
	opts.OnHop = req.OnHop

	rk, err := ranker.New(ctx, s.Embedder, req.Target, s.Rank)
	if err != nil {
		return nil, err
	}
	return New(s.Source, rk, opts).Run(ctx, req.Start, req.Target)
}
