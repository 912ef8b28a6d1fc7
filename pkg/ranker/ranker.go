// Package ranker orders candidate titles by embedding similarity to a fixed
// target concept.
package ranker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sanonone/wikiwalk/pkg/distance"
	"github.com/sanonone/wikiwalk/pkg/embeddings"
	"github.com/sanonone/wikiwalk/pkg/metrics"
)

// ErrEmbedding wraps every failure to obtain a usable vector.
var ErrEmbedding = errors.New("embedding failed")

// Candidate is a title with its similarity to the target. Higher is closer.
type Candidate struct {
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Options tune how text is embedded and scored.
type Options struct {
	QueryPrefix   string
	PassagePrefix string
	Metric        distance.Metric
}

// Ranker holds the target vector for the lifetime of one run.
// It is safe for concurrent use.
type Ranker struct {
	embedder embeddings.Embedder
	target   string
	vector   []float32
	score    distance.SimilarityFunc
	opts     Options
}

// New embeds target once and returns a Ranker bound to it.
func New(ctx context.Context, embedder embeddings.Embedder, target string, opts Options) (*Ranker, error) {
	score, err := distance.Get(opts.Metric)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	vec, err := embedder.Embed(ctx, opts.QueryPrefix+target)
	metrics.ObserveEmbed(1, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: target %q: %v", ErrEmbedding, target, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: target %q: empty vector", ErrEmbedding, target)
	}

	return &Ranker{
		embedder: embedder,
		target:   target,
		vector:   vec,
		score:    score,
		opts:     opts,
	}, nil
}

// Target returns the concept this ranker scores against.
func (r *Ranker) Target() string {
	return r.target
}

// Rank embeds candidates and returns at most topK of them, best first.
// Equal scores keep their input order. topK <= 0 returns every candidate.
func (r *Ranker) Rank(ctx context.Context, candidates []string, topK int) ([]Candidate, error) {
	if len(candidates) == 0 {
		return []Candidate{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = r.opts.PassagePrefix + c
	}

	start := time.Now()
	vecs, err := r.embedder.EmbedBatch(ctx, texts)
	metrics.ObserveEmbed(len(texts), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vecs) != len(candidates) {
		return nil, fmt.Errorf("%w: got %d vectors for %d candidates", ErrEmbedding, len(vecs), len(candidates))
	}

	ranked := make([]Candidate, len(candidates))
	for i, title := range candidates {
		s, err := r.score(vecs[i], r.vector)
		if err != nil {
			return nil, fmt.Errorf("%w: candidate %q: %v", ErrEmbedding, title, err)
		}
		ranked[i] = Candidate{Title: title, Score: s}
	}

	slices.SortStableFunc(ranked, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked, nil
}
