// Package engine walks the link graph greedily from a start page to a target
// page, always following the unvisited link that is semantically closest to
// the target.
//
// Basic usage:
//
//	source := engine.NewLinkSource(cache, provider, logger)
//	rk, err := ranker.New(ctx, embedder, target, ranker.Options{})
//	if err != nil {
//	    return err
//	}
//	res, err := engine.New(source, rk, engine.DefaultOptions()).Run(ctx, start, target)
//
// The walk is locally greedy and never backtracks. It always terminates, but
// it is not guaranteed to find a path even when one exists.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sanonone/wikiwalk/pkg/metrics"
	"github.com/sanonone/wikiwalk/pkg/ranker"
)

// Defaults for Options.
const (
	DefaultMaxSteps = 100
	DefaultTopK     = 5
)

// Ranker orders candidate titles by closeness to the run's target.
type Ranker interface {
	Rank(ctx context.Context, candidates []string, topK int) ([]ranker.Candidate, error)
}

// Hop describes one move of a walk. It is passed to Options.OnHop.
type Hop struct {
	RunID      string             `json:"run_id"`
	Step       int                `json:"step"`
	From       string             `json:"from"`
	To         string             `json:"to"`
	Candidates []ranker.Candidate `json:"candidates"`
}

// Options configures a walk.
type Options struct {
	// MaxSteps bounds the number of hops. 0 is valid and stops before the first hop.
	MaxSteps int

	// TopK is how many ranked candidates are considered per step. Unvisited
	// links ranked below TopK are never followed.
	TopK int

	// Logger receives per-hop debug logs and the final summary.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// OnHop, if set, is called synchronously after every hop.
	OnHop func(Hop)
}

// DefaultOptions returns MaxSteps 100 and TopK 5.
func DefaultOptions() Options {
	return Options{
		MaxSteps: DefaultMaxSteps,
		TopK:     DefaultTopK,
	}
}

// Result is the outcome of a walk that reached a terminal status.
type Result struct {
	RunID   string        `json:"run_id"`
	Start   string        `json:"start"`
	Target  string        `json:"target"`
	Status  Status        `json:"status"`
	Reason  string        `json:"reason,omitempty"`
	Steps   int           `json:"steps"`
	Path    []string      `json:"path"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Engine executes one walk at a time. Create one per run: the ranker it
// holds is bound to a single target.
type Engine struct {
	source *LinkSource
	ranker Ranker
	opts   Options
	logger *slog.Logger
	runID  string
}

// New creates an Engine.
func New(source *LinkSource, rk Ranker, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		source: source,
		ranker: rk,
		opts:   opts,
		logger: logger,
		runID:  uuid.NewString(),
	}
}

// RunID identifies this engine's run in logs, hops and the Result.
func (e *Engine) RunID() string {
	return e.runID
}

// Run walks from start until a terminal status. Fatal errors from the link
// provider, the cache or the ranker abort the walk and no Result is returned.
// ctx is checked between steps; cancellation yields ErrCancelled.
func (e *Engine) Run(ctx context.Context, start, target string) (*Result, error) {
	if start == "" || target == "" {
		return nil, errors.New("start and target titles are required")
	}
	if e.opts.MaxSteps < 0 {
		return nil, fmt.Errorf("max steps must be >= 0, got %d", e.opts.MaxSteps)
	}

	log := e.logger.With("run_id", e.runID, "start", start, "target", target)
	log.Info("walk started", "max_steps", e.opts.MaxSteps, "top_k", e.opts.TopK)

	began := time.Now()
	st := NewState(start, target)

	for !st.Status.Terminal() {
		if err := ctx.Err(); err != nil {
			metrics.ObserveRun("error", st.Steps, time.Since(began))
			return nil, fmt.Errorf("%w after %d steps at %q: %w", ErrCancelled, st.Steps, st.Current, err)
		}
		if err := e.Step(ctx, st); err != nil {
			metrics.ObserveRun("error", st.Steps, time.Since(began))
			log.Error("walk aborted", "steps", st.Steps, "current", st.Current, "error", err)
			return nil, err
		}
	}

	elapsed := time.Since(began)
	metrics.ObserveRun(string(st.Status), st.Steps, elapsed)
	log.Info("walk finished", "status", st.Status, "steps", st.Steps, "elapsed", elapsed)

	return &Result{
		RunID:   e.runID,
		Start:   start,
		Target:  target,
		Status:  st.Status,
		Reason:  st.Reason,
		Steps:   st.Steps,
		Path:    st.Path,
		Elapsed: elapsed,
	}, nil
}

// Step applies exactly one transition to st. It is a no-op on a terminal state.
func (e *Engine) Step(ctx context.Context, st *State) error {
	if st.Status.Terminal() {
		return nil
	}

	if st.Current == st.Target {
		st.Status = Reached
		return nil
	}
	if st.Steps >= e.opts.MaxSteps {
		st.Status = StepLimitExceeded
		return nil
	}

	st.Visited[st.Current] = struct{}{}

	links, err := e.source.Links(ctx, st.Current)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		st.Status = DeadEnd
		st.Reason = ReasonNoLinks
		return nil
	}

	ranked, err := e.ranker.Rank(ctx, links, e.opts.TopK)
	if err != nil {
		if errors.Is(err, ErrEmbedding) {
			return fmt.Errorf("rank links of %q: %w", st.Current, err)
		}
		return fmt.Errorf("%w: rank links of %q: %w", ErrEmbedding, st.Current, err)
	}

	for _, c := range ranked {
		if _, seen := st.Visited[c.Title]; seen {
			continue
		}
		hop := Hop{
			RunID:      e.runID,
			Step:       st.Steps + 1,
			From:       st.Current,
			To:         c.Title,
			Candidates: ranked,
		}
		st.Current = c.Title
		st.Steps++
		st.Path = append(st.Path, c.Title)

		e.logger.Debug("hop", "run_id", e.runID, "step", hop.Step, "from", hop.From, "to", hop.To, "score", c.Score)
		if e.opts.OnHop != nil {
			e.opts.OnHop(hop)
		}
		return nil
	}

	st.Status = DeadEnd
	st.Reason = ReasonAllVisited
	return nil
}
