package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sanonone/wikiwalk/pkg/engine"
)

// pair is one walk of a batch file.
type pair struct {
	Start  string `yaml:"start"`
	Target string `yaml:"target"`
}

// batchOutcome is the result of one pair.
type batchOutcome struct {
	pair   pair
	result *engine.Result
	err    error
}

func runBatch(cmd *cobra.Command, args []string) error {
	if concurrency < 1 {
		return fmt.Errorf("--concurrency must be >= 1, got %d", concurrency)
	}
	if cmd.Flags().Changed("max-steps") && maxSteps < 0 {
		return fmt.Errorf("--max-steps must be >= 0, got %d", maxSteps)
	}

	pairs, err := readPairs(args[0])
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("%s: no pairs", args[0])
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close link cache", "error", err)
		}
	}()

	outcomes := walkPairs(ctx, a.service, pairs, concurrency, func(p pair) engine.Request {
		return walkRequest(cmd, p.Start, p.Target)
	})

	failed := printBatch(cmd.OutOrStdout(), outcomes)
	logger.Info("batch finished", "pairs", len(pairs), "failed", failed, "cached_pages", a.cache.Len())
	if failed > 0 {
		return &exitError{code: 1, err: fmt.Errorf("%d of %d walks failed", failed, len(pairs))}
	}
	return nil
}

// walkPairs runs every pair with at most limit walks in flight and returns
// outcomes in input order. A failed walk does not stop the others.
func walkPairs(ctx context.Context, svc *engine.Service, pairs []pair, limit int, request func(pair) engine.Request) []batchOutcome {
	outcomes := make([]batchOutcome, len(pairs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range pairs {
		g.Go(func() error {
			res, err := svc.Walk(ctx, request(p))
			outcomes[i] = batchOutcome{pair: p, result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// printBatch writes one line per outcome and returns how many failed.
func printBatch(w io.Writer, outcomes []batchOutcome) int {
	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			fmt.Fprintf(w, "%-20s %s -> %s: %v\n", "error", o.pair.Start, o.pair.Target, o.err)
			continue
		}
		fmt.Fprintf(w, "%-20s %s -> %s in %d steps (%.2fs): %s\n",
			o.result.Status, o.pair.Start, o.pair.Target, o.result.Steps,
			o.result.Elapsed.Seconds(), strings.Join(o.result.Path, " -> "))
	}
	return failed
}

// readPairs loads a batch file. ".yaml" and ".yml" files hold a list of
// {start, target} objects; anything else holds one "Start -> Target" per
// line, with blank lines and lines starting with '#' ignored.
func readPairs(path string) ([]pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAMLPairs(data)
	default:
		return parseLinePairs(data)
	}
}

func parseYAMLPairs(data []byte) ([]pair, error) {
	var pairs []pair
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pairs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	for i := range pairs {
		pairs[i].Start = strings.TrimSpace(pairs[i].Start)
		pairs[i].Target = strings.TrimSpace(pairs[i].Target)
		if pairs[i].Start == "" || pairs[i].Target == "" {
			return nil, fmt.Errorf("batch entry %d: start and target are required", i+1)
		}
	}
	return pairs, nil
}

func parseLinePairs(data []byte) ([]pair, error) {
	var pairs []pair
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		start, target, ok := strings.Cut(line, "->")
		start, target = strings.TrimSpace(start), strings.TrimSpace(target)
		if !ok || start == "" || target == "" {
			return nil, fmt.Errorf("batch line %d: want 'Start -> Target', got %q", n+1, line)
		}
		pairs = append(pairs, pair{Start: start, Target: target})
	}
	return pairs, nil
}
