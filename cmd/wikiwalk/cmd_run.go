package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sanonone/wikiwalk/pkg/engine"
)

// Exit codes of run for non-reached outcomes.
const (
	exitStepLimit = 2
	exitDeadEnd   = 3
)

func runWalk(cmd *cobra.Command, args []string) error {
	start, target := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
	if start == "" || target == "" {
		return fmt.Errorf("start and target must not be blank")
	}
	if cmd.Flags().Changed("max-steps") && maxSteps < 0 {
		return fmt.Errorf("--max-steps must be >= 0, got %d", maxSteps)
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

	if verify {
		if err := verifyPages(ctx, a.service.Source, start, target); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	req := walkRequest(cmd, start, target)
	req.OnHop = func(h engine.Hop) {
		fmt.Fprintf(out, "Current page: %s\n", h.To)
	}

	fmt.Fprintf(out, "Current page: %s\n", start)
	res, err := a.service.Walk(ctx, req)
	if err != nil {
		return fmt.Errorf("walk failed: %w", err)
	}

	printResult(out, res)
	return exitFor(res.Status)
}

// verifyPages fails unless every title exists.
func verifyPages(ctx context.Context, source *engine.LinkSource, titles ...string) error {
	for _, title := range titles {
		ok, err := source.Exists(ctx, title)
		if err != nil {
			return fmt.Errorf("verify %q: %w", title, err)
		}
		if !ok {
			return fmt.Errorf("page %q does not exist", title)
		}
	}
	return nil
}

// printResult writes the outcome of one walk the way run reports it.
func printResult(w io.Writer, res *engine.Result) {
	fmt.Fprintln(w)
	switch res.Status {
	case engine.Reached:
		fmt.Fprintf(w, "Reached '%s' in %d steps\n", res.Target, res.Steps)
	case engine.StepLimitExceeded:
		fmt.Fprintf(w, "Target not reached: step limit hit after %d steps at '%s'\n", res.Steps, res.Path[len(res.Path)-1])
	case engine.DeadEnd:
		fmt.Fprintf(w, "Target not reached: dead end at '%s' (%s)\n", res.Path[len(res.Path)-1], res.Reason)
	}
	fmt.Fprintf(w, "Path: %s\n", strings.Join(res.Path, " -> "))
	fmt.Fprintf(w, "Time taken: %.2fs\n", res.Elapsed.Seconds())
}

// exitFor maps a terminal status to the process exit code.
func exitFor(status engine.Status) error {
	switch status {
	case engine.StepLimitExceeded:
		return &exitError{code: exitStepLimit}
	case engine.DeadEnd:
		return &exitError{code: exitDeadEnd}
	default:
		return nil
	}
}
