package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanonone/wikiwalk/pkg/config"
)

// --- Global Command Variables ---
var (
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "wikiwalk",
		Short: "Walk Wikipedia from one page to another by semantic similarity",
		Long: `wikiwalk follows links from a start page, always choosing the link whose
embedding is closest to the target page, until it reaches the target, runs
out of steps or runs into a dead end.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}

	runCmd = &cobra.Command{
		Use:   "run START TARGET",
		Short: "Walk from START toward TARGET and print the path",
		Args:  cobra.ExactArgs(2),
		RunE:  runWalk, // Defined in cmd_run.go
	}

	batchCmd = &cobra.Command{
		Use:   "batch FILE",
		Short: "Run every 'Start -> Target' pair in FILE concurrently over one cache",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch, // Defined in cmd_batch.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve walks over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}

	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve walk tools to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCP, // Defined in cmd_serve.go
	}

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect the link cache",
	}
	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print a summary of the link cache",
		Args:  cobra.NoArgs,
		RunE:  runCacheStats, // Defined in cmd_cache.go
	}
	cacheGetCmd = &cobra.Command{
		Use:   "get TITLE",
		Short: "Print the cached links of TITLE",
		Args:  cobra.ExactArgs(1),
		RunE:  runCacheGet, // Defined in cmd_cache.go
	}
)

// Flags shared by run and batch.
var (
	maxSteps    int
	topK        int
	verify      bool
	concurrency int
	httpAddr    string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level: debug, info, warn or error")

	for _, cmd := range []*cobra.Command{runCmd, batchCmd} {
		cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "maximum number of hops (overrides search.max_steps)")
		cmd.Flags().IntVar(&topK, "top-k", 0, "ranked links considered per step (overrides search.top_k)")
	}
	runCmd.Flags().BoolVar(&verify, "verify", false, "check that START and TARGET exist before walking")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 4, "walks run at the same time")
	serveCmd.Flags().StringVar(&httpAddr, "http-addr", "", "listen address (overrides server.http_addr)")

	cacheCmd.AddCommand(cacheStatsCmd, cacheGetCmd)
	rootCmd.AddCommand(runCmd, batchCmd, serveCmd, mcpCmd, cacheCmd)
}

// loadConfig runs before every command: config file, then flag overrides, then logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	level, err := loaded.SlogLevel()
	if err != nil {
		return err
	}

	cfg = loaded
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// exitError carries a process exit code out of a command. A nil err exits
// silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}
