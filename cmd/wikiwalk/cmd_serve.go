package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	mcpserver "github.com/sanonone/wikiwalk/internal/mcp"
	"github.com/sanonone/wikiwalk/internal/server"
)

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.HTTPAddr
	if httpAddr != "" {
		addr = httpAddr
	}

	// /metrics is served by the API listener.
	appCfg := cfg
	appCfg.Metrics.Addr = ""
	a, err := newApp(appCfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close link cache", "error", err)
		}
	}()

	srv, err := server.NewServer(a.service, server.Config{
		Addr:               addr,
		AuthToken:          cfg.Server.AuthToken,
		MaxConcurrentWalks: cfg.Server.MaxConcurrentWalks,
		Logger:             logger,
	})
	if err != nil {
		return err
	}
	if cfg.Server.AuthToken == "" {
		logger.Warn("HTTP API is running without authentication")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP(cmd *cobra.Command, args []string) error {
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

	logger.Info("MCP server listening on stdio", "version", version)
	if err := mcpserver.NewMCPServer(a.service, version).Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
