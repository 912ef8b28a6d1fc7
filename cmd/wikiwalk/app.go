package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sanonone/wikiwalk/pkg/config"
	"github.com/sanonone/wikiwalk/pkg/distance"
	"github.com/sanonone/wikiwalk/pkg/embeddings"
	"github.com/sanonone/wikiwalk/pkg/engine"
	"github.com/sanonone/wikiwalk/pkg/linkcache"
	"github.com/sanonone/wikiwalk/pkg/ranker"
	"github.com/sanonone/wikiwalk/pkg/wiki"
)

// app owns the long-lived components a command needs.
type app struct {
	cache   linkcache.Cache
	service *engine.Service

	metricsSrv *http.Server
}

// newApp opens the link cache and wires provider, embedder and engine defaults.
func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	embedder, err := embeddings.New(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	cache, err := linkcache.Open(cfg.Cache.Backend, cfg.Cache.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open link cache: %w", err)
	}

	opts := engine.DefaultOptions()
	opts.MaxSteps = cfg.Search.MaxSteps
	opts.TopK = cfg.Search.TopK
	opts.Logger = logger

	a := &app{
		cache: cache,
		service: &engine.Service{
			Source:   engine.NewLinkSource(cache, wiki.NewClient(cfg.Wiki), logger),
			Embedder: embedder,
			Rank: ranker.Options{
				QueryPrefix:   cfg.Embedder.QueryPrefix,
				PassagePrefix: cfg.Embedder.PassagePrefix,
				Metric:        distance.Metric(cfg.Search.Metric),
			},
			Defaults: opts,
			Logger:   logger,
		},
	}

	if cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr, logger)
	}
	return a, nil
}

// serveMetrics exposes /metrics on addr for the lifetime of the app.
func (a *app) serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	a.metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
}

// Close stops the metrics listener and closes the cache.
func (a *app) Close() error {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metricsSrv.Shutdown(ctx)
	}
	return a.cache.Close()
}

// walkRequest applies the --max-steps and --top-k flags when they were given.
func walkRequest(cmd *cobra.Command, start, target string) engine.Request {
	req := engine.Request{Start: start, Target: target}
	if cmd.Flags().Changed("max-steps") {
		n := maxSteps
		req.MaxSteps = &n
	}
	if cmd.Flags().Changed("top-k") {
		req.TopK = topK
	}
	return req
}
