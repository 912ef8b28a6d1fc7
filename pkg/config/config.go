// Package config loads the wikiwalk YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sanonone/wikiwalk/pkg/distance"
	"github.com/sanonone/wikiwalk/pkg/embeddings"
	"github.com/sanonone/wikiwalk/pkg/engine"
	"github.com/sanonone/wikiwalk/pkg/linkcache"
	"github.com/sanonone/wikiwalk/pkg/wiki"
)

// Config is the root of the YAML file.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Search   SearchConfig      `yaml:"search"`
	Cache    CacheConfig       `yaml:"cache"`
	Wiki     wiki.Config       `yaml:"wiki"`
	Embedder embeddings.Config `yaml:"embedder"`
	Server   ServerConfig      `yaml:"server"`
	Metrics  MetricsConfig     `yaml:"metrics"`
}

// SearchConfig holds the walk defaults. Flags and API requests may override them.
type SearchConfig struct {
	MaxSteps int    `yaml:"max_steps"`
	TopK     int    `yaml:"top_k"`
	Metric   string `yaml:"metric"` // "dot" or "cosine"
}

// CacheConfig selects the link cache backend.
type CacheConfig struct {
	Backend string `yaml:"backend"` // "file", "badger" or "memory"
	Path    string `yaml:"path"`
}

type ServerConfig struct {
	HTTPAddr  string `yaml:"http_addr"`
	AuthToken string `yaml:"auth_token"`
	// MaxConcurrentWalks bounds async walks; extra requests get 429.
	MaxConcurrentWalks int `yaml:"max_concurrent_walks"`
}

type MetricsConfig struct {
	// Addr serves /metrics on its own listener during CLI runs. Empty disables it.
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a working configuration for a local Ollama and English Wikipedia.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Search: SearchConfig{
			MaxSteps: engine.DefaultMaxSteps,
			TopK:     engine.DefaultTopK,
			Metric:   string(distance.DotProduct),
		},
		Cache: CacheConfig{
			Backend: linkcache.BackendFile,
			Path:    "wikiwalk-cache.wal",
		},
		Wiki:     wiki.DefaultConfig(),
		Embedder: embeddings.DefaultConfig(),
		Server: ServerConfig{
			HTTPAddr:           ":9093",
			MaxConcurrentWalks: 4,
		},
	}
}

// LoadConfig reads the YAML configuration file using strict parsing.
// An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)

		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("YAML syntax error in config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv fills secrets that are better kept out of the file.
func (c *Config) applyEnv() {
	if c.Embedder.APIKey == "" {
		c.Embedder.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Server.AuthToken == "" {
		c.Server.AuthToken = os.Getenv("WIKIWALK_AUTH_TOKEN")
	}
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	var errs []error
	if c.Search.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("search.max_steps must be >= 0, got %d", c.Search.MaxSteps))
	}
	if c.Search.TopK < 1 {
		errs = append(errs, fmt.Errorf("search.top_k must be >= 1, got %d", c.Search.TopK))
	}
	if _, err := distance.Get(distance.Metric(c.Search.Metric)); err != nil {
		errs = append(errs, fmt.Errorf("search.metric: %w", err))
	}
	switch c.Cache.Backend {
	case linkcache.BackendFile, linkcache.BackendBadger:
		if c.Cache.Path == "" {
			errs = append(errs, fmt.Errorf("cache.path is required for backend %q", c.Cache.Backend))
		}
	case linkcache.BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of file, badger, memory", c.Cache.Backend))
	}
	switch c.Embedder.Type {
	case embeddings.TypeOllama, embeddings.TypeOpenAI:
	default:
		errs = append(errs, fmt.Errorf("embedder.type %q is not one of ollama, openai", c.Embedder.Type))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
