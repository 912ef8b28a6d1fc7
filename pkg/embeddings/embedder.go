// Package embeddings converts text into vectors through a remote embedding model.
package embeddings

import (
	"context"
	"fmt"
	"time"
)

// Embedder defines the interface for converting text into vector representations.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Supported embedder types.
const (
	TypeOllama = "ollama"
	TypeOpenAI = "openai"
)

// Config holds the connection settings for an embedding provider.
type Config struct {
	// Type selects the client: "ollama" or "openai".
	Type string `yaml:"type" json:"type"`

	// URL is the embedding endpoint.
	// Ollama: "http://localhost:11434/api/embed"
	// OpenAI-compatible: the API base, e.g. "https://api.openai.com/v1".
	URL string `yaml:"url" json:"url"`

	Model  string `yaml:"model" json:"model"`
	APIKey string `yaml:"api_key" json:"api_key"`

	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// BatchSize caps the number of texts per request. 0 means no cap.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// QueryPrefix is prepended to the target concept, PassagePrefix to every
	// candidate. The defaults are the task prefixes nomic-embed-text was trained
	// with; bge and e5 use "query: " and "passage: " instead.
	QueryPrefix   string `yaml:"query_prefix" json:"query_prefix"`
	PassagePrefix string `yaml:"passage_prefix" json:"passage_prefix"`
}

// DefaultConfig returns defaults for a local Ollama setup.
func DefaultConfig() Config {
	return Config{
		Type:          TypeOllama,
		URL:           "http://localhost:11434/api/embed",
		Model:         "nomic-embed-text",
		Timeout:       60 * time.Second,
		BatchSize:     64,
		QueryPrefix:   "search_query: ",
		PassagePrefix: "search_document: ",
	}
}

// New builds the Embedder described by cfg.
func New(cfg Config) (Embedder, error) {
	switch cfg.Type {
	case TypeOllama, "":
		return NewOllamaEmbedder(cfg.URL, cfg.Model, cfg.Timeout, cfg.BatchSize), nil
	case TypeOpenAI:
		return NewOpenAIEmbedder(cfg.URL, cfg.Model, cfg.APIKey, cfg.Timeout, cfg.BatchSize), nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

// batches splits texts into chunks of at most size elements.
func batches(texts []string, size int) [][]string {
	if size <= 0 || len(texts) <= size {
		return [][]string{texts}
	}
	out := make([][]string, 0, (len(texts)+size-1)/size)
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		out = append(out, texts[start:end])
	}
	return out
}
