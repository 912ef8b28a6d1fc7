package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements the Embedder interface for OpenAI-compatible APIs
// (OpenAI, LocalAI, vLLM, Ollama's /v1 endpoint).
type OpenAIEmbedder struct {
	Model     string
	BatchSize int
	client    *openai.Client
}

func NewOpenAIEmbedder(baseURL, model, apiKey string, timeout time.Duration, batchSize int) *OpenAIEmbedder {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIEmbedder{
		Model:     model,
		BatchSize: batchSize,
		client:    openai.NewClientWithConfig(cfg),
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for _, chunk := range batches(texts, e.BatchSize) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: chunk,
			Model: openai.EmbeddingModel(e.Model),
		})
		if err != nil {
			return nil, fmt.Errorf("openai request failed: %w", err)
		}
		if len(resp.Data) != len(chunk) {
			return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(chunk))
		}

		// The API does not promise response order; place by index.
		vecs := make([][]float32, len(chunk))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(chunk) {
				return nil, fmt.Errorf("openai returned out-of-range index %d", d.Index)
			}
			vecs[d.Index] = d.Embedding
		}
		out = append(out, vecs...)
	}
	return out, nil
}
