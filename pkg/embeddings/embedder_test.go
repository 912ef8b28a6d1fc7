package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVector gives every text a deterministic 2-d vector.
func fakeVector(text string) []float32 {
	return []float32{float32(len(text)), 1}
}

func TestOllamaEmbedBatch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		resp := struct {
			Embeddings [][]float32 `json:"embeddings"`
		}{}
		for _, in := range req.Input {
			resp.Embeddings = append(resp.Embeddings, fakeVector(in))
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "nomic-embed-text", time.Second, 2)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	assert.Equal(t, int32(3), calls.Load(), "5 texts with batch size 2 need 3 requests")
	for i, v := range vecs {
		assert.Equal(t, float32(i+1), v[0])
	}

	one, err := e.Embed(context.Background(), "xyz")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, one)
}

func TestOllamaEmptyBatchSkipsNetwork(t *testing.T) {
	e := NewOllamaEmbedder("http://127.0.0.1:1/unreachable", "m", time.Second, 0)
	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestOllamaErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewOllamaEmbedder(srv.URL, "m", time.Second, 0).Embed(context.Background(), "x")
		assert.ErrorContains(t, err, "404")
	})

	t.Run("count mismatch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[[1,2]]}`))
		}))
		defer srv.Close()

		_, err := NewOllamaEmbedder(srv.URL, "m", time.Second, 0).EmbedBatch(context.Background(), []string{"a", "b"})
		assert.ErrorContains(t, err, "1 embeddings for 2 inputs")
	})
}

func TestOpenAIEmbedBatchOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)

		type datum struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]datum, 0, len(req.Input))
		// Reverse order on the wire.
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, datum{Object: "embedding", Embedding: fakeVector(req.Input[i]), Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL+"/", "", "sk-test", time.Second, 0)
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{1, 1}, vecs[0])
	assert.Equal(t, []float32{2, 1}, vecs[1])
	assert.Equal(t, []float32{3, 1}, vecs[2])
}

func TestNewSelectsClient(t *testing.T) {
	e, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &OllamaEmbedder{}, e)

	cfg := DefaultConfig()
	cfg.Type = TypeOpenAI
	e, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIEmbedder{}, e)

	cfg.Type = "word2vec"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestBatches(t *testing.T) {
	assert.Len(t, batches([]string{"a", "b", "c"}, 0), 1)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, batches([]string{"a", "b", "c"}, 2))
}

func TestDefaultConfigUsesModelTaskPrefixes(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "nomic-embed-text", cfg.Model)
	assert.Equal(t, "search_query: ", cfg.QueryPrefix)
	assert.Equal(t, "search_document: ", cfg.PassagePrefix)
}
