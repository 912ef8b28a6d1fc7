package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/wikiwalk/internal/server"
	"github.com/sanonone/wikiwalk/pkg/engine"
	"github.com/sanonone/wikiwalk/pkg/linkcache"
)

type graph map[string][]string

func (g graph) Exists(_ context.Context, title string) (bool, error) {
	_, ok := g[title]
	return ok, nil
}

func (g graph) Links(_ context.Context, title string) ([]string, error) {
	if title == "Broken" {
		return nil, errors.New("wiki offline")
	}
	return append([]string(nil), g[title]...), nil
}

type vectors map[string][]float32

func (v vectors) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := v.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (v vectors) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if vec, ok := v[t]; ok {
			out[i] = vec
		} else {
			out[i] = []float32{0, 0}
		}
	}
	return out, nil
}

// newTestClient runs the real HTTP server over a stub graph.
func newTestClient(t *testing.T, token string) *Client {
	t.Helper()
	svc := &engine.Service{
		Source: engine.NewLinkSource(linkcache.NewMemoryCache(), graph{
			"Five Nights at Freddy's": {"Horror", "Sport"},
			"Sport":                   {"Volleyball", "Chess"},
		}, nil),
		Embedder: vectors{
			"Volleyball": {1, 0},
			"Sport":      {0.8, 0.2},
			"Horror":     {0.1, 0.9},
		},
		Defaults: engine.DefaultOptions(),
	}
	srv, err := server.NewServer(svc, server.Config{AuthToken: "secret", MaxConcurrentWalks: 2})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return New(ts.URL+"/", token)
}

func TestWalk(t *testing.T) {
	c := newTestClient(t, "secret")

	res, err := c.Walk(context.Background(), WalkRequest{Start: "Five Nights at Freddy's", Target: "Volleyball"})
	require.NoError(t, err)
	assert.True(t, res.Reached())
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, []string{"Five Nights at Freddy's", "Sport", "Volleyball"}, res.Path)
	assert.NotEmpty(t, res.RunID)
}

func TestWalkWithZeroBudget(t *testing.T) {
	c := newTestClient(t, "secret")

	zero := 0
	res, err := c.Walk(context.Background(), WalkRequest{Start: "Sport", Target: "Volleyball", MaxSteps: &zero})
	require.NoError(t, err)
	assert.Equal(t, "step_limit_exceeded", res.Status)
	assert.False(t, res.Reached())
}

func TestAPIErrors(t *testing.T) {
	c := newTestClient(t, "wrong")

	_, err := c.Walk(context.Background(), WalkRequest{Start: "A", Target: "B"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	c = newTestClient(t, "secret")
	_, err = c.Walk(context.Background(), WalkRequest{Start: "Broken", Target: "B"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "wiki offline")

	_, err = c.GetTaskStatus(context.Background(), "missing")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestWalkAsyncWait(t *testing.T) {
	c := newTestClient(t, "secret")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	task, err := c.WalkAsync(ctx, WalkRequest{Start: "Five Nights at Freddy's", Target: "Volleyball"})
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)

	res, err := task.Wait(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.Reached())
	assert.Equal(t, "completed", task.Status)
}

func TestWalkAsyncFailure(t *testing.T) {
	c := newTestClient(t, "secret")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	task, err := c.WalkAsync(ctx, WalkRequest{Start: "Broken", Target: "B"})
	require.NoError(t, err)

	_, err = task.Wait(ctx, 10*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wiki offline")
}

func TestLinksAndHealth(t *testing.T) {
	c := newTestClient(t, "secret")
	ctx := context.Background()

	require.NoError(t, c.Healthy(ctx))

	links, err := c.Links(ctx, "Five Nights at Freddy's")
	require.NoError(t, err)
	assert.Equal(t, "Five Nights at Freddy's", links.Title)
	assert.Equal(t, []string{"Horror", "Sport"}, links.Links)
	assert.Equal(t, 2, links.Count)
}
