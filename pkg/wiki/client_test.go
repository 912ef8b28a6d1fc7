package wiki

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

type link struct {
	NS    int    `json:"ns"`
	Title string `json:"title"`
}

// fakeWiki serves action=query for a tiny wiki, paging links two at a time.
func fakeWiki(t *testing.T, pages map[string][]string, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "2", q.Get("formatversion"))
		assert.Equal(t, "wikiwalk-test", r.Header.Get("User-Agent"))

		title := q.Get("titles")
		links, ok := pages[title]
		page := map[string]any{"title": title, "ns": 0}
		resp := map[string]any{}

		if !ok {
			page["missing"] = true
		} else if q.Get("prop") == "links" {
			offset := 0
			if c := q.Get("plcontinue"); c != "" {
				_ = json.Unmarshal([]byte(c), &offset)
			}
			end := min(offset+2, len(links))
			chunk := make([]link, 0, 2)
			for _, l := range links[offset:end] {
				chunk = append(chunk, link{Title: l})
			}
			page["links"] = chunk
			if end < len(links) {
				next, _ := json.Marshal(end)
				resp["continue"] = map[string]string{"plcontinue": string(next), "continue": "||"}
			}
		}
		resp["query"] = map[string]any{"pages": []any{page}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(endpoint string) *Client {
	return NewClient(Config{Endpoint: endpoint, UserAgent: "wikiwalk-test", Timeout: time.Second})
}

func TestLinksFollowsContinuationAndFilters(t *testing.T) {
	var requests atomic.Int32
	srv := fakeWiki(t, map[string][]string{
		"Volleyball": {"Ball", "Category:Sports", "Volleyball", "Net", "Ball", "Beach volleyball"},
	}, &requests)
	defer srv.Close()

	links, err := newTestClient(srv.URL).Links(context.Background(), "Volleyball")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ball", "Net", "Beach volleyball"}, links)
	assert.Equal(t, int32(3), requests.Load(), "six links at two per page")
}

func TestLinksOfMissingPage(t *testing.T) {
	var requests atomic.Int32
	srv := fakeWiki(t, map[string][]string{}, &requests)
	defer srv.Close()

	links, err := newTestClient(srv.URL).Links(context.Background(), "No such page")
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.NotNil(t, links)
}

func TestExists(t *testing.T) {
	var requests atomic.Int32
	srv := fakeWiki(t, map[string][]string{"Volleyball": {}}, &requests)
	defer srv.Close()

	c := newTestClient(srv.URL)
	ok, err := c.Exists(context.Background(), "Volleyball")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Exists(context.Background(), "Vollyball")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAPIErrors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Links(context.Background(), "A")
		assert.ErrorContains(t, err, "429")
	})

	t.Run("api error body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"code":"maxlag","info":"Waiting for a database server"}}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Links(context.Background(), "A")
		assert.ErrorContains(t, err, "maxlag")
	})
}

func TestRateLimiterHonoursContext(t *testing.T) {
	c := NewClient(Config{Endpoint: "http://127.0.0.1:1", RequestsPerSecond: 0.001, Burst: 1})
	// Drain the single token.
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Links(ctx, "A")
	assert.Error(t, err)
}

func TestDefaultEndpoint(t *testing.T) {
	c := NewClient(Config{Language: "it"})
	assert.Equal(t, "https://it.wikipedia.org/w/api.php", c.endpoint)

	c = NewClient(DefaultConfig())
	assert.Equal(t, "https://en.wikipedia.org/w/api.php", c.endpoint)
}
