// Package wiki fetches page links from a MediaWiki API (Wikipedia by default).
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Config holds the connection settings for the MediaWiki API.
type Config struct {
	// Language selects https://<language>.wikipedia.org when Endpoint is empty.
	Language string `yaml:"language" json:"language"`

	// Endpoint is the full api.php URL. Overrides Language.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// UserAgent is required by Wikimedia's API etiquette.
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// RequestsPerSecond paces outgoing requests. 0 disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// DefaultConfig returns settings for English Wikipedia.
func DefaultConfig() Config {
	return Config{
		Language:          "en",
		UserAgent:         "wikiwalk/1.0 (https://github.com/sanonone/wikiwalk)",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
		Burst:             1,
	}
}

// Client implements engine.LinkProvider against a MediaWiki API.
type Client struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		lang := cfg.Language
		if lang == "" {
			lang = "en"
		}
		endpoint = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		endpoint:   endpoint,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// queryResponse is the formatversion=2 shape of action=query.
type queryResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		Pages []struct {
			Title   string `json:"title"`
			Missing bool   `json:"missing"`
			Invalid bool   `json:"invalid"`
			Links   []struct {
				NS    int    `json:"ns"`
				Title string `json:"title"`
			} `json:"links"`
		} `json:"pages"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Exists reports whether title names an existing page.
func (c *Client) Exists(ctx context.Context, title string) (bool, error) {
	params := url.Values{}
	params.Set("titles", title)

	resp, err := c.query(ctx, params)
	if err != nil {
		return false, err
	}
	if len(resp.Query.Pages) == 0 {
		return false, nil
	}
	p := resp.Query.Pages[0]
	return !p.Missing && !p.Invalid, nil
}

// Links returns the filtered outbound links of title, following API
// continuation until the list is complete. A missing page has no links.
func (c *Client) Links(ctx context.Context, title string) ([]string, error) {
	params := url.Values{}
	params.Set("titles", title)
	params.Set("prop", "links")
	params.Set("pllimit", "max")

	var raw []string
	for {
		resp, err := c.query(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, p := range resp.Query.Pages {
			if p.Missing || p.Invalid {
				return []string{}, nil
			}
			for _, l := range p.Links {
				raw = append(raw, l.Title)
			}
		}

		if len(resp.Continue) == 0 {
			break
		}
		for k, v := range resp.Continue {
			params.Set(k, v)
		}
	}

	return FilterLinks(title, raw), nil
}

func (c *Client) query(ctx context.Context, params url.Values) (*queryResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mediawiki request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mediawiki api error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode mediawiki response: %w", err)
	}
	if out.Error != nil {
		return nil, errors.New("mediawiki error: " + out.Error.Code + ": " + out.Error.Info)
	}
	return &out, nil
}
