package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/wikiwalk/pkg/engine"
	"github.com/sanonone/wikiwalk/pkg/linkcache"
)

func TestParseLinePairs(t *testing.T) {
	pairs, err := parseLinePairs([]byte(`
# favourites
Five Nights at Freddy's -> Volleyball
  Tokyo->Jazz

`))
	require.NoError(t, err)
	assert.Equal(t, []pair{
		{Start: "Five Nights at Freddy's", Target: "Volleyball"},
		{Start: "Tokyo", Target: "Jazz"},
	}, pairs)

	for _, bad := range []string{"Tokyo", "Tokyo ->", "-> Jazz"} {
		_, err := parseLinePairs([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestParseYAMLPairs(t *testing.T) {
	pairs, err := parseYAMLPairs([]byte(`
- start: Tokyo
  target: Jazz
- start: " Chess "
  target: Go (game)
`))
	require.NoError(t, err)
	assert.Equal(t, []pair{
		{Start: "Tokyo", Target: "Jazz"},
		{Start: "Chess", Target: "Go (game)"},
	}, pairs)

	_, err = parseYAMLPairs([]byte("- start: Tokyo\n"))
	assert.Error(t, err)

	_, err = parseYAMLPairs([]byte("- start: Tokyo\n  target: Jazz\n  depth: 3\n"))
	assert.Error(t, err)
}

func TestReadPairsPicksFormatByExtension(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "pairs.yml")
	txt := filepath.Join(dir, "pairs.txt")
	require.NoError(t, os.WriteFile(yml, []byte("- start: A\n  target: B\n"), 0o644))
	require.NoError(t, os.WriteFile(txt, []byte("A -> B\n"), 0o644))

	for _, path := range []string{yml, txt} {
		pairs, err := readPairs(path)
		require.NoError(t, err, path)
		assert.Equal(t, []pair{{Start: "A", Target: "B"}}, pairs)
	}

	_, err := readPairs(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	cases := []struct {
		res  engine.Result
		want string
	}{
		{
			res:  engine.Result{Target: "D", Status: engine.Reached, Steps: 2, Path: []string{"A", "C", "D"}, Elapsed: 1234 * time.Millisecond},
			want: "\nReached 'D' in 2 steps\nPath: A -> C -> D\nTime taken: 1.23s\n",
		},
		{
			res:  engine.Result{Target: "Z", Status: engine.StepLimitExceeded, Steps: 0, Path: []string{"A"}},
			want: "\nTarget not reached: step limit hit after 0 steps at 'A'\nPath: A\nTime taken: 0.00s\n",
		},
		{
			res:  engine.Result{Target: "Z", Status: engine.DeadEnd, Steps: 1, Reason: engine.ReasonAllVisited, Path: []string{"A", "B"}},
			want: "\nTarget not reached: dead end at 'B' (all ranked candidates already visited)\nPath: A -> B\nTime taken: 0.00s\n",
		},
	}
	for _, tc := range cases {
		t.Run(string(tc.res.Status), func(t *testing.T) {
			var buf bytes.Buffer
			printResult(&buf, &tc.res)
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestExitFor(t *testing.T) {
	assert.NoError(t, exitFor(engine.Reached))

	var exit *exitError
	require.ErrorAs(t, exitFor(engine.StepLimitExceeded), &exit)
	assert.Equal(t, exitStepLimit, exit.code)
	require.ErrorAs(t, exitFor(engine.DeadEnd), &exit)
	assert.Equal(t, exitDeadEnd, exit.code)
}

type tableProvider map[string][]string

func (p tableProvider) Exists(_ context.Context, title string) (bool, error) {
	_, ok := p[title]
	return ok, nil
}

func (p tableProvider) Links(_ context.Context, title string) ([]string, error) {
	if title == "Broken" {
		return nil, errors.New("wiki offline")
	}
	return append([]string(nil), p[title]...), nil
}

type flatEmbedder struct{}

func (flatEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1}, nil }

func (flatEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestWalkPairsKeepsOrderAndIsolatesFailures(t *testing.T) {
	cache := linkcache.NewMemoryCache()
	svc := &engine.Service{
		Source: engine.NewLinkSource(cache, tableProvider{
			"A": {"B"},
			"B": {"C"},
			"X": {},
		}, nil),
		Embedder: flatEmbedder{},
		Defaults: engine.DefaultOptions(),
	}
	pairs := []pair{
		{Start: "A", Target: "C"},
		{Start: "Broken", Target: "C"},
		{Start: "X", Target: "C"},
		{Start: "B", Target: "C"},
	}

	outcomes := walkPairs(context.Background(), svc, pairs, 2, func(p pair) engine.Request {
		return engine.Request{Start: p.Start, Target: p.Target}
	})
	require.Len(t, outcomes, 4)

	for i, o := range outcomes {
		assert.Equal(t, pairs[i], o.pair)
	}
	assert.Equal(t, engine.Reached, outcomes[0].result.Status)
	assert.ErrorIs(t, outcomes[1].err, engine.ErrProviderUnavailable)
	assert.Equal(t, engine.DeadEnd, outcomes[2].result.Status)
	assert.Equal(t, engine.Reached, outcomes[3].result.Status)

	var buf bytes.Buffer
	assert.Equal(t, 1, printBatch(&buf, outcomes))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "reached"))
	assert.Contains(t, lines[1], "wiki offline")
	assert.True(t, strings.HasPrefix(lines[2], "dead_end"))

	// A, B and X were fetched once each and shared by the walks.
	assert.Equal(t, 3, cache.Len())
}

func writeCacheConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "links.wal")

	cache, err := linkcache.OpenFile(cachePath, nil)
	require.NoError(t, err)
	_, err = cache.Put("Sport", []string{"Volleyball", "Chess"})
	require.NoError(t, err)
	_, err = cache.Put("Chess", nil)
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf("log_level: error\ncache:\n  backend: file\n  path: %q\n", cachePath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0o644))
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCacheStatsCommand(t *testing.T) {
	out, err := execute(t, "--config", writeCacheConfig(t), "cache", "stats")
	require.NoError(t, err)

	assert.Contains(t, out, "Titles:      2")
	assert.Contains(t, out, "Links:       2")
	assert.Contains(t, out, "Dead ends:   1")
	assert.Contains(t, out, "Most linked: Sport (2)")
}

func TestCacheGetCommand(t *testing.T) {
	cfgPath := writeCacheConfig(t)

	out, err := execute(t, "--config", cfgPath, "cache", "get", "Sport")
	require.NoError(t, err)
	assert.Equal(t, "Volleyball\nChess\n", out)

	_, err = execute(t, "--config", cfgPath, "cache", "get", "Tennis")
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.code)
}

func TestBadConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  top_k: 0\n"), 0o644))

	_, err := execute(t, "--config", path, "cache", "stats")
	assert.ErrorContains(t, err, "top_k")
}
