package caller

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/VyvaHart/system-load-demonstrator/internal/load"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu      sync.Mutex
	queries []url.Values
	status  int
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.queries = append(h.queries, r.URL.Query())
	h.mu.Unlock()
	if r.URL.Path != "/load" || r.Header.Get("X-Request-Id") == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(h.status)
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.MinBurst = 2
	cfg.MaxBurst = 4
	cfg.CallInterval = 0
	cfg.BurstPause = time.Millisecond
	cfg.Bursts = 3
	return cfg
}

func TestRunSendsBursts(t *testing.T) {
	h := &recordingHandler{status: http.StatusOK}
	srv := httptest.NewServer(h)
	defer srv.Close()

	c, err := New(testConfig(srv.URL), zap.NewNop(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background()))

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Bursts)
	assert.Zero(t, stats.Failed)
	assert.GreaterOrEqual(t, stats.Succeeded, int64(6))
	assert.LessOrEqual(t, stats.Succeeded, int64(12))
	assert.Len(t, h.queries, int(stats.Succeeded))

	for _, q := range h.queries {
		_, err := load.ParseRequest(q, load.Limits{MaxIterations: 20, MaxDataSizeMB: 16})
		assert.NoError(t, err, q.Encode())
	}
}

func TestRunCountsFailures(t *testing.T) {
	h := &recordingHandler{status: http.StatusBadRequest}
	srv := httptest.NewServer(h)
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Bursts = 1
	c, err := New(cfg, zap.NewNop(), rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background()))

	stats := c.Stats()
	assert.Zero(t, stats.Succeeded)
	assert.GreaterOrEqual(t, stats.Failed, int64(2))
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(&recordingHandler{status: http.StatusOK})
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Bursts = 0
	cfg.BurstPause = time.Hour
	c, err := New(cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	assert.Eventually(t, func() bool { return c.Stats().Bursts >= 1 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("caller did not stop")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.BaseURL = "not a url" }},
		{"zero burst", func(c *Config) { c.MinBurst = 0 }},
		{"inverted burst", func(c *Config) { c.MinBurst, c.MaxBurst = 5, 4 }},
		{"no iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"negative pause", func(c *Config) { c.BurstPause = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, zap.NewNop(), nil)
			assert.Error(t, err)
		})
	}
}
