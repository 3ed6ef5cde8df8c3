package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdb-quote-parser/internal/config"
	"qdb-quote-parser/internal/observability"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Backoff = config.BackoffConfig{MinMS: 1, MaxMS: 5, JitterPct: 0}
	cfg.RateLimit = config.RateLimitConfig{RPM: 60000, Burst: 10}
	cfg.HTTP.MaxRetries = 2
	return cfg
}

func TestBackoffCalculation(t *testing.T) {
	cfg := config.Default()
	cfg.Backoff = config.BackoffConfig{MinMS: 250, MaxMS: 2000, JitterPct: 20}

	f := NewFetcher(cfg, observability.Nop())

	for attempt := 1; attempt <= 40; attempt++ {
		backoff := f.calculateBackoff(attempt)
		if backoff < cfg.GetBackoffMin() || backoff > cfg.GetBackoffMax()*2 {
			t.Errorf("Backoff out of expected range at attempt %d: %v", attempt, backoff)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(6000, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, rl.Wait(ctx, "example.com"))
	}
	// 100 запросов в секунду: 4 ожидания по ~10ms
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRateLimiterCanceled(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	require.NoError(t, rl.Wait(context.Background(), "example.com"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rl.Wait(ctx, "example.com"))
}

func TestFetch(t *testing.T) {
	t.Run("returns body and sends headers", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/robots.txt" {
				http.NotFound(w, r)
				return
			}
			assert.Equal(t, "qdb-quote-parser/1.0", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(`<span class="qt">hi</span>`))
		}))
		defer srv.Close()

		f := NewFetcher(testConfig(), observability.Nop())
		resp, err := f.Fetch(context.Background(), srv.URL+"/random")

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `<span class="qt">hi</span>`, string(resp.Body))
	})

	t.Run("decodes gzip", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			_, _ = gz.Write([]byte("compressed page"))
			_ = gz.Close()
		}))
		defer srv.Close()

		f := NewFetcher(testConfig(), observability.Nop())
		resp, err := f.Fetch(context.Background(), srv.URL+"/random")

		require.NoError(t, err)
		assert.Equal(t, "compressed page", string(resp.Body))
	})

	t.Run("retries on 503", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/robots.txt" {
				http.NotFound(w, r)
				return
			}
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		f := NewFetcher(testConfig(), observability.Nop())
		resp, err := f.Fetch(context.Background(), srv.URL+"/random")

		require.NoError(t, err)
		assert.Equal(t, "ok", string(resp.Body))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up after retries", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		f := NewFetcher(testConfig(), observability.Nop())
		_, err := f.Fetch(context.Background(), srv.URL+"/random")

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	})

	t.Run("does not retry 404", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/random" {
				calls.Add(1)
			}
			http.NotFound(w, r)
		}))
		defer srv.Close()

		f := NewFetcher(testConfig(), observability.Nop())
		_, err := f.Fetch(context.Background(), srv.URL+"/random")

		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("respects robots.txt", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/robots.txt" {
				_, _ = w.Write([]byte("User-agent: *\nDisallow: /random\n"))
				return
			}
			t.Errorf("unexpected request to %s", r.URL.Path)
		}))
		defer srv.Close()

		f := NewFetcher(testConfig(), observability.Nop())
		_, err := f.Fetch(context.Background(), srv.URL+"/random")

		var disallowed *DisallowedError
		assert.True(t, errors.As(err, &disallowed))
	})

	t.Run("invalid url", func(t *testing.T) {
		f := NewFetcher(testConfig(), observability.Nop())
		_, err := f.Fetch(context.Background(), "not a url")
		assert.Error(t, err)
	})
}

func robotsServer(t *testing.T, robots string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			t.Errorf("unexpected request to %s", r.URL.Path)
			return
		}
		if calls != nil {
			calls.Add(1)
		}
		_, _ = w.Write([]byte(robots))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRobotsCacheRules(t *testing.T) {
	robots := `
# comment
User-agent: googlebot
Disallow: /

User-agent: *
Disallow: /admin
Disallow: /random
Allow: /random/ok
`
	srv := robotsServer(t, robots, nil)

	tests := []struct {
		agent string
		path  string
		want  bool
	}{
		{"qdb-quote-parser/1.0", "/", true},
		{"qdb-quote-parser/1.0", "/admin/x", false},
		{"qdb-quote-parser/1.0", "/random", false},
		{"qdb-quote-parser/1.0", "/random/ok", true},
		{"Googlebot/2.1", "/top", false},
	}

	for _, tt := range tests {
		rc := NewRobotsCache(time.Hour, tt.agent, srv.Client(), observability.Nop())
		u, err := url.Parse(srv.URL + tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, rc.IsAllowed(context.Background(), u), "agent=%s path=%s", tt.agent, tt.path)
	}
}

func TestRobotsCacheReusesEntry(t *testing.T) {
	var calls atomic.Int32
	srv := robotsServer(t, "User-agent: *\nDisallow: /private\n", &calls)

	u, err := url.Parse(srv.URL + "/random")
	require.NoError(t, err)

	rc := NewRobotsCache(time.Hour, "test", srv.Client(), observability.Nop())
	assert.True(t, rc.IsAllowed(context.Background(), u))
	assert.True(t, rc.IsAllowed(context.Background(), u))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRobotsCacheFailOpen(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			rc := NewRobotsCache(time.Hour, "test", srv.Client(), observability.Nop())
			_, err := rc.Check(context.Background(), srv.URL+"/random")
			assert.NoError(t, err)
		})
	}

	t.Run("network error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		rc := NewRobotsCache(time.Hour, "test", &http.Client{Timeout: time.Second}, observability.Nop())
		_, err := rc.Check(context.Background(), addr+"/random")
		assert.NoError(t, err)
	})
}

func TestRobotsCacheCheck(t *testing.T) {
	srv := robotsServer(t, "User-agent: *\nDisallow: /random\n", nil)
	rc := NewRobotsCache(time.Hour, "qdb-quote-parser/1.0", srv.Client(), observability.Nop())

	_, err := rc.Check(context.Background(), srv.URL+"/random")
	var disallowed *DisallowedError
	assert.True(t, errors.As(err, &disallowed))

	u, err := rc.Check(context.Background(), srv.URL+"/top")
	require.NoError(t, err)
	assert.Equal(t, "/top", u.Path)

	_, err = rc.Check(context.Background(), "no host here")
	assert.Error(t, err)
}

func TestRodFetcherRespectsRobots(t *testing.T) {
	srv := robotsServer(t, "User-agent: *\nDisallow: /random\n", nil)

	// Браузер не нужен: запрещённый URL отсекается до открытия страницы
	f := &RodFetcher{
		robotsCache: NewRobotsCache(time.Hour, "qdb-quote-parser/1.0", srv.Client(), observability.Nop()),
		rateLimiter: NewRateLimiter(60000, 1),
		logger:      observability.Nop(),
	}

	_, err := f.Fetch(context.Background(), srv.URL+"/random")
	var disallowed *DisallowedError
	assert.True(t, errors.As(err, &disallowed))
}

func TestFetcherSharesRobotsCache(t *testing.T) {
	f := NewFetcher(testConfig(), observability.Nop())
	assert.Same(t, f.robotsCache, f.Robots())
}
