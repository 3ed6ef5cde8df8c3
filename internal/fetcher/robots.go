package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"qdb-quote-parser/internal/observability"
)

const maxRobotsBytes = 512 * 1024

// RobotsCache кеширует robots.txt по хостам, общий для HTTP и rod фетчеров
type RobotsCache struct {
	cache     map[string]*RobotsTxt
	ttl       time.Duration
	userAgent string
	client    *http.Client
	mu        sync.RWMutex
	logger    *observability.Logger
}

// RobotsTxt: data == nil значит "всё разрешено"
type RobotsTxt struct {
	data      *robotstxt.RobotsData
	expiresAt time.Time
}

func NewRobotsCache(ttl time.Duration, userAgent string, client *http.Client, logger *observability.Logger) *RobotsCache {
	return &RobotsCache{
		cache:     make(map[string]*RobotsTxt),
		ttl:       ttl,
		userAgent: userAgent,
		client:    client,
		logger:    logger,
	}
}

// IsAllowed проверяет путь по robots.txt хоста. При ошибке загрузки считаем разрешённым.
func (rc *RobotsCache) IsAllowed(ctx context.Context, u *url.URL) bool {
	host := u.Host

	rc.mu.RLock()
	cached, exists := rc.cache[host]
	rc.mu.RUnlock()

	if !exists || !time.Now().Before(cached.expiresAt) {
		cached = rc.fetch(ctx, u)

		rc.mu.Lock()
		rc.cache[host] = cached
		rc.mu.Unlock()
	}

	return cached.allows(u, rc.userAgent)
}

// Check возвращает разобранный URL или DisallowedError
func (rc *RobotsCache) Check(ctx context.Context, urlStr string) (*url.URL, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: missing host: %s", urlStr)
	}

	if !rc.IsAllowed(ctx, parsedURL) {
		return nil, &DisallowedError{URL: urlStr}
	}
	return parsedURL, nil
}

func (rc *RobotsCache) fetch(ctx context.Context, u *url.URL) *RobotsTxt {
	robots := &RobotsTxt{expiresAt: time.Now().Add(rc.ttl)}

	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return robots
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		// Сетевая ошибка: разрешаем
		rc.logger.Warn("robots.txt fetch failed", "url", robotsURL, "error", err.Error())
		return robots
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			rc.logger.Warn("Failed to close response body", "error", err.Error())
		}
	}()

	// Нет robots.txt или сервер отвечает ошибкой: разрешаем
	if resp.StatusCode != http.StatusOK {
		return robots
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return robots
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		rc.logger.Warn("robots.txt parse failed", "url", robotsURL, "error", err.Error())
		return robots
	}
	robots.data = data
	return robots
}

func (r *RobotsTxt) allows(u *url.URL, userAgent string) bool {
	if r.data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return r.data.TestAgent(path, userAgent)
}
