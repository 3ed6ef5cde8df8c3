package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"qdb-quote-parser/internal/config"
	"qdb-quote-parser/internal/observability"
)

// RodFetcher загружает страницу через headless Chrome, включается rod.enabled
type RodFetcher struct {
	browser         *rod.Browser
	launcher        *launcher.Launcher
	robotsCache     *RobotsCache
	rateLimiter     *RateLimiter
	pageTimeout     time.Duration
	waitLoadTimeout time.Duration
	logger          *observability.Logger
}

var _ PageFetcher = (*RodFetcher)(nil)

// NewRodFetcher запускает Chrome. При robots == nil создаётся свой кеш robots.txt
func NewRodFetcher(cfg *config.Config, robots *RobotsCache, logger *observability.Logger) (*RodFetcher, error) {
	if robots == nil {
		robots = NewRobotsCache(cfg.GetRobotsCacheTTL(), cfg.HTTP.UserAgent, &http.Client{Timeout: cfg.GetTotalTimeout()}, logger)
	}

	l := launcher.New().Headless(true)
	if cfg.Rod.ChromePath != "" {
		l = l.Bin(cfg.Rod.ChromePath)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	return &RodFetcher{
		browser:         browser,
		launcher:        l,
		robotsCache:     robots,
		rateLimiter:     NewRateLimiter(cfg.RateLimit.RPM, cfg.RateLimit.Burst),
		pageTimeout:     cfg.GetRodPageTimeout(),
		waitLoadTimeout: cfg.GetRodWaitLoadTimeout(),
		logger:          logger,
	}, nil
}

func (f *RodFetcher) Fetch(ctx context.Context, urlStr string) (*FetchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsedURL, err := f.robotsCache.Check(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	if err := f.rateLimiter.Wait(ctx, parsedURL.Host); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	tab, err := f.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}
	defer func() {
		if err := tab.Close(); err != nil {
			f.logger.Warn("Failed to close page", "error", err.Error())
		}
	}()

	page := tab.Context(ctx).Timeout(f.pageTimeout)

	if err := page.Navigate(urlStr); err != nil {
		return nil, fmt.Errorf("navigating to %s: %w", urlStr, err)
	}

	if err := page.Timeout(f.waitLoadTimeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("waiting for load: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading HTML: %w", err)
	}

	info, err := page.Info()
	finalURL := urlStr
	if err == nil && info.URL != "" {
		finalURL = info.URL
	}

	f.logger.Debug("Page rendered", "url", finalURL, "body_bytes", len(html))

	return &FetchResponse{
		StatusCode: 200,
		Body:       []byte(html),
		URL:        finalURL,
	}, nil
}

func (f *RodFetcher) Close() error {
	err := f.browser.Close()
	f.launcher.Kill()
	return err
}
