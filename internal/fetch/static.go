package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/oludev/solar-market-scraper/internal/useragent"
)

const staticTimeout = 30 * time.Second

// StaticFetcher issues single HTTP GETs with a randomized user agent. The
// underlying client is created lazily on first use and shared for the rest of
// the run; Close releases its idle connections.
type StaticFetcher struct {
	agents useragent.Pool
	logger *slog.Logger

	once   sync.Once
	client *http.Client
}

func NewStaticFetcher(agents useragent.Pool, logger *slog.Logger) *StaticFetcher {
	return &StaticFetcher{
		agents: agents,
		logger: logger.With("component", "static_fetcher"),
	}
}

func (f *StaticFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.once.Do(func() {
		f.client = &http.Client{Timeout: staticTimeout}
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", f.agents.Random())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("static fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("static fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body for %s: %w", url, err)
	}
	return string(body), nil
}

// Close releases the shared connection pool. Safe to call when no fetch ever
// happened.
func (f *StaticFetcher) Close() {
	if f.client != nil {
		f.client.CloseIdleConnections()
	}
}
