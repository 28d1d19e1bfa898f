package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/oludev/solar-market-scraper/internal/useragent"
)

const (
	renderTimeout = 45 * time.Second

	// settleDelay gives deferred scripts a moment to fill the DOM after
	// DOMContentLoaded before the markup is captured.
	settleDelay = time.Second

	viewportWidth  = 1280
	viewportHeight = 800
)

// Renderer fetches pages through headless Chromium. The browser process is
// launched once per site harvest; every Fetch runs in a fresh, isolated
// browsing context that is torn down before returning.
type Renderer struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	agents  useragent.Pool
	logger  *slog.Logger
}

// NewRenderer starts playwright and launches headless Chromium. An error here
// means no rendering engine is available; callers downgrade to the static
// strategy rather than failing the run.
func NewRenderer(agents useragent.Pool, logger *slog.Logger) (*Renderer, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &Renderer{
		pw:      pw,
		browser: browser,
		agents:  agents,
		logger:  logger.With("component", "renderer"),
	}, nil
}

func (r *Renderer) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ua := r.agents.Random()
	browserCtx, err := r.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: &ua,
		Viewport: &playwright.Size{
			Width:  viewportWidth,
			Height: viewportHeight,
		},
	})
	if err != nil {
		return "", fmt.Errorf("new browser context: %w", err)
	}
	defer func() {
		if err := browserCtx.Close(); err != nil {
			r.logger.Warn("failed to close browser context", "error", err)
		}
	}()

	page, err := browserCtx.NewPage()
	if err != nil {
		return "", fmt.Errorf("new page: %w", err)
	}

	// Skip image subresources to save bandwidth; only the markup matters.
	if err := page.Route("**/*.{png,jpg,jpeg,gif,svg,webp}", func(route playwright.Route) {
		route.Abort()
	}); err != nil {
		r.logger.Warn("failed to install image block route", "error", err)
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(renderTimeout.Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("render fetch %s: %w", url, err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(settleDelay):
	}

	content, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("capture content for %s: %w", url, err)
	}
	return content, nil
}

// Close stops the browser and the playwright driver, aggregating any errors.
func (r *Renderer) Close() error {
	var errs []error

	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if r.pw != nil {
		if err := r.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("renderer shutdown: %v", errs)
	}
	return nil
}
