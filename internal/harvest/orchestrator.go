// Package harvest drives the scraping pipeline: one orchestrator per site
// pulls listing pages, enriches stubs from their detail pages and
// deduplicates the result; the run coordinator walks the configured sites
// sequentially and hands each site's items to the export sinks.
package harvest

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oludev/solar-market-scraper/internal/export"
	"github.com/oludev/solar-market-scraper/internal/extract"
	"github.com/oludev/solar-market-scraper/internal/fetch"
	"github.com/oludev/solar-market-scraper/internal/metrics"
	"github.com/oludev/solar-market-scraper/internal/models"
	"github.com/oludev/solar-market-scraper/internal/ratelimit"
	"github.com/oludev/solar-market-scraper/internal/sites"
)

// State tracks where a site harvest is in its lifecycle. Transitions are
// strictly forward: idle → fetching-lists → enriching-details → closing → done.
type State string

const (
	StateIdle      State = "idle"
	StateFetching  State = "fetching-lists"
	StateEnriching State = "enriching-details"
	StateClosing   State = "closing"
	StateDone      State = "done"
)

// Delay bounds for the politeness pause after each detail-page visit.
const (
	detailPauseMin = 500 * time.Millisecond
	detailPauseMax = 1700 * time.Millisecond
)

// Orchestrator runs one site's full harvest. It owns the site's fetch
// resources and its rate limiter; neither is shared with other sites.
type Orchestrator struct {
	site     *sites.Descriptor
	fetcher  fetch.Fetcher
	limiter  *ratelimit.TokenBucket
	archiver *export.Archiver
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// CloseFunc tears down the fetch resources (browser, HTTP session) in
	// the closing state. Errors are logged and swallowed so harvested items
	// are always returned.
	CloseFunc func() error

	state State
}

func NewOrchestrator(site *sites.Descriptor, fetcher fetch.Fetcher, limiter *ratelimit.TokenBucket, archiver *export.Archiver, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		site:     site,
		fetcher:  fetcher,
		limiter:  limiter,
		archiver: archiver,
		metrics:  m,
		logger:   logger.With("component", "orchestrator", "site", site.Name),
		state:    StateIdle,
	}
}

func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.state = s
	o.logger.Debug("state transition", "state", string(s))
}

// Run performs the full harvest for the orchestrator's site and returns the
// deduplicated items. Individual fetch failures are logged and skipped; Run
// itself only returns early when the context is cancelled, and even then it
// returns whatever was collected.
func (o *Orchestrator) Run(ctx context.Context, query string) []*models.Item {
	seeds := o.site.ExpandSeeds(query)
	o.logger.Info("starting harvest", "seeds", len(seeds), "concurrency", o.site.Concurrency)

	o.setState(StateFetching)
	stubs := o.fetchListPages(ctx, seeds)

	o.setState(StateEnriching)
	o.enrichDetails(ctx, stubs)

	o.setState(StateClosing)
	if o.CloseFunc != nil {
		if err := o.CloseFunc(); err != nil {
			o.logger.Warn("fetcher teardown failed", "error", err)
		}
	}

	items := Deduplicate(stubs)
	o.metrics.AddItems(o.site.Name, len(items))
	o.setState(StateDone)
	o.logger.Info("harvest finished", "stubs", len(stubs), "items", len(items))
	return items
}

// fetchListPages visits every seed URL concurrently, gated by the site's
// semaphore and rate limiter, and collects the stub items. A randomized delay
// separates successive task submissions; the first task starts immediately.
func (o *Orchestrator) fetchListPages(ctx context.Context, seeds []string) []*models.Item {
	sem := make(chan struct{}, o.site.Concurrency)

	var mu sync.Mutex
	var stubs []*models.Item
	var wg sync.WaitGroup

	for i, seed := range seeds {
		if i > 0 {
			if !sleepCtx(ctx, randDuration(o.site.DelayMin, o.site.DelayMax)) {
				break
			}
		}

		wg.Add(1)
		go func(url string) {
			defer wg.Done()

			markup, ok := o.gatedFetch(ctx, sem, url, "list")
			if !ok {
				return
			}

			items, err := extract.ListStubs(markup, o.site, url)
			if err != nil {
				o.logger.Warn("listing parse failed", "url", url, "error", err)
				return
			}
			o.logger.Info("listing parsed", "url", url, "stubs", len(items))

			mu.Lock()
			stubs = append(stubs, items...)
			mu.Unlock()
		}(seed)
	}

	wg.Wait()
	return stubs
}

// enrichDetails visits every stub's detail page in fixed-size batches of
// twice the concurrency cap, keeping the in-flight task count bounded for
// large result sets. Items whose detail fetch fails stay in their
// pre-enrichment state and are still kept.
func (o *Orchestrator) enrichDetails(ctx context.Context, stubs []*models.Item) {
	var pending []*models.Item
	for _, item := range stubs {
		if item.ProductURL != "" {
			pending = append(pending, item)
		}
	}
	if len(pending) == 0 {
		return
	}

	sem := make(chan struct{}, o.site.Concurrency)
	batchSize := o.site.Concurrency * 2

	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))

		var wg sync.WaitGroup
		for _, item := range pending[start:end] {
			wg.Add(1)
			go func(item *models.Item) {
				defer wg.Done()
				o.enrichOne(ctx, sem, item)
			}(item)
		}
		wg.Wait()

		if ctx.Err() != nil {
			return
		}
	}
}

func (o *Orchestrator) enrichOne(ctx context.Context, sem chan struct{}, item *models.Item) {
	markup, ok := o.gatedFetch(ctx, sem, item.ProductURL, "detail")
	if !ok {
		return
	}

	if o.archiver != nil {
		if path := o.archiver.Save(markup, o.site.Name, item.Name); path != "" {
			item.RawHTMLPath = path
		}
	}

	extract.Enrich(item, markup)
	sleepCtx(ctx, randDuration(detailPauseMin, detailPauseMax))
}

// gatedFetch acquires the semaphore and a rate-limit token, then fetches the
// URL. A failed fetch is logged and reported as no content.
func (o *Orchestrator) gatedFetch(ctx context.Context, sem chan struct{}, url, phase string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return "", false
	}
	defer func() { <-sem }()

	if err := o.limiter.Acquire(ctx); err != nil {
		return "", false
	}

	o.logger.Info("fetching", "phase", phase, "url", url)
	start := time.Now()
	markup, err := o.fetcher.Fetch(ctx, url)
	o.metrics.ObserveFetchDuration(time.Since(start))
	if err != nil {
		o.metrics.IncFetch(o.site.Name, phase, "error")
		o.logger.Warn("fetch failed", "phase", phase, "url", url, "error", err)
		return "", false
	}
	o.metrics.IncFetch(o.site.Name, phase, "ok")
	return markup, true
}

func randDuration(minD, maxD time.Duration) time.Duration {
	if maxD <= minD {
		return minD
	}
	return minD + time.Duration(rand.Int63n(int64(maxD-minD)))
}

// sleepCtx waits for d and reports false when the context was cancelled
// first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
