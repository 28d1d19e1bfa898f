package harvest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oludev/solar-market-scraper/internal/metrics"
	"github.com/oludev/solar-market-scraper/internal/ratelimit"
	"github.com/oludev/solar-market-scraper/internal/sites"
)

const testListingPage = `
<html><body>
<div class="product">
  <a href="https://example.com/panel.html"><span class="name">SunKing - 200W Panel</span></a>
  <span class="price">₦45,000</span>
</div>
<div class="product">
  <a href="https://example.com/battery.html"><span class="name">Luminous Battery</span></a>
  <span class="price">₦120,000</span>
</div>
<div class="product">
  <span class="junk">sponsored slot</span>
</div>
</body></html>`

const testDetailPage = `
<html>
<head><meta name="description" content="Detail page description."/></head>
<body>
  <table><tr><td>Warranty</td><td>2 years</td></tr></table>
</body>
</html>`

// fakeFetcher serves canned markup per URL and records every request.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]error
	requests []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:    make(map[string]string),
		failures: make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, url)
	if err, ok := f.failures[url]; ok {
		return "", err
	}
	markup, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("no page for %s", url)
	}
	return markup, nil
}

func (f *fakeFetcher) requestCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.requests {
		if r == url {
			count++
		}
	}
	return count
}

func testSite() *sites.Descriptor {
	return &sites.Descriptor{
		Name: "testsite",
		SeedURLs: []string{
			"https://example.com/list?page=1",
			"https://example.com/list?page=2",
		},
		ListSelector: ".product",
		FieldSelectors: map[string]string{
			"name":        ".name",
			"price":       ".price",
			"product_url": "a",
		},
		MaxPages:      2,
		Concurrency:   2,
		RatePerMinute: 100,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(site *sites.Descriptor, fetcher *fakeFetcher) *Orchestrator {
	limiter := ratelimit.NewTokenBucket(site.RatePerMinute, ratelimit.DefaultWindow)
	return NewOrchestrator(site, fetcher, limiter, nil, metrics.New(), testLogger())
}

func TestOrchestratorRun(t *testing.T) {
	site := testSite()
	fetcher := newFakeFetcher()
	// Both seed pages list the same two products; the third node carries
	// neither a name nor a URL and must never become a stub.
	fetcher.pages["https://example.com/list?page=1"] = testListingPage
	fetcher.pages["https://example.com/list?page=2"] = testListingPage
	fetcher.pages["https://example.com/panel.html"] = testDetailPage
	fetcher.pages["https://example.com/battery.html"] = testDetailPage

	orch := newTestOrchestrator(site, fetcher)
	closed := false
	orch.CloseFunc = func() error {
		closed = true
		return nil
	}

	items := orch.Run(context.Background(), "solar")

	require.Len(t, items, 2)
	assert.Equal(t, "SunKing - 200W Panel", items[0].Name)
	assert.Equal(t, "Luminous Battery", items[1].Name)

	// Enrichment reached both items before deduplication collapsed them.
	assert.Equal(t, "Detail page description.", items[0].Description)
	warranty, ok := items[0].Specs.Get("Warranty")
	require.True(t, ok)
	assert.Equal(t, "2 years", warranty)
	assert.Equal(t, "SunKing", items[0].Brand)

	assert.Equal(t, 1, fetcher.requestCount("https://example.com/list?page=1"))
	assert.Equal(t, 1, fetcher.requestCount("https://example.com/list?page=2"))
	assert.True(t, closed)
	assert.Equal(t, StateDone, orch.State())
}

func TestOrchestratorKeepsItemsWhenDetailFetchFails(t *testing.T) {
	site := testSite()
	site.SeedURLs = site.SeedURLs[:1]
	site.MaxPages = 1

	fetcher := newFakeFetcher()
	fetcher.pages["https://example.com/list?page=1"] = testListingPage
	fetcher.pages["https://example.com/panel.html"] = testDetailPage
	fetcher.failures["https://example.com/battery.html"] = fmt.Errorf("upstream 503")

	orch := newTestOrchestrator(site, fetcher)
	items := orch.Run(context.Background(), "solar")

	require.Len(t, items, 2)
	assert.Equal(t, "Detail page description.", items[0].Description)
	// The failed item keeps its listing-page state.
	assert.Empty(t, items[1].Description)
	assert.Equal(t, "Luminous Battery", items[1].Name)
}

func TestOrchestratorListFailureYieldsNoItems(t *testing.T) {
	site := testSite()
	site.SeedURLs = site.SeedURLs[:1]
	site.MaxPages = 1

	fetcher := newFakeFetcher()
	fetcher.failures["https://example.com/list?page=1"] = fmt.Errorf("timeout")

	orch := newTestOrchestrator(site, fetcher)
	items := orch.Run(context.Background(), "solar")

	assert.Empty(t, items)
	assert.Equal(t, StateDone, orch.State())
}

func TestOrchestratorHonorsCancellation(t *testing.T) {
	site := testSite()
	fetcher := newFakeFetcher()
	fetcher.pages["https://example.com/list?page=1"] = testListingPage
	fetcher.pages["https://example.com/list?page=2"] = testListingPage

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := newTestOrchestrator(site, fetcher)
	items := orch.Run(ctx, "solar")

	assert.Empty(t, items)
}

func TestRandDuration(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := randDuration(time.Second, 2*time.Second)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 2*time.Second)
	}
	assert.Equal(t, time.Second, randDuration(time.Second, time.Second))
}

func TestSleepCtx(t *testing.T) {
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(cancelled, time.Minute))
	assert.False(t, sleepCtx(cancelled, 0))
}
