package harvest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/oludev/solar-market-scraper/internal/export"
	"github.com/oludev/solar-market-scraper/internal/fetch"
	"github.com/oludev/solar-market-scraper/internal/metrics"
	"github.com/oludev/solar-market-scraper/internal/models"
	"github.com/oludev/solar-market-scraper/internal/ratelimit"
	"github.com/oludev/solar-market-scraper/internal/sites"
	"github.com/oludev/solar-market-scraper/internal/useragent"
)

// defaultSiteGap is the polite pause between consecutive site harvests.
const defaultSiteGap = 2 * time.Second

// ExportSink persists one site's deduplicated items to tabular storage.
type ExportSink interface {
	Write(items []*models.Item, siteName string, runAt time.Time) (string, error)
}

// ItemStore is the optional structured persistence sink.
type ItemStore interface {
	SaveItems(ctx context.Context, items []*models.Item) error
}

// EventPublisher is the optional downstream event stream.
type EventPublisher interface {
	PublishItems(ctx context.Context, site string, items []*models.Item) error
}

// SiteResult summarizes one site's harvest.
type SiteResult struct {
	Site  string
	Items int
	File  string
}

// Summary is the overall outcome of a run, reported regardless of how many
// individual fetches failed.
type Summary struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Results  []SiteResult
}

// TotalItems sums the per-site item counts.
func (s *Summary) TotalItems() int {
	total := 0
	for _, r := range s.Results {
		total += r.Items
	}
	return total
}

// Coordinator iterates the configured sites strictly sequentially, building
// one orchestrator per site and feeding each result to the sinks. One site's
// failure never prevents the next site from running.
type Coordinator struct {
	query   string
	siteGap time.Duration

	sink      ExportSink
	archiver  *export.Archiver
	store     ItemStore
	publisher EventPublisher
	metrics   *metrics.Metrics
	agents    useragent.Pool
	logger    *slog.Logger
}

func NewCoordinator(query string, sink ExportSink, archiver *export.Archiver, store ItemStore, publisher EventPublisher, m *metrics.Metrics, agents useragent.Pool, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		query:     query,
		siteGap:   defaultSiteGap,
		sink:      sink,
		archiver:  archiver,
		store:     store,
		publisher: publisher,
		metrics:   m,
		agents:    agents,
		logger:    logger.With("component", "coordinator"),
	}
}

// Run harvests every descriptor in order and returns the run summary.
func (c *Coordinator) Run(ctx context.Context, descriptors []*sites.Descriptor) *Summary {
	summary := &Summary{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
	}
	c.logger.Info("run starting", "run_id", summary.RunID, "sites", len(descriptors), "query", c.query)

	// Once the rendering engine fails to start it stays off for the whole
	// run; affected sites fall back to static fetches.
	renderUnavailable := false

	for i, site := range descriptors {
		if i > 0 {
			if !sleepCtx(ctx, c.siteGap) {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		if err := site.Validate(); err != nil {
			c.logger.Error("skipping invalid site descriptor", "error", err)
			continue
		}

		items := c.harvestSite(ctx, site, &renderUnavailable)
		result := SiteResult{Site: site.Name, Items: len(items)}

		if len(items) > 0 {
			result.File = c.exportSite(ctx, site.Name, items, summary.Started)
		}
		summary.Results = append(summary.Results, result)
	}

	summary.Duration = time.Since(summary.Started)
	c.logger.Info("run finished", "run_id", summary.RunID, "items", summary.TotalItems(), "duration", summary.Duration)
	return summary
}

func (c *Coordinator) harvestSite(ctx context.Context, site *sites.Descriptor, renderUnavailable *bool) []*models.Item {
	static := fetch.NewStaticFetcher(c.agents, c.logger)

	var fetcher fetch.Fetcher = static
	closers := []func() error{func() error { static.Close(); return nil }}

	if site.RequiresRender && !*renderUnavailable {
		renderer, err := fetch.NewRenderer(c.agents, c.logger)
		if err != nil {
			*renderUnavailable = true
			c.logger.Warn("rendering engine unavailable, using static fetches for the rest of the run", "error", err)
		} else {
			fetcher = renderer
			closers = append(closers, renderer.Close)
		}
	}

	limiter := ratelimit.NewTokenBucket(site.RatePerMinute, ratelimit.DefaultWindow)
	orch := NewOrchestrator(site, fetcher, limiter, c.archiver, c.metrics, c.logger)
	orch.CloseFunc = func() error {
		var last error
		for _, close := range closers {
			if err := close(); err != nil {
				last = err
			}
		}
		return last
	}

	return orch.Run(ctx, c.query)
}

// exportSite feeds the site's items to every configured sink. Sink failures
// are logged and swallowed; the items were already harvested and the next
// site must still run.
func (c *Coordinator) exportSite(ctx context.Context, siteName string, items []*models.Item, runAt time.Time) string {
	file, err := c.sink.Write(items, siteName, runAt)
	if err != nil {
		c.metrics.IncExportFailure()
		c.logger.Error("export failed, results for site not persisted", "site", siteName, "error", err)
		file = ""
	} else {
		c.logger.Info("exported items", "site", siteName, "count", len(items), "file", file)
	}

	if c.store != nil {
		if err := c.store.SaveItems(ctx, items); err != nil {
			c.metrics.IncExportFailure()
			c.logger.Error("database save failed", "site", siteName, "error", err)
		}
	}

	if c.publisher != nil {
		if err := c.publisher.PublishItems(ctx, siteName, items); err != nil {
			c.logger.Error("event publish failed", "site", siteName, "error", err)
		}
	}

	return file
}
