// Package metrics bundles the Prometheus collectors for a harvest run on a
// dedicated registry, optionally exposed over HTTP when configured.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry       *prometheus.Registry
	FetchesTotal   *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
	ItemsHarvested *prometheus.CounterVec
	ExportFailures prometheus.Counter
}

// New constructs and registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_fetches_total",
			Help: "Page fetches by site, phase and outcome.",
		},
		[]string{"site", "phase", "status"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_fetch_duration_seconds",
			Help:    "Latency of page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_items_total",
			Help: "Deduplicated items harvested per site.",
		},
		[]string{"site"},
	)
	exportFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_export_failures_total",
			Help: "Export sink write failures.",
		},
	)

	registry.MustRegister(fetches, fetchDuration, items, exportFailures)

	return &Metrics{
		Registry:       registry,
		FetchesTotal:   fetches,
		FetchDuration:  fetchDuration,
		ItemsHarvested: items,
		ExportFailures: exportFailures,
	}
}

// IncFetch records one fetch outcome. All methods are nil-safe so callers can
// run without metrics wired.
func (m *Metrics) IncFetch(site, phase, status string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(site, phase, status).Inc()
}

func (m *Metrics) ObserveFetchDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) AddItems(site string, n int) {
	if m == nil {
		return
	}
	m.ItemsHarvested.WithLabelValues(site).Add(float64(n))
}

func (m *Metrics) IncExportFailure() {
	if m == nil {
		return
	}
	m.ExportFailures.Inc()
}
