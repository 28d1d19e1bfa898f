// Package fetch resolves URLs to raw markup. Two strategies exist: a plain
// HTTP GET for static sites and a headless Chromium render for sites whose
// listings only exist after scripts run. The orchestrator picks one strategy
// per site for the whole run.
package fetch

import "context"

// Fetcher resolves a URL to page markup. A failed fetch returns an error that
// the caller logs and treats as "no content"; the fetcher itself never
// retries.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
