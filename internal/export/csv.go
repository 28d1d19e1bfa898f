// Package export persists harvested items: tabular CSV output per site per
// run, plus best-effort verbatim archiving of raw detail pages.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/oludev/solar-market-scraper/internal/models"
)

var csvHeader = []string{
	"name", "brand", "model", "price_raw", "price", "currency",
	"product_url", "image_url", "all_image_urls", "description", "specs",
	"rating", "review_count", "availability", "condition", "seller",
	"location", "scraped_at", "source_site", "raw_html_path",
}

// CSVSink writes one CSV file per site per run into outputDir. The open spec
// mapping is serialized as a single JSON-encoded cell rather than expanded
// into columns.
type CSVSink struct {
	outputDir string
}

func NewCSVSink(outputDir string) *CSVSink {
	return &CSVSink{outputDir: outputDir}
}

// Write persists the items for one site and returns the file path. The
// filename is keyed by site name and run timestamp.
func (s *CSVSink) Write(items []*models.Item, siteName string, runAt time.Time) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no items to write for %s", siteName)
	}
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %q: %w", s.outputDir, err)
	}

	filename := filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.csv", siteName, runAt.UTC().Format("20060102_150405")))
	f, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, item := range items {
		record, err := csvRecord(item)
		if err != nil {
			return "", err
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return filename, nil
}

func csvRecord(item *models.Item) ([]string, error) {
	specs, err := json.Marshal(item.Specs)
	if err != nil {
		return nil, fmt.Errorf("encode specs for %q: %w", item.Name, err)
	}
	images, err := json.Marshal(item.ImageURLs)
	if err != nil {
		return nil, fmt.Errorf("encode image urls for %q: %w", item.Name, err)
	}

	return []string{
		item.Name,
		item.Brand,
		item.Model,
		item.PriceRaw,
		formatFloat(item.Price),
		item.Currency,
		item.ProductURL,
		item.ImageURL,
		string(images),
		item.Description,
		string(specs),
		formatFloat(item.Rating),
		formatInt(item.ReviewCount),
		item.Availability,
		item.Condition,
		item.Seller,
		item.Location,
		item.ScrapedAt.Format(time.RFC3339),
		item.SourceSite,
		item.RawHTMLPath,
	}, nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
