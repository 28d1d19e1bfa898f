package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/oludev/solar-market-scraper/internal/models"
)

const maxDetailImages = 10

// Heuristic patterns for spec values buried in free text. They only fill
// gaps: structured table and list values always take precedence.
var (
	wattPattern    = regexp.MustCompile(`(\d{2,4})\s*[Ww]\b`)
	ampHourPattern = regexp.MustCompile(`(\d{2,4})\s*[Aa]h\b`)
	panelTypePattern = regexp.MustCompile(`(?i)(mono(?:crystalline)?|poly(?:crystalline)?|PERC)`)

	brandSeparator = regexp.MustCompile(`[-|/]`)
)

// Enrich fills an item in place from its detail page markup. It never fails:
// whatever cannot be extracted simply keeps its prior value. The heuristics
// run in a fixed order so specific sources (spec tables) beat generic ones
// (regexes over body text).
func Enrich(item *models.Item, markup string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return
	}

	extractDescription(item, doc)
	extractImages(item, doc)
	extractSpecTables(item, doc)
	extractSpecLists(item, doc)
	extractTextHeuristics(item, doc)
	splitBrandModel(item)
}

// extractDescription prefers the meta description tag over description-class
// elements.
func extractDescription(item *models.Item, doc *goquery.Document) {
	if content, ok := doc.Find("meta[name='description']").First().Attr("content"); ok && content != "" {
		item.Description = strings.TrimSpace(content)
		return
	}
	text := strings.TrimSpace(doc.Find(".description, .product-description").First().Text())
	if text != "" {
		item.Description = text
	}
}

// extractImages collects up to maxDetailImages unique image URLs, preferring
// lazy-load sources, and promotes the first to primary image when none is
// set. Very short src values are skipped; they are placeholders, not images.
func extractImages(item *models.Item, doc *goquery.Document) {
	seen := make(map[string]bool)
	var urls []string

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if len(urls) >= maxDetailImages {
			return
		}
		src, _ := img.Attr("data-src")
		if src == "" {
			src, _ = img.Attr("src")
		}
		if len(src) <= 10 {
			return
		}
		src = NormalizeImageURL(src)
		if seen[src] {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	})

	if len(urls) == 0 {
		return
	}
	item.ImageURLs = urls
	if item.ImageURL == "" {
		item.ImageURL = urls[0]
	}
}

// extractSpecTables treats any two-or-more-cell table row as a key/value
// pair. Later rows win on key collision.
func extractSpecTables(item *models.Item, doc *goquery.Document) {
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		key := strings.TrimSpace(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())
		if key != "" {
			item.Specs.Set(key, value)
		}
	})
}

// extractSpecLists splits list items on their first colon. Table-derived keys
// are never overwritten.
func extractSpecLists(item *models.Item, doc *goquery.Document) {
	doc.Find("ul li").Each(func(_ int, li *goquery.Selection) {
		text := strings.TrimSpace(li.Text())
		key, value, found := strings.Cut(text, ":")
		if !found {
			return
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		item.Specs.SetIfAbsent(key, strings.TrimSpace(value))
	})
}

// extractTextHeuristics scans the description plus all paragraph text for
// wattage, amp-hour capacity and cell chemistry mentions. These fill gaps
// only; structured sources always win.
func extractTextHeuristics(item *models.Item, doc *goquery.Document) {
	var blob strings.Builder
	blob.WriteString(item.Description)
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		blob.WriteString(" ")
		blob.WriteString(strings.TrimSpace(p.Text()))
	})
	text := blob.String()

	if m := wattPattern.FindStringSubmatch(text); m != nil {
		item.Specs.SetIfAbsent("Watt", m[1]+" W")
	}
	if m := ampHourPattern.FindStringSubmatch(text); m != nil {
		item.Specs.SetIfAbsent("Capacity", m[1]+" Ah")
	}
	if m := panelTypePattern.FindStringSubmatch(text); m != nil {
		item.Specs.SetIfAbsent("Type", m[1])
	}
}

// splitBrandModel derives brand and model from the item name when it carries
// a hyphen, pipe or slash separator, without touching fields already set.
func splitBrandModel(item *models.Item) {
	if item.Name == "" {
		return
	}
	parts := brandSeparator.Split(item.Name, 2)
	if len(parts) < 2 {
		return
	}
	if item.Brand == "" {
		item.Brand = strings.TrimSpace(parts[0])
	}
	if item.Model == "" {
		item.Model = strings.TrimSpace(parts[1])
	}
}
