package sites

import (
	"fmt"
	"strings"
	"time"
)

// Descriptor is the hand-authored configuration for one target marketplace.
// It is immutable for the duration of a run and shared read-only across all
// tasks for that site.
type Descriptor struct {
	Name string

	// SeedURLs are visited in order up to MaxPages. A "{query}" placeholder
	// is substituted once per run with the configured search query.
	SeedURLs []string

	// ListSelector matches one node per product summary on a listing page.
	ListSelector string

	// FieldSelectors are resolved relative to a matched list node.
	// Recognized keys: name, price, product_url, image.
	FieldSelectors map[string]string

	// RequiresRender marks sites whose listings only materialize after
	// client-side scripts run.
	RequiresRender bool

	MaxPages   int
	DelayMin   time.Duration
	DelayMax   time.Duration
	Concurrency int

	// RatePerMinute is the token bucket capacity refilled every 60 seconds.
	RatePerMinute int
}

func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("site name cannot be empty")
	}
	if len(d.SeedURLs) == 0 {
		return fmt.Errorf("site %s: at least one seed URL is required", d.Name)
	}
	if d.ListSelector == "" {
		return fmt.Errorf("site %s: list selector cannot be empty", d.Name)
	}
	if d.Concurrency < 1 {
		return fmt.Errorf("site %s: concurrency must be at least 1", d.Name)
	}
	if d.RatePerMinute < 1 {
		return fmt.Errorf("site %s: rate per minute must be at least 1", d.Name)
	}
	if d.DelayMin < 0 || d.DelayMax < 0 {
		return fmt.Errorf("site %s: delays cannot be negative", d.Name)
	}
	if d.DelayMin > d.DelayMax {
		return fmt.Errorf("site %s: min delay (%s) cannot exceed max delay (%s)", d.Name, d.DelayMin, d.DelayMax)
	}
	if d.MaxPages < 1 {
		return fmt.Errorf("site %s: max pages must be at least 1", d.Name)
	}
	return nil
}

// ExpandSeeds substitutes the search query into seed URLs carrying a
// "{query}" placeholder and caps the result at MaxPages. Spaces in the query
// become "+" so the URLs stay valid.
func (d *Descriptor) ExpandSeeds(query string) []string {
	if query == "" {
		query = "solar"
	}
	encoded := strings.ReplaceAll(query, " ", "+")

	seeds := make([]string, 0, len(d.SeedURLs))
	for _, u := range d.SeedURLs {
		seeds = append(seeds, strings.ReplaceAll(u, "{query}", encoded))
	}
	if len(seeds) > d.MaxPages {
		seeds = seeds[:d.MaxPages]
	}
	return seeds
}

// Defaults returns the built-in catalog of Nigerian solar marketplaces.
func Defaults() []*Descriptor {
	return []*Descriptor{
		{
			Name: "jumia",
			SeedURLs: []string{
				"https://www.jumia.com.ng/catalog/?q=solar+battery/",
				"https://www.jumia.com.ng/catalog/?q=solar+panel/",
				"https://www.jumia.com.ng/catalog/?q=solar+inverter/",
			},
			ListSelector: "article.prd",
			FieldSelectors: map[string]string{
				"name":        ".info .name, .name",
				"price":       ".prc, .price",
				"product_url": "a.core, a[href]",
				"image":       ".img img",
			},
			RequiresRender: false,
			MaxPages:       3,
			DelayMin:       1 * time.Second,
			DelayMax:       2500 * time.Millisecond,
			Concurrency:    3,
			RatePerMinute:  100,
		},
		{
			Name: "konga",
			SeedURLs: []string{
				"https://www.konga.com/search?search={query}",
			},
			ListSelector: ".product",
			FieldSelectors: map[string]string{
				"name":        ".name, .product-title",
				"price":       ".price, .sale-price",
				"product_url": "a",
				"image":       "img",
			},
			RequiresRender: true,
			MaxPages:       2,
			DelayMin:       2500 * time.Millisecond,
			DelayMax:       4 * time.Second,
			Concurrency:    2,
			RatePerMinute:  30,
		},
		{
			Name: "jiji",
			SeedURLs: []string{
				"https://jiji.ng/search?query={query}",
				"https://jiji.ng/solar-panels",
			},
			ListSelector: ".qa-advert-list-item, [data-cy='ad-card']",
			FieldSelectors: map[string]string{
				"name":        ".qa-advert-list-title, [data-cy='ad-title']",
				"price":       ".qa-advert-price, [data-cy='ad-price']",
				"product_url": "a[href*='/ad/']",
				"image":       ".qa-advert-list-photo img",
			},
			RequiresRender: true,
			MaxPages:       2,
			DelayMin:       3 * time.Second,
			DelayMax:       5 * time.Second,
			Concurrency:    2,
			RatePerMinute:  25,
		},
	}
}
