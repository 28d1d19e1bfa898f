package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Item is the accumulator for one discovered product. A listing page creates
// it with whatever fields the list selectors yielded; the detail enricher
// fills in the rest in place. After a site's harvest completes the item is
// treated as read-only.
type Item struct {
	Name        string    `json:"name"`
	Brand       string    `json:"brand,omitempty"`
	Model       string    `json:"model,omitempty"`
	PriceRaw    string    `json:"price_raw,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	ProductURL  string    `json:"product_url,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	ImageURLs   []string  `json:"all_image_urls,omitempty"`
	Description string    `json:"description,omitempty"`
	Specs       *SpecMap  `json:"specs,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	ReviewCount *int      `json:"review_count,omitempty"`
	Availability string   `json:"availability,omitempty"`
	Condition   string    `json:"condition,omitempty"`
	Seller      string    `json:"seller,omitempty"`
	Location    string    `json:"location,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at"`
	SourceSite  string    `json:"source_site"`
	RawHTMLPath string    `json:"raw_html_path,omitempty"`
}

// NewItem creates an item in its pre-enrichment state.
func NewItem(site string) *Item {
	return &Item{
		SourceSite: site,
		Specs:      NewSpecMap(),
		ScrapedAt:  time.Now().UTC(),
	}
}

// NormalizePrice parses PriceRaw into Price and Currency. It is idempotent:
// once Price is set, further calls are no-ops, so a re-parse can never
// clobber an earlier result. An unparsable string leaves Price nil and still
// records the inferred currency.
func (it *Item) NormalizePrice() {
	if it.PriceRaw == "" || it.Price != nil {
		return
	}
	value, currency := ParsePrice(it.PriceRaw)
	it.Price = value
	it.Currency = currency
}

var nonPriceChars = regexp.MustCompile(`[^\d.,]`)

// ParsePrice extracts a numeric value and a currency code from a raw price
// string such as "₦1,250,000" or "$45.99". Strings without digits yield a nil
// value; the currency defaults to NGN for the markets this scraper targets.
func ParsePrice(raw string) (*float64, string) {
	if raw == "" {
		return nil, ""
	}

	currency := "NGN"
	if strings.Contains(raw, "$") {
		currency = "USD"
	}
	if strings.Contains(raw, "₦") {
		currency = "NGN"
	}

	digits := nonPriceChars.ReplaceAllString(raw, "")
	digits = strings.ReplaceAll(digits, ",", "")
	if digits == "" {
		return nil, currency
	}

	value, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil, currency
	}
	return &value, currency
}

// HasIdentity reports whether the item carries enough data to be kept: a
// name or a product URL. All-absent list nodes are dropped before they ever
// become items.
func (it *Item) HasIdentity() bool {
	return it.Name != "" || it.ProductURL != ""
}

// IdentityKey is the signal used to collapse duplicates: the product URL
// when present, otherwise name plus parsed price. The fallback can conflate
// distinct same-named, same-priced products from different sellers; that is
// a known precision limitation kept deliberately until a stronger signal
// exists.
func (it *Item) IdentityKey() string {
	if it.ProductURL != "" {
		return it.ProductURL
	}
	price := "none"
	if it.Price != nil {
		price = strconv.FormatFloat(*it.Price, 'f', -1, 64)
	}
	return it.Name + "_" + price
}
