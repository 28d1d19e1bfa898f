// Package extract turns raw marketplace markup into items: list pages yield
// partially populated stubs, detail pages enrich them. Selector misses are
// absent values, never errors — third-party markup changes constantly and the
// harvest must degrade instead of aborting.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/oludev/solar-market-scraper/internal/models"
	"github.com/oludev/solar-market-scraper/internal/sites"
)

// ListStubs parses one listing page and returns a stub item per matched list
// node. Nodes yielding neither a name nor a product URL are dropped.
func ListStubs(markup string, site *sites.Descriptor, pageURL string) ([]*models.Item, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse listing page %s: %w", pageURL, err)
	}

	var items []*models.Item
	doc.Find(site.ListSelector).Each(func(_ int, node *goquery.Selection) {
		item := stubFromNode(node, site, pageURL)
		if item.HasIdentity() {
			items = append(items, item)
		}
	})
	return items, nil
}

func stubFromNode(node *goquery.Selection, site *sites.Descriptor, pageURL string) *models.Item {
	sel := site.FieldSelectors

	item := models.NewItem(site.Name)
	item.Name = selectText(node, sel["name"])
	item.PriceRaw = selectText(node, sel["price"])
	item.NormalizePrice()

	if href := selectAttr(node, sel["product_url"], "href"); href != "" {
		item.ProductURL = resolveURL(pageURL, href)
	}

	image := selectAttr(node, sel["image"], "src")
	if image == "" {
		image = selectAttr(node, sel["image"], "data-src")
	}
	item.ImageURL = NormalizeImageURL(image)

	return item
}

// selectText resolves a selector to the trimmed text of its first match.
// Empty selectors and missed matches both yield "".
func selectText(node *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(node.Find(selector).First().Text())
}

// selectAttr resolves a selector to an attribute of its first match.
func selectAttr(node *goquery.Selection, selector, attr string) string {
	if selector == "" {
		return ""
	}
	value, _ := node.Find(selector).First().Attr(attr)
	return strings.TrimSpace(value)
}

// resolveURL joins a possibly-relative href against the page's own URL.
func resolveURL(pageURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// NormalizeImageURL upgrades protocol-relative image sources to https.
func NormalizeImageURL(src string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}
