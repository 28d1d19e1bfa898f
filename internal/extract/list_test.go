package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oludev/solar-market-scraper/internal/sites"
)

func listSite() *sites.Descriptor {
	return &sites.Descriptor{
		Name:         "testsite",
		ListSelector: ".product",
		FieldSelectors: map[string]string{
			"name":        ".name",
			"price":       ".price",
			"product_url": "a",
			"image":       "img",
		},
	}
}

const listingPage = `
<html><body>
<div class="product">
  <a href="/solar-panel-200w.html"><span class="name">SunKing - 200W Panel</span></a>
  <span class="price">₦45,000</span>
  <img src="//cdn.example.com/img/panel200.jpg"/>
</div>
<div class="product">
  <a href="https://www.example.com/battery.html"><span class="name">Luminous Battery</span></a>
  <span class="price">Contact for price</span>
  <img data-src="https://cdn.example.com/img/battery.jpg"/>
</div>
<div class="product">
  <span class="price">₦9,999</span>
</div>
</body></html>`

func TestListStubs(t *testing.T) {
	stubs, err := ListStubs(listingPage, listSite(), "https://www.example.com/catalog?q=solar")
	require.NoError(t, err)

	// The third node has neither a name nor a product URL and is dropped.
	require.Len(t, stubs, 2)

	first := stubs[0]
	assert.Equal(t, "SunKing - 200W Panel", first.Name)
	assert.Equal(t, "https://www.example.com/solar-panel-200w.html", first.ProductURL)
	assert.Equal(t, "https://cdn.example.com/img/panel200.jpg", first.ImageURL)
	require.NotNil(t, first.Price)
	assert.InDelta(t, 45000, *first.Price, 0.001)
	assert.Equal(t, "NGN", first.Currency)
	assert.Equal(t, "testsite", first.SourceSite)

	second := stubs[1]
	assert.Equal(t, "Luminous Battery", second.Name)
	assert.Equal(t, "https://www.example.com/battery.html", second.ProductURL)
	assert.Equal(t, "https://cdn.example.com/img/battery.jpg", second.ImageURL)
	assert.Nil(t, second.Price)
}

func TestListStubsNoMatches(t *testing.T) {
	stubs, err := ListStubs("<html><body><p>nothing here</p></body></html>", listSite(), "https://example.com")
	require.NoError(t, err)
	assert.Empty(t, stubs)
}

func TestNormalizeImageURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a.jpg", NormalizeImageURL("//cdn.example.com/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", NormalizeImageURL("https://cdn.example.com/a.jpg"))
	assert.Equal(t, "", NormalizeImageURL(""))
}

func TestResolveURLKeepsAbsolute(t *testing.T) {
	assert.Equal(t, "https://other.example.com/x", resolveURL("https://example.com/page", "https://other.example.com/x"))
	assert.Equal(t, "https://example.com/x", resolveURL("https://example.com/page", "/x"))
}
