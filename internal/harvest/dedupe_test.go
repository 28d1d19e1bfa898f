package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oludev/solar-market-scraper/internal/models"
)

func itemWithURL(name, url string) *models.Item {
	item := models.NewItem("testsite")
	item.Name = name
	item.ProductURL = url
	return item
}

func TestDeduplicatePreservesFirstSeenOrder(t *testing.T) {
	a := itemWithURL("Panel A", "https://example.com/a")
	b := itemWithURL("Panel B", "https://example.com/b")
	aDup := itemWithURL("Panel A (page 2)", "https://example.com/a")

	out := Deduplicate([]*models.Item{a, b, aDup})
	require.Len(t, out, 2)
	assert.Same(t, a, out[0])
	assert.Same(t, b, out[1])
}

func TestDeduplicateFallsBackToNameAndPrice(t *testing.T) {
	first := models.NewItem("testsite")
	first.Name = "Battery"
	first.PriceRaw = "₦45,000"
	first.NormalizePrice()

	same := models.NewItem("testsite")
	same.Name = "Battery"
	same.PriceRaw = "₦45,000"
	same.NormalizePrice()

	other := models.NewItem("testsite")
	other.Name = "Battery"
	other.PriceRaw = "₦50,000"
	other.NormalizePrice()

	out := Deduplicate([]*models.Item{first, same, other})
	require.Len(t, out, 2)
	assert.Same(t, first, out[0])
	assert.Same(t, other, out[1])
}

func TestDeduplicateDropsIdentityless(t *testing.T) {
	blank := models.NewItem("testsite")
	named := itemWithURL("Panel", "")

	out := Deduplicate([]*models.Item{blank, named})
	require.Len(t, out, 1)
	assert.Same(t, named, out[0])
}
