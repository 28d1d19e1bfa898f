package harvest

import (
	"github.com/oludev/solar-market-scraper/internal/models"
)

// Deduplicate returns at most one item per identity key, preserving
// first-seen order. Items without a name or URL are excluded from the input
// entirely.
func Deduplicate(items []*models.Item) []*models.Item {
	seen := make(map[string]bool, len(items))
	out := make([]*models.Item, 0, len(items))
	for _, item := range items {
		if !item.HasIdentity() {
			continue
		}
		key := item.IdentityKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}
