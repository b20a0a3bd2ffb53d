package pricing

import "github.com/smallbiznis/storefront/internal/commerce/domain"

// AdjustForUpgrade derives the displayed price from a freshly fetched one. The
// raw price is never modified, so calling it again with the same input yields
// the same result.
func AdjustForUpgrade(raw *domain.Price, upgradeFrom *domain.Sellable, quantity int) *domain.Price {
	if raw == nil {
		return nil
	}
	adjusted := *raw
	if upgradeFrom == nil || quantity > 1 {
		return &adjusted
	}
	adjusted.Price = raw.Price.Sub(upgradeFrom.Price)
	return &adjusted
}
