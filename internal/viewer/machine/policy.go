package machine

import "github.com/smallbiznis/storefront/internal/viewer/domain"

// SitePurchases returns the viewer's purchases made on site.
func SitePurchases(v *domain.Viewer, site string) []domain.Purchase {
	if v == nil {
		return nil
	}
	out := make([]domain.Purchase, 0, len(v.Purchased))
	for _, p := range v.Purchased {
		if p.Site == site {
			out = append(out, p)
		}
	}
	return out
}

// CanViewContent is true when any purchase is an individual seat.
func CanViewContent(purchases []domain.Purchase) bool {
	for _, p := range purchases {
		if p.IsIndividual() {
			return true
		}
	}
	return false
}

// IsUnclaimedBulkPurchaser is true for a viewer who bought seats on site but
// holds none of them personally.
func IsUnclaimedBulkPurchaser(v *domain.Viewer, site string) bool {
	purchases := SitePurchases(v, site)
	return len(purchases) > 0 && !CanViewContent(purchases)
}
