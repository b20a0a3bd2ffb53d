package pricing

import (
	"strings"

	"github.com/smallbiznis/storefront/internal/commerce/domain"
)

// PriceParams builds the pricing request for the current context. A Stripe price
// id short-circuits everything else because the price was fixed upstream.
func PriceParams(c domain.Context) (domain.PriceRequest, error) {
	if c.Sellable == nil {
		return domain.PriceRequest{}, domain.ErrSellableRequired
	}
	if strings.TrimSpace(c.StripePriceID) != "" {
		return domain.PriceRequest{ID: c.StripePriceID}, nil
	}

	line := domain.SellableParams{
		Site:       c.Sellable.Site,
		SellableID: c.Sellable.ID.String(),
		Sellable:   strings.ToLower(c.Sellable.Type),
		Quantity:   c.Quantity,
	}
	if c.UpgradeFromSellable != nil {
		line.UpgradeFromSellableID = c.UpgradeFromSellable.Slug
		line.UpgradeFromSellable = c.UpgradeFromSellable.Type
	}

	return domain.PriceRequest{
		Sellables: []domain.SellableParams{line},
		Site:      c.Sellable.Site,
		Code:      c.AppliedCoupon,
	}, nil
}
