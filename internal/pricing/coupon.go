package pricing

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/storefront/internal/commerce/domain"
)

var hundred = decimal.NewFromInt(100)

// ResolveCoupon decides which coupon stays applied after a price was loaded.
//
// Anything other than a single unit clears the coupon. An already applied coupon
// wins, even one that is only whitespace. Otherwise the default coupon bundled
// with the price is applied unless it has expired; a coupon without an expiry
// never expires.
func ResolveCoupon(c domain.Context, now time.Time) string {
	if c.Quantity != 1 {
		return ""
	}
	if c.AppliedCoupon != "" {
		return c.AppliedCoupon
	}
	if c.Price == nil || c.Price.Coupon.IsZero() {
		return ""
	}
	def := c.Price.Coupon
	if def.ExpiresAt.Valid && def.ExpiresAt.Time().Before(now) {
		return ""
	}
	return def.Code
}

// ParityCoupon returns the region restricted coupon to offer as parity pricing.
// It is only offered for a single unit and when the coupon names its region.
func ParityCoupon(price *domain.Price, quantity int) *domain.Coupon {
	if price == nil || quantity != 1 {
		return nil
	}
	for i := range price.AvailableCoupons {
		coupon := price.AvailableCoupons[i]
		if !coupon.RegionRestricted {
			continue
		}
		if coupon.IsZero() || coupon.RegionRestrictedTo == "" || coupon.RegionRestrictedToName == "" {
			return nil
		}
		return &coupon
	}
	return nil
}

// PercentOff is the discount shown next to the price: the coupon discount for a
// single unit, the bulk discount otherwise. Nil when there is nothing to show.
func PercentOff(price *domain.Price, quantity int) *decimal.Decimal {
	if price == nil {
		return nil
	}
	var fraction decimal.NullDecimal
	if quantity == 1 {
		if price.Coupon == nil {
			return nil
		}
		fraction = price.Coupon.Discount
	} else {
		fraction = price.BulkDiscount
	}
	if !fraction.Valid || fraction.Decimal.IsZero() {
		return nil
	}
	percent := fraction.Decimal.Mul(hundred)
	return &percent
}
