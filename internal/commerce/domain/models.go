package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ResourceID accepts both numeric and string identifiers from the catalog and APIs.
type ResourceID string

func (id *ResourceID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ResourceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("resource id: %w", err)
	}
	*id = ResourceID(n.String())
	return nil
}

func (id ResourceID) String() string { return string(id) }

// Sellable is a purchasable catalog entry (a product or a bundle).
type Sellable struct {
	ID          ResourceID      `json:"id"`
	Site        string          `json:"site"`
	Type        string          `json:"type"`
	Slug        string          `json:"slug"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

// UnixSeconds is a Unix timestamp in seconds. The pricing service sends it as a
// number or a numeric string.
type UnixSeconds struct {
	Seconds int64
	Valid   bool
}

func (u *UnixSeconds) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if raw == "" || raw == "null" {
		*u = UnixSeconds{}
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("unix seconds %q: %w", raw, err)
	}
	*u = UnixSeconds{Seconds: d.IntPart(), Valid: true}
	return nil
}

func (u UnixSeconds) MarshalJSON() ([]byte, error) {
	if !u.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, u.Seconds, 10), nil
}

func (u UnixSeconds) Time() time.Time {
	return time.Unix(u.Seconds, 0).UTC()
}

type Coupon struct {
	Code                   string              `json:"coupon_code"`
	Discount               decimal.NullDecimal `json:"coupon_discount"`
	ExpiresAt              UnixSeconds         `json:"coupon_expires_at"`
	RegionRestricted       bool                `json:"coupon_region_restricted,omitempty"`
	RegionRestrictedTo     string              `json:"coupon_region_restricted_to,omitempty"`
	RegionRestrictedToName string              `json:"coupon_region_restricted_to_name,omitempty"`
}

func (c *Coupon) IsZero() bool {
	return c == nil || strings.TrimSpace(c.Code) == ""
}

// Price is a pricing quote for a (sellable, quantity, coupon) combination.
type Price struct {
	Price            decimal.Decimal     `json:"price"`
	FullPrice        decimal.Decimal     `json:"full_price"`
	Coupon           *Coupon             `json:"coupon,omitempty"`
	BulkDiscount     decimal.NullDecimal `json:"bulk_discount"`
	AvailableCoupons []Coupon            `json:"available_coupons,omitempty"`
	CouponError      json.RawMessage     `json:"coupon_error,omitempty"`
	PriceMessage     string              `json:"price_message,omitempty"`
}

// HasCouponError reports whether coupon_error carries a truthy JSON value.
func (p *Price) HasCouponError() bool {
	if p == nil {
		return false
	}
	raw := bytes.TrimSpace(p.CouponError)
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

type CheckoutSession struct {
	ID  string          `json:"id"`
	URL string          `json:"url,omitempty"`
	Raw json.RawMessage `json:"-"`
}

func (s *CheckoutSession) UnmarshalJSON(b []byte) error {
	type alias CheckoutSession
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*s = CheckoutSession(a)
	s.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// Purchase is the server-confirmed result of finalizing a purchase.
type Purchase struct {
	ID       ResourceID      `json:"id,omitempty"`
	Email    string          `json:"email,omitempty"`
	Quantity int             `json:"quantity,omitempty"`
	Sellable *Sellable       `json:"sellable,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

func (p *Purchase) UnmarshalJSON(b []byte) error {
	type alias Purchase
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*p = Purchase(a)
	p.Raw = append(json.RawMessage(nil), b...)
	return nil
}
