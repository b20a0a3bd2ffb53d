package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*View, error)
	Get(ctx context.Context, id string) (*View, error)
	Send(ctx context.Context, id string, event Event) (*View, error)
	Close(ctx context.Context, id string) error
}

type CreateRequest struct {
	Sellable            *Sellable `json:"sellable"`
	UpgradeFromSellable *Sellable `json:"upgrade_from_sellable"`
	StripePriceID       string    `json:"stripe_price_id"`
	// Query is the raw query string of the page that hosts the purchase, e.g. "coupon=SAVE".
	Query string `json:"query"`
}

// View is what the presentation layer renders after every transition.
type View struct {
	ID           string           `json:"id"`
	BundleKey    string           `json:"bundle_key"`
	State        State            `json:"state"`
	Context      Context          `json:"context"`
	Location     *Location        `json:"location,omitempty"`
	ParityCoupon *Coupon          `json:"parity_coupon,omitempty"`
	PercentOff   *decimal.Decimal `json:"percent_off,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
