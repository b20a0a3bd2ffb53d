package domain

// SellableParams describes one sellable line in pricing, checkout and finalize requests.
// Zero-valued fields are omitted on the wire.
type SellableParams struct {
	Site                  string `json:"site,omitempty"`
	SellableID            string `json:"sellable_id,omitempty"`
	Sellable              string `json:"sellable,omitempty"`
	Bulk                  bool   `json:"bulk,omitempty"`
	Quantity              int    `json:"quantity,omitempty"`
	UpgradeFromSellableID string `json:"upgrade_from_sellable_id,omitempty"`
	UpgradeFromSellable   string `json:"upgrade_from_sellable,omitempty"`
}

// PriceRequest is either {id} for a fixed Stripe price or the sellable form.
type PriceRequest struct {
	ID        string           `json:"id,omitempty"`
	Sellables []SellableParams `json:"sellables,omitempty"`
	Site      string           `json:"site,omitempty"`
	Code      string           `json:"code,omitempty"`
}

// IsFixedPrice reports whether pricing was already fixed upstream by a price handle.
func (r PriceRequest) IsFixedPrice() bool {
	return r.ID != ""
}

type CheckoutParams struct {
	StripePriceID string           `json:"stripe_price_id,omitempty"`
	Quantity      int              `json:"quantity,omitempty"`
	Sellables     []SellableParams `json:"sellables,omitempty"`
	Code          string           `json:"code,omitempty"`
}

type CheckoutSessionRequest struct {
	CheckoutParams
	Site       string `json:"site,omitempty"`
	ClientID   string `json:"client_id,omitempty"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

type FinalizeRequest struct {
	Site                  string `json:"site,omitempty"`
	SellableID            string `json:"sellable_id,omitempty"`
	Sellable              string `json:"sellable,omitempty"`
	Quantity              int    `json:"quantity,omitempty"`
	StripeToken           string `json:"stripeToken,omitempty"`
	ClientID              string `json:"client_id,omitempty"`
	Code                  string `json:"code,omitempty"`
	Email                 string `json:"email,omitempty"`
	Bulk                  bool   `json:"bulk,omitempty"`
	UpgradeFromSellableID string `json:"upgrade_from_sellable_id,omitempty"`
	UpgradeFromSellable   string `json:"upgrade_from_sellable,omitempty"`
}
