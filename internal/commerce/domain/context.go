package domain

type State string

const (
	StateCheckingCoupon               State = "checkingCoupon"
	StateFetchingPrice                State = "fetchingPrice"
	StateCheckingPriceData            State = "checkingPriceData"
	StatePriceLoaded                  State = "priceLoaded"
	StateLoadingStripeCheckoutSession State = "loadingStripeCheckoutSession"
	StateStripePurchase               State = "stripePurchase"
	StateHandlePurchase               State = "handlePurchase"
	StateSuccess                      State = "success"
	StateFailure                      State = "failure"
)

// Context is the working memory of one purchase attempt.
type Context struct {
	Sellable            *Sellable        `json:"sellable"`
	UpgradeFromSellable *Sellable        `json:"upgrade_from_sellable,omitempty"`
	StripePriceID       string           `json:"stripe_price_id,omitempty"`
	Quantity            int              `json:"quantity"`
	Bulk                bool             `json:"bulk"`
	AppliedCoupon       string           `json:"applied_coupon,omitempty"`
	RawPrice            *Price           `json:"-"`
	Price               *Price           `json:"price,omitempty"`
	Error               string           `json:"error,omitempty"`
	Email               string           `json:"email,omitempty"`
	StripeToken         string           `json:"-"`
	CheckoutSession     *CheckoutSession `json:"checkout_session,omitempty"`
	Purchase            *Purchase        `json:"purchase,omitempty"`
}

// Snapshot is the full machine state: current state, context and the epoch of
// the invocation owned by the current state.
type Snapshot struct {
	State   State   `json:"state"`
	Context Context `json:"context"`
	Epoch   uint64  `json:"epoch"`
}

// Location is a navigation target emitted by the machine.
type Location struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

const (
	LocationCheckout = "checkout"
	LocationThanks   = "thanks"
)
