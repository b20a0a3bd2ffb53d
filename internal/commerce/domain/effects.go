package domain

type EffectKind string

const (
	EffectFetchPrice            EffectKind = "fetch_price"
	EffectCreateCheckoutSession EffectKind = "create_checkout_session"
	EffectFinalizePurchase      EffectKind = "finalize_purchase"
	EffectRedirectToCheckout    EffectKind = "redirect_to_checkout"
	EffectCompletePurchase      EffectKind = "complete_purchase"
)

// Effect is a side effect requested by a transition. The interpreter performs it
// and feeds any result back as an event.
type Effect interface {
	Kind() EffectKind
}

type FetchPrice struct {
	Epoch   uint64
	Request PriceRequest
}

type CreateCheckoutSession struct {
	Epoch   uint64
	Request CheckoutSessionRequest
}

type FinalizePurchase struct {
	Epoch   uint64
	Request FinalizeRequest
}

type RedirectToCheckout struct {
	Session CheckoutSession
}

// CompletePurchase runs the post-purchase flow: signup, then local cache on
// signup success, then navigation to the thanks page regardless of outcome.
type CompletePurchase struct {
	Email    string
	Quantity int
	Upgrade  bool
	Purchase Purchase
}

func (FetchPrice) Kind() EffectKind            { return EffectFetchPrice }
func (CreateCheckoutSession) Kind() EffectKind { return EffectCreateCheckoutSession }
func (FinalizePurchase) Kind() EffectKind      { return EffectFinalizePurchase }
func (RedirectToCheckout) Kind() EffectKind    { return EffectRedirectToCheckout }
func (CompletePurchase) Kind() EffectKind      { return EffectCompletePurchase }
