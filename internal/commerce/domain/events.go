package domain

type EventType string

const (
	EventApplyCoupon         EventType = "APPLY_COUPON"
	EventDismissCoupon       EventType = "DISMISS_COUPON"
	EventSetQuantity         EventType = "SET_QUANTITY"
	EventStartPurchase       EventType = "START_PURCHASE"
	EventClaimCoupon         EventType = "CLAIM_COUPON"
	EventStartStripeCheckout EventType = "START_STRIPE_CHECKOUT"
	EventCancelPurchase      EventType = "CANCEL_PURCHASE"
	EventHandlePurchase      EventType = "HANDLE_PURCHASE"

	EventPriceFetched           EventType = "done.fetchPrice"
	EventPriceFetchFailed       EventType = "error.fetchPrice"
	EventCheckoutSessionCreated EventType = "done.createCheckoutSession"
	EventCheckoutSessionFailed  EventType = "error.createCheckoutSession"
	EventPurchaseFinalized      EventType = "done.finalizePurchase"
	EventPurchaseFailed         EventType = "error.finalizePurchase"
)

type Event interface {
	Type() EventType
}

type ApplyCoupon struct{ Code string }

type DismissCoupon struct{}

type SetQuantity struct {
	Quantity int
	Bulk     bool
}

type StartPurchase struct{}

type ClaimCoupon struct{ Email string }

type StartStripeCheckout struct{}

type CancelPurchase struct{}

type HandlePurchase struct {
	Email       string
	StripeToken string
}

// Completion events are produced by the interpreter and carry the epoch of the
// invocation that produced them.

type PriceFetched struct {
	Epoch  uint64
	Prices []Price
}

type PriceFetchFailed struct {
	Epoch uint64
	Err   error
}

type CheckoutSessionCreated struct {
	Epoch   uint64
	Session CheckoutSession
}

type CheckoutSessionFailed struct {
	Epoch uint64
	Err   error
}

type PurchaseFinalized struct {
	Epoch    uint64
	Purchase Purchase
}

type PurchaseFailed struct {
	Epoch uint64
	Err   error
}

func (ApplyCoupon) Type() EventType            { return EventApplyCoupon }
func (DismissCoupon) Type() EventType          { return EventDismissCoupon }
func (SetQuantity) Type() EventType            { return EventSetQuantity }
func (StartPurchase) Type() EventType          { return EventStartPurchase }
func (ClaimCoupon) Type() EventType            { return EventClaimCoupon }
func (StartStripeCheckout) Type() EventType    { return EventStartStripeCheckout }
func (CancelPurchase) Type() EventType         { return EventCancelPurchase }
func (HandlePurchase) Type() EventType         { return EventHandlePurchase }
func (PriceFetched) Type() EventType           { return EventPriceFetched }
func (PriceFetchFailed) Type() EventType       { return EventPriceFetchFailed }
func (CheckoutSessionCreated) Type() EventType { return EventCheckoutSessionCreated }
func (CheckoutSessionFailed) Type() EventType  { return EventCheckoutSessionFailed }
func (PurchaseFinalized) Type() EventType      { return EventPurchaseFinalized }
func (PurchaseFailed) Type() EventType         { return EventPurchaseFailed }

// EventInput is the wire form of a commerce event sent by the presentation layer.
type EventInput struct {
	Type     EventType `json:"type"`
	Coupon   string    `json:"coupon,omitempty"`
	Quantity int       `json:"quantity,omitempty"`
	Bulk     bool      `json:"bulk,omitempty"`
	Email    string    `json:"email,omitempty"`
	Token    string    `json:"token,omitempty"`
}

// ToEvent converts wire input into a public event. Completion events cannot be
// sent from outside.
func (in EventInput) ToEvent() (Event, error) {
	switch in.Type {
	case EventApplyCoupon:
		return ApplyCoupon{Code: in.Coupon}, nil
	case EventDismissCoupon:
		return DismissCoupon{}, nil
	case EventSetQuantity:
		if in.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		return SetQuantity{Quantity: in.Quantity, Bulk: in.Bulk}, nil
	case EventStartPurchase:
		return StartPurchase{}, nil
	case EventClaimCoupon:
		return ClaimCoupon{Email: in.Email}, nil
	case EventStartStripeCheckout:
		return StartStripeCheckout{}, nil
	case EventCancelPurchase:
		return CancelPurchase{}, nil
	case EventHandlePurchase:
		return HandlePurchase{Email: in.Email, StripeToken: in.Token}, nil
	}
	return nil, ErrInvalidEvent
}
