package machine

import (
	"net/url"
	"strings"

	"github.com/smallbiznis/storefront/internal/checkout"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/smallbiznis/storefront/internal/pricing"
)

type Settings struct {
	Checkout     checkout.Settings
	SupportEmail string
}

// Machine is the purchase funnel. Transition is pure apart from reading the
// clock for coupon expiry; every network call is returned as an effect.
type Machine struct {
	settings Settings
	clock    clock.Clock
}

func New(settings Settings, clk clock.Clock) *Machine {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Machine{settings: settings, clock: clk}
}

// Start returns the snapshot after the transient checkingCoupon state: the
// coupon query parameter is seeded and the first price fetch is requested.
func (m *Machine) Start(c domain.Context, rawQuery string) (domain.Snapshot, []domain.Effect, error) {
	if c.Sellable == nil {
		return domain.Snapshot{}, nil, domain.ErrSellableRequired
	}
	if c.Quantity < 1 {
		c.Quantity = 1
	}
	s := domain.Snapshot{State: domain.StateCheckingCoupon, Context: c}
	s.Context.AppliedCoupon = couponFromQuery(rawQuery)

	s, effects := m.enterFetchingPrice(s)
	return s, effects, nil
}

func couponFromQuery(rawQuery string) string {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return ""
	}
	return values.Get("coupon")
}

// Transition applies one event. handled is false when the current state does
// not accept the event or when a completion event is stale; the snapshot is
// then returned unchanged.
func (m *Machine) Transition(s domain.Snapshot, ev domain.Event) (domain.Snapshot, []domain.Effect, bool) {
	switch s.State {
	case domain.StateFetchingPrice:
		return m.onFetchingPrice(s, ev)
	case domain.StatePriceLoaded:
		return m.onPriceLoaded(s, ev)
	case domain.StateLoadingStripeCheckoutSession:
		return m.onLoadingCheckoutSession(s, ev)
	case domain.StateStripePurchase:
		return m.onStripePurchase(s, ev)
	case domain.StateHandlePurchase:
		return m.onHandlePurchase(s, ev)
	case domain.StateFailure:
		if _, ok := ev.(domain.StartPurchase); ok {
			s.Context.Error = ""
			s.State = domain.StateStripePurchase
			return s, nil, true
		}
	}
	return s, nil, false
}

func (m *Machine) onFetchingPrice(s domain.Snapshot, ev domain.Event) (domain.Snapshot, []domain.Effect, bool) {
	switch e := ev.(type) {
	case domain.PriceFetched:
		if e.Epoch != s.Epoch {
			return s, nil, false
		}
		if len(e.Prices) == 0 {
			return fail(s, domain.ErrPriceNotFound.Error()), nil, true
		}
		raw := e.Prices[0]
		s.Context.RawPrice = &raw
		s.Context.Price = pricing.AdjustForUpgrade(&raw, s.Context.UpgradeFromSellable, s.Context.Quantity)
		s.Context.Error = ""
		return m.checkPriceData(s), nil, true
	case domain.PriceFetchFailed:
		if e.Epoch != s.Epoch {
			return s, nil, false
		}
		s.Context.RawPrice = nil
		s.Context.Price = nil
		return fail(s, errorText(e.Err)), nil, true
	}
	return s, nil, false
}

// checkPriceData is the transient checkingPriceData state.
func (m *Machine) checkPriceData(s domain.Snapshot) domain.Snapshot {
	s.State = domain.StateCheckingPriceData
	if s.Context.Price.HasCouponError() {
		return fail(s, s.Context.Price.PriceMessage)
	}
	s.Context.AppliedCoupon = pricing.ResolveCoupon(s.Context, m.clock.Now())
	s.State = domain.StatePriceLoaded
	return s
}

func (m *Machine) onPriceLoaded(s domain.Snapshot, ev domain.Event) (domain.Snapshot, []domain.Effect, bool) {
	switch e := ev.(type) {
	case domain.ApplyCoupon:
		s.Context.AppliedCoupon = e.Code
	case domain.DismissCoupon:
		s.Context.AppliedCoupon = ""
	case domain.SetQuantity:
		if e.Quantity < 1 {
			return s, nil, false
		}
		s.Context.Quantity = e.Quantity
		s.Context.Bulk = e.Bulk
		s.Context.AppliedCoupon = ""
	case domain.StartPurchase:
		s.State = domain.StateStripePurchase
		return s, nil, true
	case domain.ClaimCoupon:
		s.Context.Email = e.Email
		s, effects := m.enterHandlePurchase(s)
		return s, effects, true
	case domain.StartStripeCheckout:
		s, effects := m.enterLoadingCheckoutSession(s)
		return s, effects, true
	default:
		return s, nil, false
	}
	s, effects := m.enterFetchingPrice(s)
	return s, effects, true
}

func (m *Machine) onLoadingCheckoutSession(s domain.Snapshot, ev domain.Event) (domain.Snapshot, []domain.Effect, bool) {
	switch e := ev.(type) {
	case domain.CheckoutSessionCreated:
		if e.Epoch != s.Epoch {
			return s, nil, false
		}
		session := e.Session
		s.Context.CheckoutSession = &session
		s.State = domain.StateSuccess
		return s, []domain.Effect{domain.RedirectToCheckout{Session: session}}, true
	case domain.CheckoutSessionFailed:
		if e.Epoch != s.Epoch {
			return s, nil, false
		}
		return fail(s, checkout.ProviderMessage(e.Err, m.settings.SupportEmail)), nil, true
	}
	return s, nil, false
}

func (m *Machine) onStripePurchase(s domain.Snapshot, ev domain.Event) (domain.Snapshot, []domain.Effect, bool) {
	switch e := ev.(type) {
	case domain.CancelPurchase:
		s.State = domain.StatePriceLoaded
		return s, nil, true
	case domain.HandlePurchase:
		s.Context.Email = e.Email
		s.Context.StripeToken = e.StripeToken
		s, effects := m.enterHandlePurchase(s)
		return s, effects, true
	}
	return s, nil, false
}

func (m *Machine) onHandlePurchase(s domain.Snapshot, ev domain.Event) (domain.Snapshot, []domain.Effect, bool) {
	switch e := ev.(type) {
	case domain.PurchaseFinalized:
		if e.Epoch != s.Epoch {
			return s, nil, false
		}
		purchase := e.Purchase
		s.Context.Purchase = &purchase
		s.State = domain.StateSuccess
		if s.Context.Email == "" {
			return s, nil, true
		}
		return s, []domain.Effect{domain.CompletePurchase{
			Email:    s.Context.Email,
			Quantity: s.Context.Quantity,
			Upgrade:  s.Context.UpgradeFromSellable != nil,
			Purchase: purchase,
		}}, true
	case domain.PurchaseFailed:
		if e.Epoch != s.Epoch {
			return s, nil, false
		}
		return fail(s, checkout.ProviderMessage(e.Err, m.settings.SupportEmail)), nil, true
	}
	return s, nil, false
}

func (m *Machine) enterFetchingPrice(s domain.Snapshot) (domain.Snapshot, []domain.Effect) {
	s.Epoch++
	s.State = domain.StateFetchingPrice
	req, err := pricing.PriceParams(s.Context)
	if err != nil {
		return fail(s, err.Error()), nil
	}
	return s, []domain.Effect{domain.FetchPrice{Epoch: s.Epoch, Request: req}}
}

func (m *Machine) enterLoadingCheckoutSession(s domain.Snapshot) (domain.Snapshot, []domain.Effect) {
	s.Epoch++
	s.State = domain.StateLoadingStripeCheckoutSession
	req, err := checkout.SessionRequest(s.Context, m.settings.Checkout)
	if err != nil {
		return fail(s, err.Error()), nil
	}
	return s, []domain.Effect{domain.CreateCheckoutSession{Epoch: s.Epoch, Request: req}}
}

func (m *Machine) enterHandlePurchase(s domain.Snapshot) (domain.Snapshot, []domain.Effect) {
	s.Epoch++
	s.State = domain.StateHandlePurchase
	req, err := checkout.FinalizeParams(s.Context, m.settings.Checkout)
	if err != nil {
		return fail(s, err.Error()), nil
	}
	return s, []domain.Effect{domain.FinalizePurchase{Epoch: s.Epoch, Request: req}}
}

func fail(s domain.Snapshot, message string) domain.Snapshot {
	s.State = domain.StateFailure
	s.Context.Error = message
	return s
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
