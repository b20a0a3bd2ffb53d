package service

import (
	"context"
	"time"

	"github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// perform starts the requested effects. Invocations run on their own goroutine
// and report back through the instance mailbox tagged with their epoch.
func (s *Service) perform(inst *instance, effects []domain.Effect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case domain.FetchPrice:
			go s.fetchPrice(inst, e)
		case domain.CreateCheckoutSession:
			go s.createCheckoutSession(inst, e)
		case domain.FinalizePurchase:
			go s.finalizePurchase(inst, e)
		case domain.RedirectToCheckout:
			// published with the snapshot by apply
		case domain.CompletePurchase:
			go s.completePurchase(inst, e)
		default:
			s.log.Warn("unknown effect", zap.String("effect", string(effect.Kind())))
		}
	}
}

// redirect returns the checkout location a transition navigates to, if any.
func (s *Service) redirect(effects []domain.Effect) *domain.Location {
	for _, effect := range effects {
		if e, ok := effect.(domain.RedirectToCheckout); ok {
			return &domain.Location{Kind: domain.LocationCheckout, URL: s.checkoutURL(e.Session)}
		}
	}
	return nil
}

func (s *Service) fetchPrice(inst *instance, e domain.FetchPrice) {
	ctx, span := s.startSpan(inst.ctx, "commerce.fetch_price", inst)
	start := time.Now()
	prices, err := s.prices.FetchPrice(ctx, e.Request)
	s.machineMetrics.ObserveEffect(metrics.MachineCommerce, string(e.Kind()), time.Since(start), err)
	endSpan(span, err)

	if err != nil {
		s.metrics.RecordPriceFetch(ctx, e.Request.IsFixedPrice(), outcomeFailure)
		if inst.ctx.Err() == nil {
			s.log.Warn("price fetch failed", zap.String("machine_id", inst.id), zap.Error(err))
		}
		inst.post(domain.PriceFetchFailed{Epoch: e.Epoch, Err: err})
		return
	}
	s.metrics.RecordPriceFetch(ctx, e.Request.IsFixedPrice(), outcomeSuccess)
	inst.post(domain.PriceFetched{Epoch: e.Epoch, Prices: prices})
}

func (s *Service) createCheckoutSession(inst *instance, e domain.CreateCheckoutSession) {
	ctx, span := s.startSpan(inst.ctx, "commerce.create_checkout_session", inst)
	start := time.Now()
	session, err := s.checkout.CreateSession(ctx, e.Request)
	s.machineMetrics.ObserveEffect(metrics.MachineCommerce, string(e.Kind()), time.Since(start), err)
	endSpan(span, err)

	if err != nil {
		s.metrics.RecordCheckoutSession(ctx, outcomeFailure)
		s.log.Warn("checkout session failed", zap.String("machine_id", inst.id), zap.Error(err))
		inst.post(domain.CheckoutSessionFailed{Epoch: e.Epoch, Err: err})
		return
	}
	s.metrics.RecordCheckoutSession(ctx, outcomeSuccess)
	inst.post(domain.CheckoutSessionCreated{Epoch: e.Epoch, Session: session})
}

func (s *Service) finalizePurchase(inst *instance, e domain.FinalizePurchase) {
	ctx, span := s.startSpan(inst.ctx, "commerce.finalize_purchase", inst)
	start := time.Now()
	purchase, err := s.checkout.Finalize(ctx, e.Request)
	s.machineMetrics.ObserveEffect(metrics.MachineCommerce, string(e.Kind()), time.Since(start), err)
	endSpan(span, err)

	if err != nil {
		s.metrics.RecordPurchase(ctx, e.Request.Sellable, e.Request.Bulk, outcomeFailure)
		s.log.Warn("purchase failed", zap.String("machine_id", inst.id), zap.Error(err))
		inst.post(domain.PurchaseFailed{Epoch: e.Epoch, Err: err})
		return
	}
	s.metrics.RecordPurchase(ctx, e.Request.Sellable, e.Request.Bulk, outcomeSuccess)
	s.log.Info("purchase finalized",
		zap.String("machine_id", inst.id),
		zap.String("purchase_id", purchase.ID.String()),
		zap.Int("quantity", e.Request.Quantity),
	)
	inst.post(domain.PurchaseFinalized{Epoch: e.Epoch, Purchase: purchase})
}

// completePurchase signs the buyer up, caches the purchase only when the
// signup went through, and navigates to the thanks page either way.
func (s *Service) completePurchase(inst *instance, e domain.CompletePurchase) {
	cfg := s.storefront.Get()
	ctx, span := s.startSpan(context.WithoutCancel(inst.ctx), "commerce.complete_purchase", inst)
	defer span.End()

	tags := []int64{cfg.SignupTags.Purchased}
	if e.Quantity > 1 {
		tags = append(tags, cfg.SignupTags.Bulk)
	}

	start := time.Now()
	err := s.subscriber.Subscribe(ctx, e.Email, tags)
	s.machineMetrics.ObserveEffect(metrics.MachineCommerce, string(e.Kind()), time.Since(start), err)
	if err != nil {
		s.metrics.RecordSignup(ctx, outcomeFailure)
		s.log.Warn("post purchase signup failed", zap.String("machine_id", inst.id), zap.Error(err))
	} else {
		s.metrics.RecordSignup(ctx, outcomeSuccess)
		if s.cache != nil {
			if err := s.cache.Store(ctx, e.Email, e.Purchase); err != nil {
				s.log.Warn("purchase cache write failed", zap.String("machine_id", inst.id), zap.Error(err))
			}
		}
	}

	inst.navigate(domain.Location{
		Kind: domain.LocationThanks,
		URL:  thanksURL(cfg.Routes.Thanks, e.Email, e.Upgrade),
	}, s.clock.Now())
}
