package service

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/storefront/internal/checkout"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/smallbiznis/storefront/internal/commerce/machine"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	"github.com/smallbiznis/storefront/internal/pricing"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Lifecycle      fx.Lifecycle `optional:"true"`
	Config         config.Config
	Storefront     *config.StorefrontConfigHolder
	Log            *zap.Logger
	Clock          clock.Clock
	Prices         PriceFetcher
	Checkout       CheckoutClient
	Subscriber     Subscriber
	Cache          PurchaseCache           `optional:"true"`
	Metrics        *metrics.Metrics        `optional:"true"`
	MachineMetrics *metrics.MachineMetrics `optional:"true"`
}

// Service hosts commerce machine instances and interprets their effects.
type Service struct {
	log            *zap.Logger
	clock          clock.Clock
	machine        *machine.Machine
	storefront     *config.StorefrontConfigHolder
	checkoutBase   string
	prices         PriceFetcher
	checkout       CheckoutClient
	subscriber     Subscriber
	cache          PurchaseCache
	metrics        *metrics.Metrics
	machineMetrics *metrics.MachineMetrics
	tracer         trace.Tracer
	idleTTL        time.Duration
	sweepInterval  time.Duration
	stopSweep      context.CancelFunc

	mu        sync.RWMutex
	instances map[string]*instance
	wg        sync.WaitGroup
}

func New(p Params) domain.Service {
	svc := &Service{
		log:   p.Log.Named("commerce.service"),
		clock: p.Clock,
		machine: machine.New(machine.Settings{
			Checkout: checkout.Settings{
				Site:       p.Config.SiteName,
				ClientID:   p.Config.ClientID,
				SuccessURL: p.Config.Stripe.SuccessURL,
				CancelURL:  p.Config.Stripe.CancelURL,
			},
			SupportEmail: p.Config.SupportEmail,
		}, p.Clock),
		storefront:     p.Storefront,
		checkoutBase:   p.Config.Stripe.CheckoutBaseURL,
		prices:         p.Prices,
		checkout:       p.Checkout,
		subscriber:     p.Subscriber,
		cache:          p.Cache,
		metrics:        p.Metrics,
		machineMetrics: p.MachineMetrics,
		tracer:         otel.Tracer("storefront/commerce"),
		idleTTL:        p.Config.Session.InstanceIdleTTL(),
		sweepInterval:  p.Config.Session.SweepInterval,
		instances:      make(map[string]*instance),
	}

	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				svc.startSweeper()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				if svc.stopSweep != nil {
					svc.stopSweep()
				}
				svc.shutdown(ctx)
				return nil
			},
		})
	}
	return svc
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.View, error) {
	snapshot, effects, err := s.machine.Start(domain.Context{
		Sellable:            req.Sellable,
		UpgradeFromSellable: req.UpgradeFromSellable,
		StripePriceID:       strings.TrimSpace(req.StripePriceID),
		Quantity:            1,
	}, req.Query)
	if err != nil {
		return nil, err
	}

	_, cid := correlation.EnsureCorrelationID(ctx)
	inst := newInstance(uuid.NewString(), bundleKey(req.Sellable), cid, snapshot, s.clock.Now())
	s.mu.Lock()
	s.instances[inst.id] = inst
	s.mu.Unlock()

	s.machineMetrics.InstanceStarted(metrics.MachineCommerce)
	s.log.Info("commerce machine created",
		zap.String("machine_id", inst.id),
		zap.String("bundle", inst.bundleKey),
		zap.String("state", string(snapshot.State)),
		zap.String("correlation_id", cid),
	)

	s.wg.Add(1)
	go s.run(inst)
	s.perform(inst, effects)

	return s.view(inst), nil
}

// Get returns the current view. Reading the final location of a completed
// purchase starts its release.
func (s *Service) Get(ctx context.Context, id string) (*domain.View, error) {
	inst, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	view := s.view(inst)
	if view.State == domain.StateSuccess && view.Location != nil {
		inst.markDelivered(s.clock.Now())
	}
	return view, nil
}

// Send dispatches a public event and waits until it has been applied.
func (s *Service) Send(ctx context.Context, id string, event domain.Event) (*domain.View, error) {
	if event == nil {
		return nil, domain.ErrInvalidEvent
	}
	inst, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	reply := make(chan bool, 1)
	select {
	case inst.events <- envelope{event: event, reply: reply}:
	case <-inst.ctx.Done():
		return nil, domain.ErrInstanceClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case handled := <-reply:
		view := s.view(inst)
		if !handled {
			return view, domain.ErrEventNotAccepted
		}
		return view, nil
	case <-inst.ctx.Done():
		return nil, domain.ErrInstanceClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close discards an instance. In-flight invocations are cancelled and their
// results dropped.
func (s *Service) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	inst, ok := s.instances[id]
	delete(s.instances, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	return s.stop(ctx, inst)
}

func (s *Service) stop(ctx context.Context, inst *instance) error {
	inst.cancel()
	select {
	case <-inst.done:
		s.machineMetrics.InstanceStopped(metrics.MachineCommerce)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) shutdown(ctx context.Context) {
	s.mu.Lock()
	instances := s.instances
	s.instances = make(map[string]*instance)
	s.mu.Unlock()

	for _, inst := range instances {
		if err := s.stop(ctx, inst); err != nil {
			s.log.Warn("commerce machine did not stop", zap.String("machine_id", inst.id), zap.Error(err))
		}
	}
	s.wg.Wait()
}

func (s *Service) lookup(id string) (*instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[strings.TrimSpace(id)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	inst.touch(s.clock.Now())
	return inst, nil
}

func (s *Service) run(inst *instance) {
	defer s.wg.Done()
	defer close(inst.done)
	for {
		select {
		case <-inst.ctx.Done():
			return
		case env := <-inst.events:
			handled := s.apply(inst, env.event)
			if env.reply != nil {
				env.reply <- handled
			}
		}
	}
}

func (s *Service) apply(inst *instance, ev domain.Event) bool {
	current, _, _ := inst.current()
	next, effects, handled := s.machine.Transition(current, ev)
	if !handled {
		if isCompletion(ev) {
			s.machineMetrics.RecordDiscarded(metrics.MachineCommerce, string(ev.Type()))
			s.log.Debug("stale completion discarded",
				zap.String("machine_id", inst.id),
				zap.String("event", string(ev.Type())),
				zap.String("state", string(current.State)),
			)
		} else {
			s.machineMetrics.RecordRejected(metrics.MachineCommerce, string(ev.Type()))
		}
		return false
	}

	inst.store(next, s.redirect(effects), s.clock.Now())
	s.perform(inst, effects)
	if next.State != current.State {
		s.machineMetrics.RecordTransition(metrics.MachineCommerce, string(current.State), string(next.State))
		s.log.Debug("commerce transition",
			zap.String("machine_id", inst.id),
			zap.String("event", string(ev.Type())),
			zap.String("from", string(current.State)),
			zap.String("to", string(next.State)),
		)
	}
	return true
}

func isCompletion(ev domain.Event) bool {
	switch ev.(type) {
	case domain.PriceFetched, domain.PriceFetchFailed,
		domain.CheckoutSessionCreated, domain.CheckoutSessionFailed,
		domain.PurchaseFinalized, domain.PurchaseFailed:
		return true
	}
	return false
}

func (s *Service) view(inst *instance) *domain.View {
	snapshot, location, updatedAt := inst.current()
	return &domain.View{
		ID:           inst.id,
		BundleKey:    inst.bundleKey,
		State:        snapshot.State,
		Context:      snapshot.Context,
		Location:     location,
		ParityCoupon: pricing.ParityCoupon(snapshot.Context.Price, snapshot.Context.Quantity),
		PercentOff:   pricing.PercentOff(snapshot.Context.Price, snapshot.Context.Quantity),
		UpdatedAt:    updatedAt,
	}
}

func bundleKey(sellable *domain.Sellable) string {
	if sellable == nil {
		return ""
	}
	for _, candidate := range []string{sellable.Slug, sellable.Title, sellable.ID.String()} {
		if key := slug.Make(candidate); key != "" {
			return key
		}
	}
	return ""
}

// thanksURL mirrors encodeURIComponent for the email so the thanks page can
// read it back verbatim.
func thanksURL(path, email string, upgrade bool) string {
	escaped := strings.ReplaceAll(url.QueryEscape(email), "+", "%20")
	upgradeFlag := "false"
	if upgrade {
		upgradeFlag = "true"
	}
	return path + "?email=" + escaped + "&upgrade=" + upgradeFlag
}

func (s *Service) checkoutURL(session domain.CheckoutSession) string {
	if session.URL != "" {
		return session.URL
	}
	return strings.TrimRight(s.checkoutBase, "/") + "/" + url.PathEscape(session.ID)
}

func (s *Service) startSpan(ctx context.Context, name string, inst *instance) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("machine.id", inst.id),
		attribute.String("machine.bundle", inst.bundleKey),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "effect failed")
	}
	span.End()
}
