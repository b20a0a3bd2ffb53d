package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/storefront/internal/auth/session"
	"github.com/smallbiznis/storefront/internal/clock"
	"github.com/smallbiznis/storefront/internal/config"
	"github.com/smallbiznis/storefront/internal/observability/metrics"
	"github.com/smallbiznis/storefront/internal/viewer/domain"
	"github.com/smallbiznis/storefront/internal/viewer/machine"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
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
	Auth           Authenticator
	Store          session.Store
	Analytics      Identifier              `optional:"true"`
	Metrics        *metrics.Metrics        `optional:"true"`
	MachineMetrics *metrics.MachineMetrics `optional:"true"`
}

// Service runs one viewer machine per browser session.
type Service struct {
	log            *zap.Logger
	clock          clock.Clock
	site           string
	pollInterval   time.Duration
	storefront     *config.StorefrontConfigHolder
	auth           Authenticator
	store          session.Store
	analytics      Identifier
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
		log:            p.Log.Named("viewer.service"),
		clock:          p.Clock,
		site:           p.Config.SiteName,
		pollInterval:   p.Config.Session.PollInterval,
		storefront:     p.Storefront,
		auth:           p.Auth,
		store:          p.Store,
		analytics:      p.Analytics,
		metrics:        p.Metrics,
		machineMetrics: p.MachineMetrics,
		tracer:         otel.Tracer("storefront/viewer"),
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

// machine is rebuilt per transition so route changes in storefront.yml apply
// to running sessions.
func (s *Service) machine() *machine.Machine {
	return machine.New(machine.Settings{Site: s.site, Routes: s.storefront.Get().Routes})
}

// Start begins a new application session for sid, replacing any running one.
func (s *Service) Start(ctx context.Context, sid string, page domain.PageLocation) (*domain.View, error) {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return nil, domain.ErrSessionRequired
	}

	snapshot, effects := s.machine().Start(page)
	_, cid := correlation.EnsureCorrelationID(ctx)
	inst := newInstance(sid, cid, snapshot, s.clock.Now())

	s.mu.Lock()
	previous := s.instances[sid]
	s.instances[sid] = inst
	s.mu.Unlock()
	if previous != nil {
		if err := s.stop(ctx, previous); err != nil {
			s.log.Warn("previous viewer did not stop", zap.String("session_id", sid), zap.Error(err))
		}
	}

	s.machineMetrics.InstanceStarted(metrics.MachineViewer)
	s.log.Debug("viewer machine started", zap.String("path", page.Path), zap.String("correlation_id", cid))

	s.wg.Add(1)
	go s.run(inst)
	s.perform(inst, effects)

	return s.view(inst), nil
}

func (s *Service) Get(ctx context.Context, sid string) (*domain.View, error) {
	inst, err := s.lookup(sid)
	if err != nil {
		return nil, err
	}
	return s.view(inst), nil
}

// Send dispatches a client event and waits until it has been applied.
func (s *Service) Send(ctx context.Context, sid string, event domain.Event) (*domain.View, error) {
	if event == nil {
		return nil, domain.ErrInvalidEvent
	}
	inst, err := s.lookup(sid)
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

func (s *Service) Close(ctx context.Context, sid string) error {
	s.mu.Lock()
	inst, ok := s.instances[strings.TrimSpace(sid)]
	if ok {
		delete(s.instances, inst.sid)
	}
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
		s.machineMetrics.InstanceStopped(metrics.MachineViewer)
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
			s.log.Warn("viewer machine did not stop", zap.Error(err))
		}
	}
	s.wg.Wait()
}

func (s *Service) lookup(sid string) (*instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[strings.TrimSpace(sid)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	inst.touch(s.clock.Now())
	return inst, nil
}

// run owns the instance. The session monitor is torn down with it.
func (s *Service) run(inst *instance) {
	defer s.wg.Done()
	defer close(inst.done)
	defer inst.haltMonitor()
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
	next, effects, handled := s.machine().Transition(current, ev)
	if !handled {
		if isCompletion(ev) {
			s.machineMetrics.RecordDiscarded(metrics.MachineViewer, string(ev.Type()))
		} else {
			s.machineMetrics.RecordRejected(metrics.MachineViewer, string(ev.Type()))
		}
		return false
	}

	inst.store(next, navigation(effects), s.clock.Now())
	s.perform(inst, effects)
	if next.State != current.State {
		s.machineMetrics.RecordTransition(metrics.MachineViewer, string(current.State), string(next.State))
		s.log.Debug("viewer transition",
			zap.String("event", string(ev.Type())),
			zap.String("from", string(current.State)),
			zap.String("to", string(next.State)),
		)
	}
	return true
}

func isCompletion(ev domain.Event) bool {
	switch ev.(type) {
	case domain.ReportIsLoggedIn, domain.ReportIsLoggedOut, domain.ReportRefreshedViewer, domain.RefreshFailed:
		return true
	}
	return false
}

func (s *Service) view(inst *instance) *domain.View {
	snapshot, location, updatedAt := inst.current()
	return &domain.View{
		SessionID: inst.sid,
		State:     snapshot.State,
		Context:   snapshot.Context,
		Location:  location,
		UpdatedAt: updatedAt,
	}
}
