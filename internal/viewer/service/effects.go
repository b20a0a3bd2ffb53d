package service

import (
	"context"
	"time"

	"github.com/smallbiznis/storefront/internal/observability/metrics"
	"github.com/smallbiznis/storefront/internal/viewer/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	outcomeLoggedIn  = "logged_in"
	outcomeLoggedOut = "logged_out"
	outcomeError     = "error"
)

// perform runs effects in order. Identity lookups run on their own goroutine;
// session clearing and monitor control happen inline so a fresh monitor never
// sees the identity that was just cleared.
func (s *Service) perform(inst *instance, effects []domain.Effect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case domain.CheckIdentity:
			go s.checkIdentity(inst, e)
		case domain.RefreshIdentity:
			go s.refreshIdentity(inst, e)
		case domain.Identify:
			go s.identify(inst, e)
		case domain.Navigate:
			// published with the snapshot by apply
		case domain.ClearSession:
			if err := s.store.Clear(inst.ctx, inst.sid); err != nil {
				s.log.Warn("session clear failed", zap.Error(err))
			}
		case domain.StartMonitor:
			inst.haltMonitor()
			inst.stopMonitor = s.store.Monitor(inst.ctx, inst.sid, s.pollInterval, s.monitorTick(inst, e.Known))
		case domain.StopMonitor:
			inst.haltMonitor()
		default:
			s.log.Warn("unknown effect", zap.String("effect", string(effect.Kind())))
		}
	}
}

// navigation returns the location a transition navigates to, if any.
func navigation(effects []domain.Effect) *domain.Location {
	for _, effect := range effects {
		if e, ok := effect.(domain.Navigate); ok {
			loc := e.Location
			return &loc
		}
	}
	return nil
}

// checkIdentity swallows errors: the machine stays in checkingIfLoggedIn
// rather than bouncing a borderline session to logged out.
func (s *Service) checkIdentity(inst *instance, e domain.CheckIdentity) {
	ctx, span := s.startSpan(inst.ctx, "viewer.check_identity", attribute.String("page.path", e.Page.Path))
	start := time.Now()
	viewer, viewAsUser, err := s.auth.Check(ctx, inst.sid, e.Page)
	s.machineMetrics.ObserveEffect(metrics.MachineViewer, string(e.Kind()), time.Since(start), err)
	endSpan(span, err)

	if err != nil {
		s.metrics.RecordIdentityCheck(ctx, "check", outcomeError)
		if inst.ctx.Err() == nil {
			s.log.Warn("identity check failed", zap.Error(err))
		}
		return
	}
	if viewer.IsEmpty() {
		s.metrics.RecordIdentityCheck(ctx, "check", outcomeLoggedOut)
		inst.post(inst.ctx, domain.ReportIsLoggedOut{Epoch: e.Epoch})
		return
	}
	s.metrics.RecordIdentityCheck(ctx, "check", outcomeLoggedIn)
	inst.post(inst.ctx, domain.ReportIsLoggedIn{Epoch: e.Epoch, Viewer: viewer, ViewAsUser: viewAsUser})
}

func (s *Service) refreshIdentity(inst *instance, e domain.RefreshIdentity) {
	ctx, span := s.startSpan(inst.ctx, "viewer.refresh_identity")
	start := time.Now()
	viewer, err := s.auth.Refresh(ctx, inst.sid)
	if err == nil && viewer.IsEmpty() {
		err = domain.ErrNotFound
	}
	s.machineMetrics.ObserveEffect(metrics.MachineViewer, string(e.Kind()), time.Since(start), err)
	endSpan(span, err)

	if err != nil {
		s.metrics.RecordIdentityCheck(ctx, "refresh", outcomeError)
		if inst.ctx.Err() == nil {
			s.log.Info("viewer refresh failed, logging out", zap.Error(err))
		}
		inst.post(inst.ctx, domain.RefreshFailed{Epoch: e.Epoch})
		return
	}
	s.metrics.RecordIdentityCheck(ctx, "refresh", outcomeLoggedIn)
	inst.post(inst.ctx, domain.ReportRefreshedViewer{Epoch: e.Epoch, Viewer: viewer})
}

func (s *Service) identify(inst *instance, e domain.Identify) {
	if s.analytics == nil || e.Viewer.IsEmpty() {
		return
	}
	if err := s.analytics.Identify(inst.ctx, e.Viewer); err != nil {
		s.log.Warn("analytics identify failed", zap.Error(err))
	}
}

// monitorTick reports LOG_IN once the stored identity differs from known.
func (s *Service) monitorTick(inst *instance, known *domain.Viewer) func(ctx context.Context) {
	return func(ctx context.Context) {
		stored, err := s.auth.Cached(ctx, inst.sid)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Debug("session poll failed", zap.Error(err))
			}
			return
		}
		if stored.IsEmpty() || domain.Equal(stored, known) {
			return
		}
		inst.post(ctx, domain.LogIn{Viewer: stored})
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "effect failed")
	}
	span.End()
}
