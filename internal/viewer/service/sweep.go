package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func (s *Service) startSweeper() {
	if s.sweepInterval <= 0 || s.idleTTL <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweep = cancel
	go s.sweepLoop(ctx)
}

func (s *Service) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep closes sessions that went idle, taking their monitors down with them.
// It returns how many were closed.
func (s *Service) sweep(ctx context.Context) int {
	if s.idleTTL <= 0 {
		return 0
	}
	now := s.clock.Now()

	s.mu.Lock()
	var expired []*instance
	for sid, inst := range s.instances {
		if now.Sub(inst.lastActive()) >= s.idleTTL {
			delete(s.instances, sid)
			expired = append(expired, inst)
		}
	}
	s.mu.Unlock()

	for _, inst := range expired {
		if err := s.stop(ctx, inst); err != nil {
			s.log.Warn("idle viewer did not stop", zap.Error(err))
		}
	}
	if len(expired) > 0 {
		s.log.Debug("idle viewers closed", zap.Int("count", len(expired)))
	}
	return len(expired)
}
