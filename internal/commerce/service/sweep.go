package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// terminalRetention is how long a completed purchase stays readable after its
// final location was handed out.
const terminalRetention = time.Minute

func (s *Service) startSweeper() {
	if s.sweepInterval <= 0 {
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

// sweep closes idle instances and delivered purchases. It returns how many
// were closed.
func (s *Service) sweep(ctx context.Context) int {
	now := s.clock.Now()

	s.mu.Lock()
	var expired []*instance
	for id, inst := range s.instances {
		if s.expired(inst, now) {
			delete(s.instances, id)
			expired = append(expired, inst)
		}
	}
	s.mu.Unlock()

	for _, inst := range expired {
		if err := s.stop(ctx, inst); err != nil {
			s.log.Warn("expired commerce machine did not stop", zap.String("machine_id", inst.id), zap.Error(err))
		}
	}
	if len(expired) > 0 {
		s.log.Debug("expired commerce machines closed", zap.Int("count", len(expired)))
	}
	return len(expired)
}

func (s *Service) expired(inst *instance, now time.Time) bool {
	lastActive, deliveredAt := inst.activity()
	if !deliveredAt.IsZero() && now.Sub(deliveredAt) >= terminalRetention {
		return true
	}
	return s.idleTTL > 0 && now.Sub(lastActive) >= s.idleTTL
}
