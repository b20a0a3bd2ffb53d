package service

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/storefront/internal/viewer/domain"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
)

type envelope struct {
	event domain.Event
	reply chan bool
}

type instance struct {
	sid string

	mu        sync.RWMutex
	snapshot  domain.Snapshot
	location  *domain.Location
	updatedAt time.Time
	// lastSeen is the last client read or event.
	lastSeen time.Time

	// stopMonitor is only touched by the instance goroutine.
	stopMonitor func()

	events chan envelope
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newInstance(sid, correlationID string, snapshot domain.Snapshot, now time.Time) *instance {
	ctx, cancel := context.WithCancel(correlation.ContextWithCorrelationID(context.Background(), correlationID))
	return &instance{
		sid:       sid,
		snapshot:  snapshot,
		updatedAt: now,
		lastSeen:  now,
		events:    make(chan envelope, 16),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (i *instance) current() (domain.Snapshot, *domain.Location, time.Time) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.snapshot, i.location, i.updatedAt
}

func (i *instance) touch(now time.Time) {
	i.mu.Lock()
	if now.After(i.lastSeen) {
		i.lastSeen = now
	}
	i.mu.Unlock()
}

// lastActive is the latest of the last transition and the last client access.
func (i *instance) lastActive() time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.updatedAt.After(i.lastSeen) {
		return i.updatedAt
	}
	return i.lastSeen
}

// post delivers an event from an invocation. It gives up when ctx or the
// instance is done.
func (i *instance) post(ctx context.Context, ev domain.Event) {
	select {
	case i.events <- envelope{event: ev}:
	case <-ctx.Done():
	case <-i.ctx.Done():
	}
}

func (i *instance) haltMonitor() {
	if i.stopMonitor != nil {
		i.stopMonitor()
		i.stopMonitor = nil
	}
}
