package service

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/smallbiznis/storefront/pkg/telemetry/correlation"
)

type envelope struct {
	event domain.Event
	reply chan bool
}

// instance is one purchase attempt. A single goroutine owns the snapshot and
// applies events one at a time; readers take the lock for a copy.
type instance struct {
	id        string
	bundleKey string

	mu        sync.RWMutex
	snapshot  domain.Snapshot
	location  *domain.Location
	updatedAt time.Time
	// lastSeen is the last client read or event; deliveredAt is set once a
	// completed purchase handed out its final location.
	lastSeen    time.Time
	deliveredAt time.Time

	events chan envelope
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// newInstance detaches the instance from the creating request but keeps its
// correlation id for the invocations it runs.
func newInstance(id, bundleKey, correlationID string, snapshot domain.Snapshot, now time.Time) *instance {
	ctx, cancel := context.WithCancel(correlation.ContextWithCorrelationID(context.Background(), correlationID))
	return &instance{
		id:        id,
		bundleKey: bundleKey,
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

// store publishes a snapshot together with the location its transition
// navigated to, so readers never see one without the other.
func (i *instance) store(s domain.Snapshot, loc *domain.Location, now time.Time) {
	i.mu.Lock()
	i.snapshot = s
	if loc != nil {
		i.location = loc
	}
	i.updatedAt = now
	i.mu.Unlock()
}

func (i *instance) navigate(loc domain.Location, now time.Time) {
	i.mu.Lock()
	i.location = &loc
	i.updatedAt = now
	i.mu.Unlock()
}

func (i *instance) touch(now time.Time) {
	i.mu.Lock()
	if now.After(i.lastSeen) {
		i.lastSeen = now
	}
	i.mu.Unlock()
}

func (i *instance) markDelivered(now time.Time) {
	i.mu.Lock()
	if i.deliveredAt.IsZero() {
		i.deliveredAt = now
	}
	i.mu.Unlock()
}

// activity returns the latest of the last transition and the last client
// access, and when the final location was delivered.
func (i *instance) activity() (time.Time, time.Time) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	last := i.lastSeen
	if i.updatedAt.After(last) {
		last = i.updatedAt
	}
	return last, i.deliveredAt
}

// post delivers a completion event. It gives up once the instance is closed.
func (i *instance) post(ev domain.Event) {
	select {
	case i.events <- envelope{event: ev}:
	case <-i.ctx.Done():
	}
}
