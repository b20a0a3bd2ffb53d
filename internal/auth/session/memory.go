package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/storefront/internal/clock"
)

// MemoryStore keeps sessions in process. Used when no redis address is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryEntry
	ttl     time.Duration
	clock   clock.Clock
}

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration, clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &MemoryStore{
		records: make(map[string]memoryEntry),
		ttl:     ttl,
		clock:   clk,
	}
}

func (s *MemoryStore) Get(ctx context.Context, sid string) (*Record, error) {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return nil, ErrSessionIDRequired
	}

	s.mu.RLock()
	entry, ok := s.records[sid]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !s.clock.Now().Before(entry.expiresAt) {
		s.mu.Lock()
		delete(s.records, sid)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	record := entry.record
	return &record, nil
}

func (s *MemoryStore) Set(ctx context.Context, sid string, record Record) error {
	sid = strings.TrimSpace(sid)
	if sid == "" {
		return ErrSessionIDRequired
	}

	now := s.clock.Now()
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
	entry := memoryEntry{record: record}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}

	s.mu.Lock()
	s.records[sid] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, sid string) error {
	s.mu.Lock()
	delete(s.records, strings.TrimSpace(sid))
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Monitor(ctx context.Context, sid string, interval time.Duration, onTick func(ctx context.Context)) func() {
	return poll(ctx, interval, onTick)
}
