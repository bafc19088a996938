package window

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements ports.WindowStore in process memory. It is for
// single-instance development and tests; production deployments share a
// RedisStore across instances.
type InMemoryStore struct {
	mu      sync.RWMutex
	windows map[string]*entry
	now     func() time.Time
}

type entry struct {
	timestamps []time.Time
	expiresAt  time.Time
}

type MemoryOption func(*InMemoryStore)

// WithClock overrides the clock used to expire keys.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		windows: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Get(_ context.Context, key string) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.windows[key]
	if e == nil || !s.now().Before(e.expiresAt) {
		return []time.Time{}, nil
	}
	out := make([]time.Time, len(e.timestamps))
	copy(out, e.timestamps)
	return out, nil
}

func (s *InMemoryStore) Put(_ context.Context, key string, timestamps []time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]time.Time, len(timestamps))
	copy(stored, timestamps)
	s.windows[key] = &entry{timestamps: stored, expiresAt: s.now().Add(ttl)}
	s.evictExpired()
	return nil
}

// evictExpired drops expired keys. Must be called while holding s.mu.
func (s *InMemoryStore) evictExpired() {
	now := s.now()
	for k, e := range s.windows {
		if !now.Before(e.expiresAt) {
			delete(s.windows, k)
		}
	}
}
