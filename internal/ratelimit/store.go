package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/baselineanalytics/portal/internal/cache"
)

// MemoryStore provides process-local rate limiting. It is concurrency-safe.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[string]*memoryCounter
	tick  *time.Ticker
	done  chan struct{}
	once  sync.Once
	clock func() time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryStore constructs an in-memory store swept every sweepInterval.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	store := &MemoryStore{
		data:  make(map[string]*memoryCounter),
		tick:  time.NewTicker(sweepInterval),
		done:  make(chan struct{}),
		clock: time.Now,
	}

	go store.cleanupLoop()
	return store
}

// SetClock overrides the time source, primarily for tests.
func (s *MemoryStore) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if clock != nil {
		s.clock = clock
	}
}

// Close stops the sweeper.
func (s *MemoryStore) Close() {
	s.once.Do(func() {
		s.tick.Stop()
		close(s.done)
	})
}

func (s *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.tick.C:
			s.Sweep()
		}
	}
}

// Sweep removes counters whose window has ended.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	for key, counter := range s.data {
		if !now.Before(counter.windowEnd) {
			delete(s.data, key)
		}
	}
}

// Len reports the number of live counters.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Increment counts a hit for key, opening a new window when none is active.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	counter, ok := s.data[key]
	if !ok || !now.Before(counter.windowEnd) {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}

	counter.count++

	return counter.count, counter.windowEnd.Sub(now), nil
}

// CacheStore adapts a shared cache.Store (database or Redis) for multi-instance deployments.
type CacheStore struct {
	store cache.Store
}

// NewCacheStore wraps store. It returns nil when store is nil.
func NewCacheStore(store cache.Store) *CacheStore {
	if store == nil {
		return nil
	}
	return &CacheStore{store: store}
}

// Increment delegates to the cache's fixed-window counter.
func (s *CacheStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	return int(count), ttl, err
}
