package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/baselineanalytics/portal/internal/cache"
	"github.com/baselineanalytics/portal/internal/database/testutil"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newMemoryLimiter(t *testing.T) (*Limiter, *MemoryStore, *manualClock) {
	t.Helper()

	clock := &manualClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(time.Hour)
	store.SetClock(clock.Now)
	t.Cleanup(store.Close)

	limiter, err := New(store, WithClock(clock.Now))
	require.NoError(t, err)
	return limiter, store, clock
}

func TestLimiterFixedWindowSequence(t *testing.T) {
	limiter, _, clock := newMemoryLimiter(t)
	ctx := context.Background()
	policy := Policy{MaxRequests: 3, Window: time.Minute}
	start := clock.now

	for _, expected := range []int{2, 1, 0} {
		result, err := limiter.Check(ctx, "ip-A", policy)
		require.NoError(t, err)
		require.True(t, result.Success)
		require.Equal(t, 3, result.Limit)
		require.Equal(t, expected, result.Remaining)
		require.Equal(t, start.Add(time.Minute), result.ResetAt)
		clock.Advance(5 * time.Second)
	}

	result, err := limiter.Check(ctx, "ip-A", policy)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, 0, result.Remaining)
	require.Equal(t, start.Add(time.Minute), result.ResetAt)

	clock.now = start.Add(time.Minute)
	result, err = limiter.Check(ctx, "ip-A", policy)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 2, result.Remaining)
	require.Equal(t, clock.now.Add(time.Minute), result.ResetAt)
}

func TestLimiterIdentifiersAreIndependent(t *testing.T) {
	limiter, _, _ := newMemoryLimiter(t)
	ctx := context.Background()
	policy := Policy{MaxRequests: 1, Window: time.Minute}

	first, err := limiter.Check(ctx, "ip-A", policy)
	require.NoError(t, err)
	require.True(t, first.Success)

	blocked, err := limiter.Check(ctx, "ip-A", policy)
	require.NoError(t, err)
	require.False(t, blocked.Success)

	other, err := limiter.Check(ctx, "ip-B", policy)
	require.NoError(t, err)
	require.True(t, other.Success)
}

func TestLimiterRejectsInvalidPolicy(t *testing.T) {
	limiter, _, _ := newMemoryLimiter(t)

	_, err := limiter.Check(context.Background(), "ip", Policy{MaxRequests: 0, Window: time.Minute})
	require.Error(t, err)
	_, err = limiter.Check(context.Background(), "ip", Policy{MaxRequests: 1})
	require.Error(t, err)
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("boom")
}

func TestLimiterSurfacesStoreErrors(t *testing.T) {
	limiter, err := New(failingStore{})
	require.NoError(t, err)

	_, err = limiter.Check(context.Background(), "ip", LoginPolicy)
	require.Error(t, err)

	_, err = New(nil)
	require.Error(t, err)
}

func TestMemoryStoreSweepRemovesExpiredWindows(t *testing.T) {
	limiter, store, clock := newMemoryLimiter(t)
	ctx := context.Background()

	_, err := limiter.Check(ctx, "ip-A", Policy{MaxRequests: 5, Window: time.Minute})
	require.NoError(t, err)
	_, err = limiter.Check(ctx, "ip-B", Policy{MaxRequests: 5, Window: time.Hour})
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	clock.Advance(2 * time.Minute)
	store.Sweep()
	require.Equal(t, 1, store.Len())

	store.Close()
	store.Close()
}

func TestCacheStoreUsesSharedCounters(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewCacheStore(cache.NewDatabaseStore(db))
	require.NotNil(t, store)
	require.Nil(t, NewCacheStore(nil))

	limiter, err := New(store, WithPrefix("login"))
	require.NoError(t, err)

	policy := Policy{MaxRequests: 2, Window: time.Minute}
	ctx := context.Background()

	first, err := limiter.Check(ctx, "10.0.0.1", policy)
	require.NoError(t, err)
	require.True(t, first.Success)
	require.Equal(t, 1, first.Remaining)

	second, err := limiter.Check(ctx, "10.0.0.1", policy)
	require.NoError(t, err)
	require.True(t, second.Success)
	require.Equal(t, 0, second.Remaining)

	third, err := limiter.Check(ctx, "10.0.0.1", policy)
	require.NoError(t, err)
	require.False(t, third.Success)
	require.False(t, third.ResetAt.IsZero())
}

func TestResultRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	result := Result{ResetAt: now.Add(1500 * time.Millisecond)}
	require.Equal(t, 2*time.Second, result.RetryAfter(now))
	require.Zero(t, Result{ResetAt: now}.RetryAfter(now))
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8", "X-Real-IP": "9.9.9.9"}, "1.2.3.4"},
		{"real ip fallback", map[string]string{"X-Real-IP": "9.9.9.9"}, "9.9.9.9"},
		{"empty forwarded", map[string]string{"X-Forwarded-For": " ", "X-Real-IP": "9.9.9.9"}, "9.9.9.9"},
		{"unknown", map[string]string{}, UnknownClient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			header := http.Header{}
			for key, value := range tc.headers {
				header.Set(key, value)
			}
			require.Equal(t, tc.expected, ClientIP(header))
		})
	}
}
