package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// UnknownClient is the shared identifier for requests without proxy headers.
const UnknownClient = "unknown"

// Policy describes a fixed-window quota.
type Policy struct {
	MaxRequests int
	Window      time.Duration
}

// LoginPolicy is the default quota for PIN login attempts.
var LoginPolicy = Policy{MaxRequests: 5, Window: 15 * time.Minute}

// Result reports the outcome of a single Check.
type Result struct {
	Success   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the time left until the window resets, rounded up to a second.
func (r Result) RetryAfter(now time.Time) time.Duration {
	wait := r.ResetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	return wait.Truncate(time.Second) + time.Second
}

// Store coordinates counters for a specific key.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// Limiter applies policies against a Store.
type Limiter struct {
	store  Store
	prefix string
	now    func() time.Time
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithPrefix namespaces the keys written to the store.
func WithPrefix(prefix string) Option {
	return func(l *Limiter) {
		l.prefix = prefix
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a Limiter backed by store.
func New(store Store, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: store is required")
	}
	l := &Limiter{store: store, prefix: "ratelimit", now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Check counts one request for identifier and reports whether it is admitted.
func (l *Limiter) Check(ctx context.Context, identifier string, policy Policy) (Result, error) {
	if policy.MaxRequests <= 0 || policy.Window <= 0 {
		return Result{}, fmt.Errorf("ratelimit: invalid policy %d/%s", policy.MaxRequests, policy.Window)
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		identifier = UnknownClient
	}

	now := l.now()
	count, ttl, err := l.store.Increment(ctx, l.key(identifier), policy.Window)
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: increment %s: %w", identifier, err)
	}
	if ttl < 0 {
		ttl = 0
	}

	remaining := policy.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Success:   count <= policy.MaxRequests,
		Limit:     policy.MaxRequests,
		Remaining: remaining,
		ResetAt:   now.Add(ttl),
	}, nil
}

func (l *Limiter) key(identifier string) string {
	if l.prefix == "" {
		return identifier
	}
	return l.prefix + ":" + identifier
}

// ClientIP derives the rate limit identifier from proxy headers.
// X-Forwarded-For wins (first hop), then X-Real-IP, else UnknownClient.
func ClientIP(header http.Header) string {
	if forwarded := header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return UnknownClient
}
