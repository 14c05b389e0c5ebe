// Package ratelimit implements fixed-window request counting for the
// unauthenticated gateway. Windows are keyed by (name, source, window start),
// so a window resets by falling out of scope rather than by cleanup work.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"shopcore/pkg/platform/httputil"
	"shopcore/pkg/requestcontext"
)

// CounterStore increments and returns the hit count for one window key.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Limiter applies a fixed-window limit per source key.
type Limiter struct {
	store  CounterStore
	logger *slog.Logger
	now    func() time.Time

	name   string
	limit  int64
	window time.Duration
}

// Option configures a Limiter.
type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New builds a limiter allowing limit hits per window per source.
func New(store CounterStore, name string, limit int64, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{store: store, name: name, limit: limit, window: window, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow counts a hit from source and reports whether it fits the window.
// A counter backend failure fails closed: an attacker who can break the
// backend must not gain an unlimited window.
func (l *Limiter) Allow(ctx context.Context, source string) bool {
	windowStart := l.now().UTC().Truncate(l.window).Unix()
	key := fmt.Sprintf("ratelimit:%s:%s:%d", l.name, source, windowStart)

	count, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		if l.logger != nil {
			l.logger.ErrorContext(ctx, "rate limit counter failed", "name", l.name, "error", err)
		}
		return false
	}
	return count <= l.limit
}

// Middleware rejects over-limit requests with the same uniform forbidden
// response an invalid token gets. The limit is checked before any token work
// so token verification itself cannot be brute-forced.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		source := requestcontext.ClientIP(r.Context())
		if source == "" {
			source = r.RemoteAddr
		}
		if !l.Allow(r.Context(), source) {
			httputil.WriteForbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MemoryCounter is the in-process counter backend. Entries expire by key
// rotation; a janitor sweep drops windows past their TTL.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]memoryWindow
	now    func() time.Time
}

type memoryWindow struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]memoryWindow), now: time.Now}
}

// WithClock overrides the expiry clock, for tests.
func (m *MemoryCounter) WithClock(now func() time.Time) *MemoryCounter {
	m.now = now
	return m
}

func (m *MemoryCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.counts[key]
	if !ok || now.After(w.expiresAt) {
		w = memoryWindow{expiresAt: now.Add(ttl)}
	}
	w.count++
	m.counts[key] = w

	if len(m.counts) > 1<<14 {
		m.sweep(now)
	}
	return w.count, nil
}

func (m *MemoryCounter) sweep(now time.Time) {
	for key, w := range m.counts {
		if now.After(w.expiresAt) {
			delete(m.counts, key)
		}
	}
}

// RedisCounter shares windows across replicas via INCR plus a TTL set on
// first hit.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count, nil
}
