// Package ratelimit throttles provider calls per (channel, provider).
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter gates outbound sends. Wait blocks until a send for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}

// Key builds the limiter key for a provider on a channel.
func Key(channel, provider string) string {
	return fmt.Sprintf("%s:%s", normalize(channel), normalize(provider))
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Noop never throttles.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }
func (Noop) Wait(context.Context, string) error          { return nil }

// Local is an in-process token bucket per key, used when no shared store is
// configured. Limits are per worker process.
type Local struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewLocal(perSecond int) *Local {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Local{
		limit:    rate.Limit(perSecond),
		burst:    perSecond,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	limiter, err := l.limiterFor(key)
	if err != nil {
		return false, err
	}
	return limiter.Allow(), nil
}

func (l *Local) Wait(ctx context.Context, key string) error {
	limiter, err := l.limiterFor(key)
	if err != nil {
		return err
	}
	return limiter.Wait(ctx)
}

func (l *Local) limiterFor(key string) (*rate.Limiter, error) {
	key = normalize(key)
	if key == "" {
		return nil, fmt.Errorf("rate limit key is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	return limiter, nil
}
