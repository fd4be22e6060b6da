package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/notify-outbox/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "notify-outbox:throttle"
	backoffStep   = 20 * time.Millisecond
	backoffMax    = 200 * time.Millisecond
	windowSeconds = 1
)

// Fixed one-second window shared by every worker process.
var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.Limiter = (*Throttle)(nil)

// Throttle caps sends per (channel, provider) across all workers sharing Redis.
type Throttle struct {
	client      *goredis.Client
	limitPerSec int64
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewThrottle(client *goredis.Client, limitPerSec int) (*Throttle, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limitPerSec <= 0 {
		return nil, fmt.Errorf("limit per second must be positive, got %d", limitPerSec)
	}

	return &Throttle{
		client:      client,
		limitPerSec: int64(limitPerSec),
		now:         time.Now,
		sleep:       sleepWithContext,
	}, nil
}

func (t *Throttle) Allow(ctx context.Context, key string) (bool, error) {
	if t == nil || t.client == nil {
		return false, fmt.Errorf("throttle is not initialized")
	}

	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false, fmt.Errorf("rate limit key is required")
	}

	windowKey := fmt.Sprintf("%s:%s:%d", keyPrefix, key, t.now().UTC().Unix())
	result, err := allowScript.Run(ctx, t.client, []string{windowKey}, t.limitPerSec, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	return result == 1, nil
}

// Wait polls Allow with a growing pause until the window admits the call or
// ctx ends.
func (t *Throttle) Wait(ctx context.Context, key string) error {
	backoff := backoffStep
	for {
		allowed, err := t.Allow(ctx, key)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if err := t.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = min(backoff*2, backoffMax)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
