package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "login_attempts:"

// fixedWindow increments the counter and starts its expiry on the first hit.
// Returns {count, remaining_ms}.
var fixedWindow = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return { count, ttl }
`)

type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// LoginLimiter counts attempts per key in a fixed window. A nil client or a
// non-positive limit disables it.
type LoginLimiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

func NewLoginLimiter(rdb *redis.Client, limit int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{rdb: rdb, max: limit, window: window}
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.rdb != nil && l.max > 0 && l.window > 0
}

// Hit records an attempt for key and reports whether it may proceed.
func (l *LoginLimiter) Hit(ctx context.Context, key string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}

	vals, err := fixedWindow.Run(ctx, l.rdb, []string{keyPrefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("ratelimit: %w", err)
	}
	if len(vals) != 2 {
		return Decision{Allowed: true}, fmt.Errorf("ratelimit: unexpected script result %v", vals)
	}

	count, ttl := int(vals[0]), time.Duration(vals[1])*time.Millisecond
	d := Decision{Allowed: count <= l.max, Remaining: l.max - count}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !d.Allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}

// Reset forgets the attempts recorded for key.
func (l *LoginLimiter) Reset(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	return l.rdb.Del(ctx, keyPrefix+key).Err()
}

// NewClient returns nil when addr is empty or the server does not answer a
// ping, so callers run without throttling.
func NewClient(ctx context.Context, addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
