// Package ratelimit throttles failed logins with fixed-window Redis counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "auth:login:"

// Config holds limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts failed logins per email and per client IP.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, config: cfg}
}

// Check returns a *LimitedError when either counter has reached the budget.
func (l *Limiter) Check(ctx context.Context, email, ip string) error {
	var retryAfter time.Duration
	for _, key := range l.keys(email, ip) {
		count, err := l.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count < int64(l.config.MaxAttempts) {
			continue
		}
		ttl, err := l.redis.PTTL(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if ttl <= 0 {
			ttl = l.config.Window
		}
		if ttl > retryAfter {
			retryAfter = ttl
		}
	}
	if retryAfter > 0 {
		return &LimitedError{RetryAfter: retryAfter}
	}
	return nil
}

// RecordFailure increments both counters. The window starts at the first failure.
func (l *Limiter) RecordFailure(ctx context.Context, email, ip string) error {
	for _, key := range l.keys(email, ip) {
		if err := l.incrementWithTTL(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the email counter after a successful login. The IP counter is kept
// so one address cannot reset its budget with a known account.
func (l *Limiter) Reset(ctx context.Context, email string) error {
	if err := l.redis.Del(ctx, emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) keys(email, ip string) []string {
	keys := []string{emailKey(email)}
	if ip != "" {
		keys = append(keys, ipKey(ip))
	}
	return keys
}

// incrementWithTTL bumps key and arms its expiry in one transaction, so a
// counter never outlives a failed EXPIRE. NX keeps the window anchored at the
// first failure.
func (l *Limiter) incrementWithTTL(ctx context.Context, key string) error {
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.config.Window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func emailKey(email string) string {
	return keyPrefix + "email:" + strings.ToLower(strings.TrimSpace(email))
}

func ipKey(ip string) string {
	return keyPrefix + "ip:" + ip
}
