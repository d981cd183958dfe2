package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited is matched by every LimitedError.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps failures talking to Redis.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// LimitedError reports a throttled login and when the window reopens.
type LimitedError struct {
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *LimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
