package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	errLimiterExceeded    = errors.New("rate limit exceeded")
	errLimiterUnavailable = errors.New("rate limit backend unavailable")
)

// RateLimiter throttles the abuse-prone flows with Redis fixed windows,
// keyed per email or per client IP. A nil *RateLimiter disables throttling,
// which is how tests and redis-less deployments run.
type RateLimiter struct {
	redis       *redis.Client
	window      time.Duration
	maxAttempts int
}

// NewRateLimiter returns a limiter with the given fixed window and budget.
func NewRateLimiter(client *redis.Client, window time.Duration, maxAttempts int) *RateLimiter {
	return &RateLimiter{redis: client, window: window, maxAttempts: maxAttempts}
}

// CheckRegister throttles registration and OTP resend per email.
func (l *RateLimiter) CheckRegister(ctx context.Context, email string) error {
	return l.enforceFixedWindow(ctx, "rl:register:"+email)
}

// CheckVerify throttles OTP verification attempts per email.
func (l *RateLimiter) CheckVerify(ctx context.Context, email string) error {
	return l.enforceFixedWindow(ctx, "rl:verify:"+email)
}

// CheckLogin throttles password attempts per client IP.
func (l *RateLimiter) CheckLogin(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}
	return l.enforceFixedWindow(ctx, "rl:login:"+ip)
}

// CheckReset throttles forgot/reset-password per email.
func (l *RateLimiter) CheckReset(ctx context.Context, email string) error {
	return l.enforceFixedWindow(ctx, "rl:reset:"+email)
}

func (l *RateLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	if l == nil || l.redis == nil {
		return nil
	}

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errLimiterUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", errLimiterUnavailable, err)
		}
	}
	if count > int64(l.maxAttempts) {
		return errLimiterExceeded
	}
	return nil
}

func mapLimiterError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errLimiterExceeded):
		return ErrRateLimited
	default:
		return fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
}
