// Package limiter throttles repeated failed logins using Redis counters.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTooManyAttempts  = errors.New("too many failed login attempts")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const keyPrefix = "stockpilot:login"

// Config holds the failed-login budget.
type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// LoginThrottle counts failed logins per email and per client IP in fixed
// windows of Cooldown. A nil Redis client disables throttling.
type LoginThrottle struct {
	redis  redis.UniversalClient
	config Config
}

// NewLoginThrottle creates a LoginThrottle backed by the given Redis client.
func NewLoginThrottle(client redis.UniversalClient, cfg Config) *LoginThrottle {
	return &LoginThrottle{redis: client, config: cfg}
}

func (l *LoginThrottle) enabled() bool {
	return l != nil && l.redis != nil && l.config.MaxAttempts > 0
}

// Check returns ErrTooManyAttempts once either counter has reached the budget.
func (l *LoginThrottle) Check(ctx context.Context, email, ip string) error {
	if !l.enabled() {
		return nil
	}
	for _, key := range keys(email, ip) {
		count, err := l.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count >= int64(l.config.MaxAttempts) {
			return ErrTooManyAttempts
		}
	}
	return nil
}

// Fail records a failed attempt against the email and the IP.
func (l *LoginThrottle) Fail(ctx context.Context, email, ip string) error {
	if !l.enabled() {
		return nil
	}
	for _, key := range keys(email, ip) {
		count, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		// Fixed window: the first failure starts the cooldown.
		if count == 1 {
			if err := l.redis.Expire(ctx, key, l.config.Cooldown).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
	}
	return nil
}

// Reset clears the email counter after a successful login. The IP counter
// keeps running so one address cannot probe many accounts.
func (l *LoginThrottle) Reset(ctx context.Context, email string) error {
	if !l.enabled() {
		return nil
	}
	if err := l.redis.Del(ctx, emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func keys(email, ip string) []string {
	k := []string{emailKey(email)}
	if ip != "" {
		k = append(k, keyPrefix+":ip:"+ip)
	}
	return k
}

func emailKey(email string) string {
	return keyPrefix + ":email:" + strings.ToLower(strings.TrimSpace(email))
}
