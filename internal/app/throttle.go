package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shrimpsizemoose/trekker/logger"
)

// LoginThrottle counts failed login attempts per principal in Redis and
// rejects further attempts over the limit inside the window. Disabled when
// no redis URL is configured; fails open on Redis errors so a Redis outage
// never locks everybody out.
type LoginThrottle struct {
	enabled bool
	redis   *redis.Client
	limit   int64
	window  time.Duration
}

func NewLoginThrottle(config *Config) (*LoginThrottle, error) {
	if config.Auth.RedisURL == "" {
		return &LoginThrottle{enabled: false}, nil
	}

	opt, err := redis.ParseURL(config.Auth.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &LoginThrottle{
		enabled: true,
		redis:   client,
		limit:   config.Auth.LoginAttemptLimit,
		window:  time.Duration(config.Auth.LoginAttemptWindowMinutes) * time.Minute,
	}, nil
}

func (t *LoginThrottle) key(principal string) string {
	return "login_attempts:" + principal
}

// Allow reports whether another login attempt is permitted.
func (t *LoginThrottle) Allow(ctx context.Context, principal string) bool {
	if !t.enabled {
		return true
	}

	key := t.key(principal)
	attempts, err := t.redis.Incr(ctx, key).Result()
	if err != nil {
		logger.Error.Printf("Login throttle redis error: %v", err)
		return true
	}
	if attempts == 1 {
		t.redis.Expire(ctx, key, t.window)
	}
	return attempts <= t.limit
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, principal string) {
	if !t.enabled {
		return
	}
	if err := t.redis.Del(ctx, t.key(principal)).Err(); err != nil {
		logger.Debug.Printf("Login throttle reset failed for %s: %v", principal, err)
	}
}

func (t *LoginThrottle) Close() error {
	if t.redis != nil {
		return t.redis.Close()
	}
	return nil
}
