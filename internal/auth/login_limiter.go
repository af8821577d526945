package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

const loginAttemptsPrefix = "login_attempts:"

// LoginLimiter counts failed logins per identifier in a fixed window.
// Redis failures never block a login; the limiter then allows the attempt.
// A nil *LoginLimiter allows everything.
type LoginLimiter struct {
	client      redis.Cmdable
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginLimiter builds a limiter. maxAttempts <= 0 disables throttling.
func NewLoginLimiter(client redis.Cmdable, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	if client == nil || maxAttempts <= 0 {
		return nil
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window, logger: logger}
}

func attemptsKey(identifier string) string {
	return loginAttemptsPrefix + strings.ToLower(strings.TrimSpace(identifier))
}

// Allow returns domain.ErrTooManyAttempts once the identifier has used up its window.
func (l *LoginLimiter) Allow(ctx context.Context, identifier string) error {
	if l == nil {
		return nil
	}
	count, err := l.client.Get(ctx, attemptsKey(identifier)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.logger.Warn("login limiter unavailable", zap.Error(err))
		}
		return nil
	}
	if count >= l.maxAttempts {
		return domain.ErrTooManyAttempts
	}
	return nil
}

// RecordFailure counts one failed attempt. The window starts at the first failure.
func (l *LoginLimiter) RecordFailure(ctx context.Context, identifier string) {
	if l == nil {
		return
	}
	key := attemptsKey(identifier)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		l.logger.Warn("login limiter record failed", zap.Error(err))
	}
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, identifier string) {
	if l == nil {
		return
	}
	if err := l.client.Del(ctx, attemptsKey(identifier)).Err(); err != nil {
		l.logger.Warn("login limiter reset failed", zap.Error(err))
	}
}
