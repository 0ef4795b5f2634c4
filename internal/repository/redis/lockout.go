package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/social-platform-auth/internal/core/port"
)

// LockoutConfig defines the failure threshold and cool-down window for the
// brute-force counter.
type LockoutConfig struct {
	KeyPrefix string
	Threshold int
	Duration  time.Duration
}

// LockoutRepository tracks failed sign-in attempts per email in Redis.
//
// Two keys per identifier: a failure counter that expires after the cool-down
// window, and a lock marker set once the counter crosses the threshold. INCR
// is atomic, so concurrent failures cannot double-trigger the lock.
type LockoutRepository struct {
	client *redis.Client
	cfg    LockoutConfig
}

// NewLockoutRepository constructs a LockoutRepository.
func NewLockoutRepository(client *redis.Client, cfg LockoutConfig) *LockoutRepository {
	return &LockoutRepository{client: client, cfg: cfg}
}

// IsLocked reports whether the identifier is currently locked out.
func (r *LockoutRepository) IsLocked(ctx context.Context, email string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.lockKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}

	return exists > 0, nil
}

// RecordFailure increments the failure counter and returns true iff this
// failure is the one that crossed the threshold.
func (r *LockoutRepository) RecordFailure(ctx context.Context, email string) (bool, error) {
	if r.cfg.Threshold <= 0 {
		return false, errors.New("lockout threshold must be positive")
	}

	counterKey := r.counterKey(email)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, r.cfg.Duration)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis incr failures: %w", err)
	}

	count := incr.Val()
	if count != int64(r.cfg.Threshold) {
		return false, nil
	}

	if err := r.client.Set(ctx, r.lockKey(email), count, r.cfg.Duration).Err(); err != nil {
		return false, fmt.Errorf("redis set lock: %w", err)
	}

	return true, nil
}

// ClearFailures drops the counter and the lock marker after a successful
// sign-in.
func (r *LockoutRepository) ClearFailures(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, r.counterKey(email), r.lockKey(email)).Err(); err != nil {
		return fmt.Errorf("redis del failures: %w", err)
	}

	return nil
}

func (r *LockoutRepository) counterKey(email string) string {
	return fmt.Sprintf("%s:fail:%s", r.cfg.KeyPrefix, email)
}

func (r *LockoutRepository) lockKey(email string) string {
	return fmt.Sprintf("%s:lock:%s", r.cfg.KeyPrefix, email)
}

var _ port.AccountLockoutService = (*LockoutRepository)(nil)
