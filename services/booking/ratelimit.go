package booking

import (
	"context"
	"sync"
	"time"

	"rentflow/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RateLimiter guards the decision to submit a booking at all: a sliding
// window of attempt timestamps with a temporary lockout once the cap is hit.
// State lives for the whole session and is cleared only by a confirmed
// booking. The lockout itself is mirrored to Redis so a process restart
// cannot wipe an active block.
type RateLimiter struct {
	Window      time.Duration
	MaxAttempts int
	Logger      *zap.Logger

	// Cache is optional; when nil the limiter is purely in-memory.
	Cache *redis.Client
	// Key distinguishes this limiter's lockout entry in the cache.
	Key string

	// Now is swappable for tests.
	Now func() time.Time

	mu           sync.Mutex
	attempts     []time.Time
	blockedUntil *time.Time
}

// NewRateLimiter builds a limiter for one wizard session.
func NewRateLimiter(window time.Duration, maxAttempts int, cache *redis.Client, key string, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		Window:      window,
		MaxAttempts: maxAttempts,
		Cache:       cache,
		Key:         key,
		Logger:      logger,
		Now:         time.Now,
	}
}

// CanSubmit decides whether another booking attempt is allowed right now.
// Inside a lockout it fails with RateLimitedError carrying the remaining
// duration; otherwise it prunes stale attempts and, if the window is full,
// starts a lockout one window-length into the future.
func (l *RateLimiter) CanSubmit() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.Now()

	if l.blockedUntil == nil {
		l.restoreLockout()
	}
	if l.blockedUntil != nil {
		if now.Before(*l.blockedUntil) {
			return &RateLimitedError{RetryAfter: l.blockedUntil.Sub(now)}
		}
		l.blockedUntil = nil
	}

	l.prune(now)

	if len(l.attempts) >= l.MaxAttempts {
		until := now.Add(l.Window)
		l.blockedUntil = &until
		l.persistLockout(until)
		l.Logger.Warn("submission rate limit hit, locking out",
			zap.String("key", l.Key),
			zap.Time("until", until))
		return &RateLimitedError{RetryAfter: l.Window}
	}

	return nil
}

// RecordAttempt appends the current timestamp. Called exactly once per
// submission attempt, always after a successful CanSubmit.
func (l *RateLimiter) RecordAttempt() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, l.Now())
}

// Reset clears all limiter state. Invoked only after a confirmed booking.
func (l *RateLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.attempts = nil
	l.blockedUntil = nil
	if l.Cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		l.Cache.Del(ctx, utils.LockoutCachePrefix+l.Key)
	}
}

// prune drops attempts older than the trailing window. Caller holds the lock.
func (l *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.Window)
	kept := l.attempts[:0]
	for _, t := range l.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.attempts = kept
}

// persistLockout mirrors the lockout into Redis with a matching TTL.
func (l *RateLimiter) persistLockout(until time.Time) {
	if l.Cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ttl := time.Until(until)
	if err := l.Cache.Set(ctx, utils.LockoutCachePrefix+l.Key, until.Format(time.RFC3339), ttl).Err(); err != nil {
		l.Logger.Warn("failed to persist lockout", zap.Error(err))
	}
}

// restoreLockout pulls a surviving lockout from Redis. Caller holds the lock.
func (l *RateLimiter) restoreLockout() {
	if l.Cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, err := l.Cache.Get(ctx, utils.LockoutCachePrefix+l.Key).Result()
	if err != nil {
		return
	}
	until, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return
	}
	l.blockedUntil = &until
}
