package rate

import (
	"context"
	"fmt"
	"time"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Store counts attempts per key inside a fixed window.
type Store interface {
	// Incr increments the key's bucket, starting a new window on the first
	// hit, and returns the new count plus the time left in the window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)

	// Reset clears the key's bucket.
	Reset(ctx context.Context, key string) error

	// Sweep drops buckets whose window has rolled over. Advisory only.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Limiter enforces the per-IP login attempt budget.
type Limiter struct {
	store  Store
	config Config
}

// New creates a [Limiter] on top of the given counter store.
func New(store Store, cfg Config) *Limiter {
	return &Limiter{store: store, config: cfg}
}

// Attempt records one login attempt from ip and returns a [LimitError]
// once the budget is exceeded. Attempts are counted before credentials
// are examined, so the limit binds whether or not the login would have
// succeeded.
func (l *Limiter) Attempt(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}

	count, remaining, err := l.store.Incr(ctx, loginIPKey(ip), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return &LimitError{RetryAfter: remaining}
	}

	return nil
}

// Reset clears the attempt counter for ip. Called after successful login.
func (l *Limiter) Reset(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}
	return l.store.Reset(ctx, loginIPKey(ip))
}

// Sweep forwards to the store's advisory cleanup.
func (l *Limiter) Sweep(ctx context.Context, now time.Time) (int, error) {
	return l.store.Sweep(ctx, now)
}

// LimitError reports a rejected attempt and how long the caller should
// wait before retrying.
type LimitError struct {
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *LimitError) Unwrap() error {
	return ErrRateLimited
}

func loginIPKey(ip string) string {
	return "bal:" + ip
}
