// Package retry is the single bounded-backoff helper shared by every caller
// that reloads session state, replacing the per-component copies the client
// used to carry.
package retry

import (
	"context"
	"fmt"
	"time"

	"globalquiz-service/internal/domain"

	"github.com/cenkalti/backoff/v4"
)

// Config bounds the retry loop: the base delay doubles per attempt up to
// MaxRetries additional attempts after the first.
type Config struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// DefaultConfig matches the observed client behavior: a handful of retries
// starting from a sub-second delay.
func DefaultConfig() Config {
	return Config{MaxRetries: 4, BaseDelay: 200 * time.Millisecond}
}

// Permanent marks an error as non-retryable; Do returns it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op under exponential backoff. Beyond the ceiling the last error is
// wrapped in domain.ErrExhaustedRetries so callers can show the terminal
// "reload" message instead of retrying further.
func Do[T any](ctx context.Context, cfg Config, op func() (T, error)) (T, error) {
	if cfg.MaxRetries == 0 && cfg.BaseDelay == 0 {
		cfg = DefaultConfig()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.BaseDelay
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0

	attempts := 0
	value, err := backoff.RetryWithData(func() (T, error) {
		attempts++
		return op()
	}, backoff.WithContext(backoff.WithMaxRetries(bo, cfg.MaxRetries), ctx))
	if err == nil {
		return value, nil
	}

	var zero T
	if uint64(attempts) > cfg.MaxRetries {
		return zero, fmt.Errorf("%w after %d attempts: %v", domain.ErrExhaustedRetries, attempts, err)
	}
	return zero, err
}
