package transfer

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Retry defaults
const (
	DefaultMaxRetries    = 2
	DefaultRetryDelay    = 500 * time.Millisecond
	DefaultMaxRetryDelay = 10 * time.Second
	DefaultJitterFactor  = 0.2
)

// permanentError marks a failure that retrying cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the pool records it without retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// retry runs fn up to maxRetries+1 times with exponential backoff. Attempts
// are strictly sequential. Waiting stops early when ctx is done, returning
// the last attempt's error.
func retry(ctx context.Context, cfg PoolConfig, fn func(attempt int) error) (int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		attempts++
		if lastErr = fn(attempt); lastErr == nil {
			return attempts, nil
		}

		if IsPermanent(lastErr) || attempt == cfg.MaxRetries {
			break
		}

		timer := time.NewTimer(backoffDelay(cfg, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempts, lastErr
		case <-timer.C:
		}
	}
	return attempts, lastErr
}

// backoffDelay calculates exponential backoff with jitter
func backoffDelay(cfg PoolConfig, attempt int) time.Duration {
	delay := cfg.RetryDelay << min(attempt, 6)
	if cfg.MaxRetryDelay > 0 && delay > cfg.MaxRetryDelay {
		delay = cfg.MaxRetryDelay
	}
	if cfg.JitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * cfg.JitterFactor * (rand.Float64() - 0.5)
	return time.Duration(float64(delay) + jitter)
}
