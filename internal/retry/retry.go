// Package retry provides a retry mechanism for LLM calls with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timeros/timeros/internal/logger"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

// Config represents retry configuration.
type Config struct {
	MaxAttempts    int           // Maximum number of attempts (default: 3)
	InitialBackoff time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff     time.Duration // Maximum backoff duration (default: 10s)
}

// Do executes fn with retry logic and returns its result, or the last error
// if all attempts fail. Context cancellation is checked between attempts.
func Do[T any](ctx context.Context, cfg Config, log *logger.Logger, fn func() (T, error)) (T, error) {
	var zero T

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialDelay
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxDelay
	}

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			log.DebugCtx(ctx, "Non-retryable error, giving up",
				logger.Field{Key: "attempt", Value: attempt + 1},
				logger.Field{Key: "error", Value: err.Error()})
			return zero, err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		backoff := calculateBackoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff)
		log.DebugCtx(ctx, "Retryable error, backing off",
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "backoff", Value: backoff.String()},
			logger.Field{Key: "error", Value: err.Error()})

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

// IsRetryable checks if an error is retryable based on its message.
// Returns true for timeout, network, rate limit, and temporary errors.
// Returns false for authentication, bad request, not found, and context
// cancellation errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errLower := strings.ToLower(err.Error())

	nonRetryablePatterns := []string{
		"status=400",
		"status=401",
		"status=403",
		"status=404",
		"context canceled",
	}

	for _, pattern := range nonRetryablePatterns {
		if strings.Contains(errLower, pattern) {
			return false
		}
	}

	retryablePatterns := []string{
		"context deadline exceeded",
		"deadline exceeded",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"eof",
		"status=429",
		"too many requests",
		"rate limit",
		"status=5",
		"connection",
		"network",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errLower, pattern) {
			return true
		}
	}

	return false
}

// calculateBackoff returns 2^attempt * initial, capped at max.
func calculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * initial
	if backoff > max {
		return max
	}
	return backoff
}
