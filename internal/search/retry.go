package search

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"strings"
	"time"
)

// retryConfig controls the exponential backoff used around page and
// detail-page fetches.
type retryConfig struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxAttempts:  2,
		initialDelay: 400 * time.Millisecond,
		maxDelay:     3 * time.Second,
		multiplier:   2.0,
	}
}

// retryWithBackoff retries fn on transient network errors with exponential
// backoff and ±25% jitter. Non-transient errors return immediately; context
// cancellation between attempts is respected.
func retryWithBackoff(ctx context.Context, cfg retryConfig, fn func() error) error {
	if cfg.maxAttempts <= 0 {
		cfg.maxAttempts = 1
	}

	var lastErr error
	delay := cfg.initialDelay

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransientError(lastErr) {
			return lastErr
		}
		if attempt == cfg.maxAttempts-1 {
			break
		}

		jittered := time.Duration(float64(delay) * (0.75 + rand.Float64()*0.5))
		if jittered > cfg.maxDelay {
			jittered = cfg.maxDelay
		}
		timer := time.NewTimer(jittered)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.multiplier)
		if delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}
	}
	return lastErr
}

// isTransientError reports whether a fetch failure may succeed on retry:
// timeouts, resets, EOF, TLS handshake trouble.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "tls")
}
