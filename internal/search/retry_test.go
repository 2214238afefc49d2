package search

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func fastRetryConfig() retryConfig {
	return retryConfig{
		maxAttempts:  3,
		initialDelay: time.Millisecond,
		maxDelay:     5 * time.Millisecond,
		multiplier:   2.0,
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(), func() error {
		attempts++
		if attempts < 2 {
			return io.ErrUnexpectedEOF
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryWithBackoff returned %v, want nil", err)
	}
	if attempts != 2 {
		t.Fatalf("fn ran %d times, want 2", attempts)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("unexpected payload shape")
	attempts := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("retryWithBackoff returned %v, want the permanent error", err)
	}
	if attempts != 1 {
		t.Fatalf("fn ran %d times, want 1", attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("retryWithBackoff returned %v, want deadline exceeded", err)
	}
	if attempts != 3 {
		t.Fatalf("fn ran %d times, want 3", attempts)
	}
}

func TestRetryRespectsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := retryWithBackoff(ctx, fastRetryConfig(), func() error {
		attempts++
		cancel()
		return io.EOF
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("retryWithBackoff returned %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Fatalf("fn ran %d times, want 1", attempts)
	}
}

func TestIsTransientError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{io.EOF, true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("tls: handshake failure"), true},
		{errors.New("fetch HTTP 404: not found"), false},
	}
	for _, tc := range cases {
		if got := isTransientError(tc.err); got != tc.want {
			t.Fatalf("isTransientError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
