package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/timeros/timeros/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

func fastConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastConfig(), testLogger(t), func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if result != "ok" {
		t.Errorf("Result = %q", result)
	}
	if calls != 1 {
		t.Errorf("Calls = %d, want 1", calls)
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastConfig(), testLogger(t), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("connection refused")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if result != 42 {
		t.Errorf("Result = %d", result)
	}
	if calls != 3 {
		t.Errorf("Calls = %d, want 3", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(), testLogger(t), func() (string, error) {
		calls++
		return "", fmt.Errorf("timeout")
	})
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("Calls = %d, want 3", calls)
	}
	if !strings.Contains(err.Error(), "all 3 attempts failed") {
		t.Errorf("Error = %v", err)
	}
}

func TestDo_NonRetryableShortCircuits(t *testing.T) {
	calls := 0
	sentinel := fmt.Errorf("HTTP error: status=401, body=unauthorized")
	_, err := Do(context.Background(), fastConfig(), testLogger(t), func() (string, error) {
		calls++
		return "", sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Error = %v, want the original error", err)
	}
	if calls != 1 {
		t.Errorf("Calls = %d, want 1", calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, Config{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}, testLogger(t), func() (string, error) {
		calls++
		cancel()
		return "", fmt.Errorf("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("Calls = %d, want 1", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("HTTP error: status=400, body=bad request"), false},
		{fmt.Errorf("HTTP error: status=401, body=unauthorized"), false},
		{fmt.Errorf("HTTP error: status=404, body=not found"), false},
		{fmt.Errorf("context canceled"), false},
		{fmt.Errorf("HTTP error: status=429, body=rate limited"), true},
		{fmt.Errorf("HTTP error: status=500, body=oops"), true},
		{fmt.Errorf("HTTP error: status=503, body=unavailable"), true},
		{fmt.Errorf("dial tcp: connection refused"), true},
		{fmt.Errorf("context deadline exceeded"), true},
		{fmt.Errorf("request timeout"), true},
		{fmt.Errorf("unexpected EOF"), true},
		{fmt.Errorf("something unclassified"), false},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	initial := time.Second
	max := 10 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second}, // capped
		{10, 10 * time.Second},
	}

	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt, initial, max); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
