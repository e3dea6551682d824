package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestPolicyDelay(t *testing.T) {
	p := Policy{
		MaxAttempts:   5,
		InitialDelay:  time.Second,
		Multiplier:    2,
		RateLimitStep: 15 * time.Second,
		IsRateLimited: func(err error) bool { return strings.Contains(err.Error(), "rate_limit") },
	}

	tests := []struct {
		attempt int
		err     error
		want    time.Duration
	}{
		{1, errBoom, time.Second},
		{2, errBoom, 2 * time.Second},
		{4, errBoom, 8 * time.Second},
		{1, errors.New("rate_limit_error"), 15 * time.Second},
		{3, errors.New("rate_limit_error"), 45 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt, tt.err); got != tt.want {
			t.Errorf("Delay(%d, %v) = %v, want %v", tt.attempt, tt.err, got, tt.want)
		}
	}
}

func TestPolicyDelayCapsAtMax(t *testing.T) {
	p := Policy{InitialDelay: time.Second, Multiplier: 2, MaxDelay: 3 * time.Second}
	if got := p.Delay(5, errBoom); got != 3*time.Second {
		t.Fatalf("expected cap at 3s, got %v", got)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: time.Millisecond}
	calls := 0
	var waits []int

	got, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errBoom
		}
		return "ok", nil
	}, func(attempt int, err error, wait time.Duration) {
		waits = append(waits, attempt)
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
	if len(waits) != 2 {
		t.Fatalf("expected 2 backoff notifications, got %d", len(waits))
	}
}

func TestDoReturnsLastErrorWhenExhausted(t *testing.T) {
	p := Policy{MaxAttempts: 2, InitialDelay: time.Millisecond}
	calls := 0

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, errBoom
	}, nil)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	p := Policy{MaxAttempts: 5, InitialDelay: time.Hour}
	calls := 0

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(errBoom)
	}, nil)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if IsPermanent(err) {
		t.Fatal("permanent marker should be stripped from the returned error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestDoHonoursContextDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	p := Policy{MaxAttempts: 3, InitialDelay: time.Hour}
	start := time.Now()
	_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
		return 0, errBoom
	}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("backoff ignored context cancellation")
	}
}
