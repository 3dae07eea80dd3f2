package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iam-hyo/2601-VPI-V3--shorts-pipline/retry"
)

func TestDelay_GrowsExponentially(t *testing.T) {
	p := retry.New(5, time.Second, time.Hour)

	tests := []struct {
		attempt int
		base    time.Duration
	}{
		{1, 1 * time.Second}, // 1 * 2^0
		{2, 2 * time.Second}, // 1 * 2^1
		{3, 4 * time.Second}, // 1 * 2^2
		{4, 8 * time.Second}, // 1 * 2^3
	}
	for _, tt := range tests {
		got := p.Delay(tt.attempt)
		low := time.Duration(float64(tt.base) * 0.85)
		high := time.Duration(float64(tt.base) * 1.15)
		if got < low || got > high {
			t.Errorf("Delay(%d) = %v, want within [%v, %v]", tt.attempt, got, low, high)
		}
	}
}

func TestDelay_CapsAtMax(t *testing.T) {
	p := retry.New(10, time.Second, 4*time.Second)

	for attempt := 3; attempt <= 10; attempt++ {
		got := p.Delay(attempt)
		high := time.Duration(float64(4*time.Second) * 1.15)
		if got > high {
			t.Errorf("Delay(%d) = %v, want at most %v (capped at Max before jitter)", attempt, got, high)
		}
	}
}

func TestDo_SucceedsWithoutRetry(t *testing.T) {
	p := retry.New(3, time.Millisecond, time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_AttemptsExactlyMaxAndReturnsLastError(t *testing.T) {
	p := retry.New(3, time.Millisecond, time.Millisecond)

	errFirst := errors.New("boom 1")
	errLast := errors.New("boom final")
	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errFirst
		}
		return errLast
	})
	if calls != 3 {
		t.Fatalf("calls = %d, want exactly 3", calls)
	}
	// The propagated error must be the last underlying error, unchanged.
	if !errors.Is(err, errLast) || err != errLast {
		t.Errorf("Do returned %v, want the last error unchanged", err)
	}
}

func TestDo_RecoversAfterTransientFailure(t *testing.T) {
	p := retry.New(3, time.Millisecond, time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), "op", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDo_CancelledContextStopsRetrying(t *testing.T) {
	p := retry.New(5, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, "op", func(context.Context) error {
			calls++
			return errors.New("always fails")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry after cancellation)", calls)
	}
}

func TestDo_OnRetryHookFiresPerRetry(t *testing.T) {
	var hooks []int
	p := retry.New(3, time.Millisecond, time.Millisecond,
		retry.WithOnRetry(func(_ string, attempt int, _ error, _ time.Duration) {
			hooks = append(hooks, attempt)
		}),
	)

	_ = p.Do(context.Background(), "op", func(context.Context) error {
		return errors.New("always fails")
	})

	// 3 attempts means 2 retries: hooks fire for attempts 1 and 2, never
	// after the final attempt.
	if len(hooks) != 2 || hooks[0] != 1 || hooks[1] != 2 {
		t.Errorf("hook attempts = %v, want [1 2]", hooks)
	}
}

func TestDoValue_ReturnsResult(t *testing.T) {
	p := retry.New(3, time.Millisecond, time.Millisecond)

	calls := 0
	got, err := retry.DoValue(context.Background(), p, "op", func(context.Context) ([]string, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return []string{"a", "b"}, nil
	})
	if err != nil {
		t.Fatalf("DoValue returned error: %v", err)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("DoValue result = %v, want [a b]", got)
	}
}
