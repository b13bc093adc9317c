package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitUnderLimit(t *testing.T) {
	l := New(3, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("under-limit calls blocked for %v", elapsed)
	}
	if got := l.Pending(); got != 3 {
		t.Errorf("Pending = %d, want 3", got)
	}
}

func TestWaitBlocksThenProceeds(t *testing.T) {
	l := New(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	// Second call must wait for the window to slide, then succeed: a soft
	// throttle, not a rejection.
	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("second call returned after %v, expected to be throttled", elapsed)
	}
}

func TestWaitCancellation(t *testing.T) {
	l := New(1, time.Hour)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait = %v, want context.DeadlineExceeded", err)
	}
}

func TestDisabledLimiter(t *testing.T) {
	for _, l := range []*Limiter{nil, New(0, time.Minute)} {
		if err := l.Wait(context.Background()); err != nil {
			t.Errorf("disabled limiter Wait = %v", err)
		}
		if l.Pending() != 0 {
			t.Error("disabled limiter tracks calls")
		}
	}
}
