package ratelimit

import (
	"errors"
	"testing"
	"time"
)

func TestMinuteWindow(t *testing.T) {
	t.Parallel()
	l := New(2, 100)
	now := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

	if err := l.TryAcquire(now); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if err := l.TryAcquire(now.Add(10 * time.Second)); err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}

	err := l.TryAcquire(now.Add(20 * time.Second))
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("third acquire: err = %v, want *LimitError", err)
	}
	if le.Window != "minute" || le.Limit != 2 {
		t.Fatalf("unexpected limit error: %+v", le)
	}

	// Past 60 seconds from the first call, the window has room again.
	if err := l.TryAcquire(now.Add(61 * time.Second)); err != nil {
		t.Fatalf("acquire after window passed: %v", err)
	}
}

func TestRejectionDoesNotMutate(t *testing.T) {
	t.Parallel()
	l := New(1, 100)
	now := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

	if err := l.TryAcquire(now); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := l.TryAcquire(now.Add(time.Second)); err == nil {
			t.Fatal("expected rejection")
		}
	}
	u := l.Usage(now.Add(time.Second))
	if u.MinuteUsed != 1 || u.HourUsed != 1 {
		t.Fatalf("rejections mutated windows: %+v", u)
	}
}

func TestHourWindow(t *testing.T) {
	t.Parallel()
	l := New(100, 3)
	now := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

	// Spread acquisitions so the minute window never fills.
	for i := 0; i < 3; i++ {
		if err := l.TryAcquire(now.Add(time.Duration(i) * 2 * time.Minute)); err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
	}

	err := l.TryAcquire(now.Add(10 * time.Minute))
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *LimitError", err)
	}
	if le.Window != "hour" {
		t.Fatalf("window = %q, want hour", le.Window)
	}

	// An hour past the first acquisition, one slot frees up.
	if err := l.TryAcquire(now.Add(time.Hour + time.Second)); err != nil {
		t.Fatalf("acquire after hour window: %v", err)
	}
}

func TestUsageAndReset(t *testing.T) {
	t.Parallel()
	l := New(5, 50)
	now := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := l.TryAcquire(now); err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
	}
	u := l.Usage(now)
	if u.MinuteUsed != 3 || u.MinuteLimit != 5 || u.HourUsed != 3 || u.HourLimit != 50 {
		t.Fatalf("unexpected usage: %+v", u)
	}

	// Usage itself prunes.
	u = l.Usage(now.Add(2 * time.Minute))
	if u.MinuteUsed != 0 || u.HourUsed != 3 {
		t.Fatalf("usage after minute window: %+v", u)
	}

	l.Reset()
	u = l.Usage(now)
	if u.MinuteUsed != 0 || u.HourUsed != 0 {
		t.Fatalf("usage after reset: %+v", u)
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	l := New(0, -1)
	u := l.Usage(time.Now())
	if u.MinuteLimit != DefaultPerMinute || u.HourLimit != DefaultPerHour {
		t.Fatalf("defaults not applied: %+v", u)
	}
}
