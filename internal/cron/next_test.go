package cron

import (
	"errors"
	"testing"
	"time"
)

func TestNextEveryMinuteRoundsUp(t *testing.T) {
	t.Parallel()
	from := time.Date(2026, 2, 11, 10, 0, 23, 450_000_000, time.UTC)
	got, err := Next("* * * * *", "UTC", from)
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	want := time.Date(2026, 2, 11, 10, 1, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestNextStrictlyAfterFrom(t *testing.T) {
	t.Parallel()
	// Exactly on a matching minute boundary: the result must be the next one.
	from := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	got, err := Next("* * * * *", "UTC", from)
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	want := time.Date(2026, 2, 11, 10, 1, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestNextDailyRollsToTomorrow(t *testing.T) {
	t.Parallel()
	from := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	got, err := Next("0 9 * * *", "UTC", from)
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	want := time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestNextSundayAliases(t *testing.T) {
	t.Parallel()
	from := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)

	zero, err := Next("0 0 * * 0", "UTC", from)
	if err != nil {
		t.Fatalf("Next(dow=0) error: %v", err)
	}
	seven, err := Next("0 0 * * 7", "UTC", from)
	if err != nil {
		t.Fatalf("Next(dow=7) error: %v", err)
	}
	if !zero.Equal(seven) {
		t.Fatalf("dow=0 gives %v but dow=7 gives %v", zero, seven)
	}
	if zero.Weekday() != time.Sunday {
		t.Fatalf("expected a Sunday, got %v", zero.Weekday())
	}
}

func TestNextHonorsTimezone(t *testing.T) {
	t.Parallel()
	// 09:00 in Jakarta (UTC+7) is 02:00 UTC.
	from := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
	got, err := Next("0 9 * * *", "Asia/Jakarta", from)
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	want := time.Date(2026, 2, 11, 2, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got.UTC(), want)
	}
}

func TestNextUnsatisfiableExpressionFails(t *testing.T) {
	t.Parallel()
	// February 31st never exists; the probe must give up at its bound.
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := Next("0 0 31 2 *", "UTC", from)
	if !errors.Is(err, ErrNoUpcomingRun) {
		t.Fatalf("err = %v, want ErrNoUpcomingRun", err)
	}
}

func TestNextInvalidInputs(t *testing.T) {
	t.Parallel()
	from := time.Now()

	var ie *InvalidExpressionError
	if _, err := Next("bad", "UTC", from); !errors.As(err, &ie) {
		t.Fatalf("expected *InvalidExpressionError, got %v", err)
	}
	if _, err := Next("* * * * *", "Not/AZone", from); err == nil {
		t.Fatal("expected error for bad timezone")
	}
}

// The calculator's result must satisfy the matcher, and no earlier minute
// within the gap may match.
func TestNextIsEarliestMatch(t *testing.T) {
	t.Parallel()
	schedules := []string{
		"*/5 * * * *",
		"15 14 * * *",
		"0 0 1 * *",
		"30 6 * * 1-5",
		"0 */2 * * 6",
	}
	from := time.Date(2026, 2, 11, 10, 7, 42, 0, time.UTC)

	for _, spec := range schedules {
		spec := spec
		t.Run(spec, func(t *testing.T) {
			e, err := Parse(spec)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			got, err := Next(spec, "UTC", from)
			if err != nil {
				t.Fatalf("Next error: %v", err)
			}
			if !got.After(from) {
				t.Fatalf("Next = %v, not after %v", got, from)
			}
			ok, err := e.MatchesTime(got.In(time.UTC))
			if err != nil {
				t.Fatalf("MatchesTime error: %v", err)
			}
			if !ok {
				t.Fatalf("Next result %v does not satisfy %q", got, spec)
			}
			for probe := from.Truncate(time.Minute).Add(time.Minute); probe.Before(got); probe = probe.Add(time.Minute) {
				ok, err := e.MatchesTime(probe.In(time.UTC))
				if err != nil {
					t.Fatalf("MatchesTime error: %v", err)
				}
				if ok {
					t.Fatalf("earlier instant %v also satisfies %q", probe, spec)
				}
			}
		})
	}
}
