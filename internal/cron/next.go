package cron

import (
	"errors"
	"fmt"
	"time"
)

// maxProbeMinutes bounds the next-run search at roughly one year. A valid
// expression that never matches inside the bound (e.g. day 31 of February)
// is reported as a hard failure instead of spinning forever.
const maxProbeMinutes = 366 * 24 * 60

// ErrNoUpcomingRun means the probe exhausted its horizon without a match.
var ErrNoUpcomingRun = errors.New("cannot compute next run")

// Next returns the earliest instant strictly after from, at minute
// granularity, at which schedule is satisfied in the given timezone.
// An empty timezone means UTC.
func Next(schedule, timezone string, from time.Time) (time.Time, error) {
	expr, err := Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, err
	}
	return expr.Next(from, loc)
}

// Next probes minute by minute from the instant after from.
func (e *Expression) Next(from time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	// Round up to the next whole minute; the result must be strictly after from.
	t := from.Truncate(time.Minute).Add(time.Minute).In(loc)

	for i := 0; i < maxProbeMinutes; i++ {
		ok, err := e.MatchesTime(t)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			return t, nil
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}, fmt.Errorf("%w: %q unsatisfied within %d minutes", ErrNoUpcomingRun, e.raw, maxProbeMinutes)
}

// LoadLocation resolves an IANA timezone name, treating "" as UTC.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}
