// Package ratelimit bounds how often a single scheduler instance may execute
// jobs, using two sliding windows (per minute and per hour). Stale timestamps
// are pruned lazily on each check; nothing is shared across processes.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultPerMinute = 10
	DefaultPerHour   = 100
)

// LimitError reports which window rejected the acquisition.
type LimitError struct {
	Window string // "minute" or "hour"
	Limit  int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: max %d executions per %s", e.Limit, e.Window)
}

// Usage is a point-in-time view of both windows.
type Usage struct {
	MinuteUsed  int
	MinuteLimit int
	HourUsed    int
	HourLimit   int
}

// Limiter admits executions while both trailing windows have capacity.
type Limiter struct {
	mu sync.Mutex

	perMinute int
	perHour   int

	minute []time.Time
	hour   []time.Time
}

// New builds a limiter; non-positive caps fall back to the defaults.
func New(perMinute, perHour int) *Limiter {
	if perMinute <= 0 {
		perMinute = DefaultPerMinute
	}
	if perHour <= 0 {
		perHour = DefaultPerHour
	}
	return &Limiter{perMinute: perMinute, perHour: perHour}
}

// TryAcquire admits one execution at now, or returns a *LimitError naming the
// exhausted window. The minute window is checked first; a rejection mutates
// nothing, so a denied caller can retry later without skewing the counts.
func (l *Limiter) TryAcquire(now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)

	if len(l.minute) >= l.perMinute {
		return &LimitError{Window: "minute", Limit: l.perMinute}
	}
	if len(l.hour) >= l.perHour {
		return &LimitError{Window: "hour", Limit: l.perHour}
	}

	l.minute = append(l.minute, now)
	l.hour = append(l.hour, now)
	return nil
}

// Usage prunes both windows at now and reports the remaining counts.
func (l *Limiter) Usage(now time.Time) Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)
	return Usage{
		MinuteUsed:  len(l.minute),
		MinuteLimit: l.perMinute,
		HourUsed:    len(l.hour),
		HourLimit:   l.perHour,
	}
}

// Reset clears both windows unconditionally.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minute = l.minute[:0]
	l.hour = l.hour[:0]
}

// SetLimits replaces the window caps, keeping recorded timestamps. Used by
// config hot-reload; non-positive values fall back to the defaults.
func (l *Limiter) SetLimits(perMinute, perHour int) {
	if perMinute <= 0 {
		perMinute = DefaultPerMinute
	}
	if perHour <= 0 {
		perHour = DefaultPerHour
	}
	l.mu.Lock()
	l.perMinute = perMinute
	l.perHour = perHour
	l.mu.Unlock()
}

func (l *Limiter) pruneLocked(now time.Time) {
	l.minute = pruneBefore(l.minute, now.Add(-time.Minute))
	l.hour = pruneBefore(l.hour, now.Add(-time.Hour))
}

// pruneBefore drops timestamps strictly older than cutoff. Entries are
// appended in time order, so a single scan from the front suffices.
func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}
