// Package audit keeps an append-only, queryable trail of job lifecycle and
// execution events. Entries are immutable once recorded: every read returns
// owned copies, so callers can never rewrite history through a reference.
package audit

import (
	"sync"
	"time"

	"tickwork/internal/job"
)

type EventType string

const (
	EventCreated     EventType = "created"
	EventUpdated     EventType = "updated"
	EventDeleted     EventType = "deleted"
	EventExecuted    EventType = "executed"
	EventFailed      EventType = "failed"
	EventPaused      EventType = "paused"
	EventResumed     EventType = "resumed"
	EventRateLimited EventType = "rate_limited"
)

// Entry records one event. DurationMS is only meaningful for executed/failed
// entries; Error is set when Success is false.
type Entry struct {
	Timestamp  time.Time      `json:"timestamp"`
	EventType  EventType      `json:"eventType"`
	JobID      string         `json:"jobId"`
	JobName    string         `json:"jobName"`
	Action     string         `json:"action"`
	Success    bool           `json:"success"`
	DurationMS int64          `json:"durationMs,omitempty"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (e Entry) clone() Entry {
	cp := e
	cp.Metadata = job.CloneParams(e.Metadata)
	return cp
}

// Log is the recording contract consumed by the executor. The in-memory
// implementation below gives no durability; inject a persistent one (see the
// sqlite store) when the trail must survive restarts.
type Log interface {
	Record(e Entry)
	ByJob(jobID string) []Entry
	ByType(t EventType) []Entry
	All() []Entry
	Clear()
}

// MemoryLog is the default Log: a mutex-guarded slice.
type MemoryLog struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

func (l *MemoryLog) Record(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	l.mu.Lock()
	l.entries = append(l.entries, e.clone())
	l.mu.Unlock()
}

func (l *MemoryLog) ByJob(jobID string) []Entry {
	return l.filter(func(e Entry) bool { return e.JobID == jobID })
}

func (l *MemoryLog) ByType(t EventType) []Entry {
	return l.filter(func(e Entry) bool { return e.EventType == t })
}

func (l *MemoryLog) All() []Entry {
	return l.filter(func(Entry) bool { return true })
}

func (l *MemoryLog) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

func (l *MemoryLog) filter(keep func(Entry) bool) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if keep(e) {
			out = append(out, e.clone())
		}
	}
	return out
}
