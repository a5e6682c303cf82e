package job

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a CronJob.
//
// active jobs carry a non-nil NextRunAt; every other status forces it to nil.
// completed and failed are terminal; paused can go back to active via update.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Payload is opaque to the scheduler and handed to the handler as-is.
type Payload struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// CronJob is the scheduling unit, persisted as one JSON document per job.
type CronJob struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	Schedule string `json:"schedule"` // 5-field cron expression
	Timezone string `json:"timezone"` // IANA TZ, e.g. "Asia/Jakarta"

	Status Status `json:"status"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	NextRunAt *time.Time `json:"nextRunAt,omitempty"`

	RunCount int  `json:"runCount"`
	MaxRuns  *int `json:"maxRuns,omitempty"`

	Payload Payload  `json:"payload"`
	Tags    []string `json:"tags,omitempty"`
}

// Due reports whether the job should run at the given instant.
func (j *CronJob) Due(now time.Time) bool {
	return j.Status == StatusActive && j.NextRunAt != nil && !j.NextRunAt.After(now)
}

// Clone returns an owned deep copy. Callers of cache/log read paths always get
// clones so external mutation can never reach shared state.
func (j *CronJob) Clone() *CronJob {
	if j == nil {
		return nil
	}
	cp := *j
	cp.LastRunAt = cloneTime(j.LastRunAt)
	cp.NextRunAt = cloneTime(j.NextRunAt)
	if j.MaxRuns != nil {
		v := *j.MaxRuns
		cp.MaxRuns = &v
	}
	if j.Tags != nil {
		cp.Tags = append([]string(nil), j.Tags...)
	}
	cp.Payload.Parameters = CloneParams(j.Payload.Parameters)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// CloneParams deep-copies a parameter map. Nested maps and slices are copied
// recursively; scalar values are shared (they are immutable once decoded).
func CloneParams(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return CloneParams(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	default:
		return v
	}
}

// NormalizeTags trims, drops empties, and dedupes while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ValidationError describes a rejected job field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid job: %s: %s", e.Field, e.Reason)
}

// Validate checks the model-level constraints. Schedule syntax and timezone
// resolution are checked by the scheduler, which owns the cron machinery.
func (j *CronJob) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(j.Payload.Action) == "" {
		return &ValidationError{Field: "payload.action", Reason: "must not be empty"}
	}
	if j.MaxRuns != nil && *j.MaxRuns <= 0 {
		return &ValidationError{Field: "maxRuns", Reason: "must be > 0 when set"}
	}
	if !j.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", j.Status)}
	}
	return nil
}
