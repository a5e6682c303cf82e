package scheduler

import (
	"context"
	"errors"
	"time"

	"tickwork/internal/job"
	"tickwork/internal/store"
	"tickwork/pkg/logx"
)

// ErrNotFound is returned when a job id is absent from both cache and store.
var ErrNotFound = errors.New("job not found")

// DefaultTickInterval is how often due jobs are scanned for.
const DefaultTickInterval = time.Second

// ExecuteFunc is the caller-supplied execution callback, typically bound to
// an Executor. It receives an owned copy of the due job; an error marks the
// execution as failed.
type ExecuteFunc func(ctx context.Context, j *job.CronJob) error

type Options struct {
	Store     store.Store
	OnExecute ExecuteFunc

	// TickInterval defaults to DefaultTickInterval when zero.
	TickInterval time.Duration

	// DefaultTimezone is applied to jobs created without one. Empty means UTC.
	DefaultTimezone string

	Log logx.Logger

	// Now overrides the wall clock, for deterministic tests.
	Now func() time.Time
}

// CreateRequest describes a new job. Status always starts active.
type CreateRequest struct {
	Name        string
	Description string
	Schedule    string
	Timezone    string
	Payload     job.Payload
	Tags        []string
	MaxRuns     *int
}

// UpdateRequest merges the provided fields into an existing job.
// Nil fields are left untouched.
type UpdateRequest struct {
	Name        *string
	Description *string
	Schedule    *string
	Timezone    *string
	Status      *job.Status
	Payload     *job.Payload
	Tags        *[]string
	MaxRuns     *int
}

// Snapshot is a point-in-time view for status reporting.
type Snapshot struct {
	Running      bool
	Jobs         int
	TickInterval time.Duration
}
