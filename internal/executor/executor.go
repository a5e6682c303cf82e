// Package executor wraps a single job execution with rate-limit admission and
// audit recording.
//
// Unlike the rest of the core, Execute returns the handler's (or limiter's)
// original error to its caller after auditing it: callers see failures in
// real time while the trail stays durable.
package executor

import (
	"context"
	"time"

	"tickwork/internal/audit"
	"tickwork/internal/job"
	"tickwork/internal/ratelimit"
	"tickwork/pkg/logx"
)

// Handler performs the actual work for a due job. It receives an owned copy;
// mutating it has no effect on scheduler state.
type Handler func(ctx context.Context, j *job.CronJob) error

type Options struct {
	Handler Handler
	Limiter *ratelimit.Limiter
	Audit   audit.Log
	Log     logx.Logger

	// Now overrides the wall clock, for deterministic tests.
	Now func() time.Time
}

type Executor struct {
	handler Handler
	limiter *ratelimit.Limiter
	trail   audit.Log
	log     logx.Logger
	now     func() time.Time
}

func New(opts Options) *Executor {
	e := &Executor{
		handler: opts.Handler,
		limiter: opts.Limiter,
		trail:   opts.Audit,
		log:     opts.Log,
		now:     opts.Now,
	}
	if e.limiter == nil {
		e.limiter = ratelimit.New(0, 0)
	}
	if e.trail == nil {
		e.trail = audit.NewMemoryLog()
	}
	if e.log.IsZero() {
		e.log = logx.Nop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Audit exposes the trail for read access (queries, tests).
func (e *Executor) Audit() audit.Log { return e.trail }

// Usage reports the limiter's current window counts.
func (e *Executor) Usage() ratelimit.Usage { return e.limiter.Usage(e.now()) }

// Execute runs one job through admission, the handler, and the audit trail.
func (e *Executor) Execute(ctx context.Context, j *job.CronJob) error {
	start := e.now()

	if err := e.limiter.TryAcquire(start); err != nil {
		e.trail.Record(audit.Entry{
			Timestamp: start,
			EventType: audit.EventRateLimited,
			JobID:     j.ID,
			JobName:   j.Name,
			Action:    j.Payload.Action,
			Success:   false,
			Error:     err.Error(),
		})
		e.log.Warn("execution rate limited",
			logx.String("job_id", j.ID), logx.String("job", j.Name), logx.Err(err))
		return err
	}

	var err error
	if e.handler != nil {
		err = e.handler(ctx, j.Clone())
	}
	took := e.now().Sub(start)

	if err != nil {
		e.trail.Record(audit.Entry{
			Timestamp:  start,
			EventType:  audit.EventFailed,
			JobID:      j.ID,
			JobName:    j.Name,
			Action:     j.Payload.Action,
			Success:    false,
			DurationMS: took.Milliseconds(),
			Error:      err.Error(),
		})
		e.log.Warn("job execution failed",
			logx.String("job_id", j.ID), logx.String("job", j.Name),
			logx.Duration("took", took), logx.Err(err))
		return err
	}

	e.trail.Record(audit.Entry{
		Timestamp:  start,
		EventType:  audit.EventExecuted,
		JobID:      j.ID,
		JobName:    j.Name,
		Action:     j.Payload.Action,
		Success:    true,
		DurationMS: took.Milliseconds(),
	})
	e.log.Info("job executed",
		logx.String("job_id", j.ID), logx.String("job", j.Name), logx.Duration("took", took))
	return nil
}

// Lifecycle helpers record CRUD events without going through rate limiting.

func (e *Executor) LogCreated(j *job.CronJob) {
	e.lifecycle(audit.EventCreated, j, map[string]any{
		"schedule": j.Schedule,
		"timezone": j.Timezone,
	})
}

func (e *Executor) LogUpdated(j *job.CronJob) { e.lifecycle(audit.EventUpdated, j, nil) }
func (e *Executor) LogDeleted(j *job.CronJob) { e.lifecycle(audit.EventDeleted, j, nil) }
func (e *Executor) LogPaused(j *job.CronJob)  { e.lifecycle(audit.EventPaused, j, nil) }
func (e *Executor) LogResumed(j *job.CronJob) { e.lifecycle(audit.EventResumed, j, nil) }

func (e *Executor) lifecycle(t audit.EventType, j *job.CronJob, meta map[string]any) {
	e.trail.Record(audit.Entry{
		Timestamp: e.now(),
		EventType: t,
		JobID:     j.ID,
		JobName:   j.Name,
		Action:    j.Payload.Action,
		Success:   true,
		Metadata:  meta,
	})
}
