package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tickwork/internal/audit"
	"tickwork/internal/job"
	"tickwork/internal/ratelimit"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testJob() *job.CronJob {
	return &job.CronJob{
		ID:      "j1",
		Name:    "backup",
		Payload: job.Payload{Action: "run_backup", Parameters: map[string]any{"target": "db"}},
	}
}

func TestExecuteRecordsSuccessWithDuration(t *testing.T) {
	t.Parallel()
	clock := newFakeClock(time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC))
	e := New(Options{
		Handler: func(ctx context.Context, j *job.CronJob) error {
			clock.Advance(250 * time.Millisecond)
			return nil
		},
		Now: clock.Now,
	})

	if err := e.Execute(context.Background(), testJob()); err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	got := e.Audit().ByType(audit.EventExecuted)
	if len(got) != 1 {
		t.Fatalf("executed entries = %d, want 1", len(got))
	}
	if got[0].DurationMS != 250 || !got[0].Success || got[0].JobID != "j1" {
		t.Fatalf("unexpected entry: %+v", got[0])
	}
}

func TestExecuteRecordsFailureAndReturnsError(t *testing.T) {
	t.Parallel()
	boom := errors.New("handler exploded")
	clock := newFakeClock(time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC))
	e := New(Options{
		Handler: func(ctx context.Context, j *job.CronJob) error {
			clock.Advance(100 * time.Millisecond)
			return boom
		},
		Now: clock.Now,
	})

	err := e.Execute(context.Background(), testJob())
	if !errors.Is(err, boom) {
		t.Fatalf("Execute must re-raise the handler error, got %v", err)
	}

	got := e.Audit().ByType(audit.EventFailed)
	if len(got) != 1 {
		t.Fatalf("failed entries = %d, want 1", len(got))
	}
	if got[0].Error != "handler exploded" || got[0].DurationMS != 100 {
		t.Fatalf("unexpected entry: %+v", got[0])
	}
}

func TestExecuteRateLimitedSkipsHandler(t *testing.T) {
	t.Parallel()
	calls := 0
	e := New(Options{
		Handler: func(ctx context.Context, j *job.CronJob) error {
			calls++
			return nil
		},
		Limiter: ratelimit.New(1, 100),
	})

	if err := e.Execute(context.Background(), testJob()); err != nil {
		t.Fatalf("first Execute error: %v", err)
	}

	err := e.Execute(context.Background(), testJob())
	var le *ratelimit.LimitError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *ratelimit.LimitError", err)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1 (rejected call must not invoke it)", calls)
	}

	limited := e.Audit().ByType(audit.EventRateLimited)
	if len(limited) != 1 || limited[0].Success {
		t.Fatalf("rate_limited entries = %+v", limited)
	}
}

func TestHandlerGetsOwnedCopy(t *testing.T) {
	t.Parallel()
	j := testJob()
	e := New(Options{
		Handler: func(ctx context.Context, got *job.CronJob) error {
			got.Name = "mutated"
			got.Payload.Parameters["target"] = "other"
			return nil
		},
	})

	if err := e.Execute(context.Background(), j); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if j.Name != "backup" || j.Payload.Parameters["target"] != "db" {
		t.Fatalf("handler mutation reached caller state: %+v", j)
	}
}

func TestLifecycleHelpersBypassRateLimit(t *testing.T) {
	t.Parallel()
	e := New(Options{Limiter: ratelimit.New(1, 1)})
	j := testJob()

	// Exhaust the limiter.
	if err := e.Execute(context.Background(), j); err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	e.LogCreated(j)
	e.LogUpdated(j)
	e.LogPaused(j)
	e.LogResumed(j)
	e.LogDeleted(j)

	for _, et := range []audit.EventType{
		audit.EventCreated, audit.EventUpdated, audit.EventPaused,
		audit.EventResumed, audit.EventDeleted,
	} {
		if got := e.Audit().ByType(et); len(got) != 1 {
			t.Fatalf("entries for %s = %d, want 1", et, len(got))
		}
	}

	created := e.Audit().ByType(audit.EventCreated)
	if created[0].Metadata["schedule"] != j.Schedule {
		t.Fatalf("created metadata = %v", created[0].Metadata)
	}
}
