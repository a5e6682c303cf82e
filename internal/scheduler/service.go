package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"tickwork/internal/cron"
	"tickwork/internal/job"
	"tickwork/internal/store"
	"tickwork/pkg/logx"
)

type Service struct {
	mu    sync.Mutex
	cache map[string]*job.CronJob

	st        store.Store
	onExecute ExecuteFunc

	tickInterval time.Duration
	defaultTZ    string
	log          logx.Logger
	now          func() time.Time

	// stopCh is non-nil while running; loopWG tracks the tick loop goroutine.
	stopCh chan struct{}
	loopWG sync.WaitGroup

	// inFlight guards against overlapping ticks. The loop goroutine is the
	// only periodic caller, but Tick is also callable directly.
	inFlight atomic.Bool

	// warnLimit throttles repeated tick-skip / persist-failure warnings so a
	// wedged handler cannot flood the log.
	warnLimit *rate.Limiter
}

func New(opts Options) *Service {
	s := &Service{
		cache:        map[string]*job.CronJob{},
		st:           opts.Store,
		onExecute:    opts.OnExecute,
		tickInterval: opts.TickInterval,
		defaultTZ:    opts.DefaultTimezone,
		log:          opts.Log,
		now:          opts.Now,
		warnLimit:    rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
	if s.tickInterval <= 0 {
		s.tickInterval = DefaultTickInterval
	}
	if s.defaultTZ == "" {
		s.defaultTZ = "UTC"
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ---- lifecycle ----

// Start loads all jobs from the store into the cache (replacing prior
// contents) and begins ticking. Calling Start while running is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	jobs, err := s.st.List(ctx)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}

	s.mu.Lock()
	if s.stopCh != nil {
		// lost a Start race; the winner already loaded
		s.mu.Unlock()
		return nil
	}
	s.cache = make(map[string]*job.CronJob, len(jobs))
	for _, j := range jobs {
		s.cache[j.ID] = j
	}
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.loopWG.Add(1)
	go s.loop(ctx, stopCh)

	s.log.Info("scheduler started",
		logx.Int("jobs", len(jobs)),
		logx.Duration("tick_interval", s.tickInterval))
	return nil
}

// Stop halts future ticks and waits for the tick currently in flight, so a
// subsequent Start on this or another instance sees fully-persisted state.
// It does not interrupt an in-flight handler.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	s.mu.Unlock()

	// The loop only returns between ticks, so this waits out in-flight work.
	s.loopWG.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Running:      s.stopCh != nil,
		Jobs:         len(s.cache),
		TickInterval: s.tickInterval,
	}
}

func (s *Service) loop(ctx context.Context, stopCh chan struct{}) {
	defer s.loopWG.Done()
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// ---- tick ----

// Tick scans the cache once for due jobs and executes them sequentially.
// If a previous tick is still in flight the call is skipped entirely.
func (s *Service) Tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		if s.warnLimit.Allow() {
			s.log.Warn("previous tick still in flight; skipping")
		}
		return
	}
	defer s.inFlight.Store(false)

	// One wall-clock snapshot for the whole tick.
	now := s.now()

	s.mu.Lock()
	var due []*job.CronJob
	for _, j := range s.cache {
		if j.Due(now) {
			due = append(due, j.Clone())
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		// A failure for one job never stops the remaining jobs in the tick.
		s.runDue(ctx, j, now)
	}
}

// runDue executes one due job and applies the resulting state transition.
// j is an owned copy; now is the tick's snapshot instant.
func (s *Service) runDue(ctx context.Context, j *job.CronJob, now time.Time) {
	var execErr error
	if s.onExecute != nil {
		execErr = s.onExecute(ctx, j.Clone())
	}

	j.UpdatedAt = now
	if execErr != nil {
		// Handler and rate-limit errors are converted into a status
		// transition plus audit trail; they never escape the tick.
		j.Status = job.StatusFailed
		j.NextRunAt = nil
		s.log.Warn("job marked failed",
			logx.String("job_id", j.ID), logx.String("job", j.Name), logx.Err(execErr))
	} else {
		j.RunCount++
		ran := now
		j.LastRunAt = &ran

		switch {
		case j.MaxRuns != nil && j.RunCount >= *j.MaxRuns:
			j.Status = job.StatusCompleted
			j.NextRunAt = nil
			s.log.Info("job completed",
				logx.String("job_id", j.ID), logx.String("job", j.Name),
				logx.Int("runs", j.RunCount))
		default:
			next, err := cron.Next(j.Schedule, j.Timezone, now)
			if err != nil {
				j.Status = job.StatusFailed
				j.NextRunAt = nil
				s.log.Warn("next run unavailable; job marked failed",
					logx.String("job_id", j.ID), logx.String("job", j.Name), logx.Err(err))
			} else {
				j.NextRunAt = &next
			}
		}
	}

	// The job may have been deleted while the handler ran. Persisting the
	// result anyway would resurrect it in the store, so discard it instead.
	s.mu.Lock()
	_, present := s.cache[j.ID]
	s.mu.Unlock()
	if !present {
		s.log.Info("job removed mid-flight; discarding run result",
			logx.String("job_id", j.ID), logx.String("job", j.Name))
		return
	}

	if err := s.st.Save(ctx, j); err != nil {
		// Leave the cache untouched: the job stays due and is reconsidered
		// on the next tick once the store recovers.
		if s.warnLimit.Allow() {
			s.log.Error("persist after execution failed",
				logx.String("job_id", j.ID), logx.Err(err))
		}
		return
	}

	s.mu.Lock()
	if _, ok := s.cache[j.ID]; ok {
		s.cache[j.ID] = j
	}
	s.mu.Unlock()
}
