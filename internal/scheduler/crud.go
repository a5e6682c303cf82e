package scheduler

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tickwork/internal/cron"
	"tickwork/internal/job"
	"tickwork/pkg/logx"
)

// Create validates the request, computes the initial next run, persists the
// job, and caches it. New jobs always start active.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*job.CronJob, error) {
	now := s.now()
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = s.defaultTZ
	}

	j := &job.CronJob{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Schedule:    req.Schedule,
		Timezone:    tz,
		Status:      job.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
		MaxRuns:     req.MaxRuns,
		Payload: job.Payload{
			Action:     req.Payload.Action,
			Parameters: job.CloneParams(req.Payload.Parameters),
		},
		Tags: job.NormalizeTags(req.Tags),
	}

	if err := j.Validate(); err != nil {
		return nil, err
	}
	if _, err := cron.LoadLocation(j.Timezone); err != nil {
		return nil, err
	}
	if err := cron.Validate(j.Schedule); err != nil {
		return nil, err
	}

	next, err := cron.Next(j.Schedule, j.Timezone, now)
	if err != nil {
		return nil, err
	}
	j.NextRunAt = &next

	if err := s.st.Save(ctx, j); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	s.mu.Lock()
	s.cache[j.ID] = j
	s.mu.Unlock()

	s.log.Info("job created",
		logx.String("job_id", j.ID), logx.String("job", j.Name),
		logx.String("schedule", j.Schedule), logx.Time("next_run", next))
	return j.Clone(), nil
}

// Update merges the provided fields. An active result gets its next run
// recomputed from the (possibly new) schedule and timezone; any other status
// forces NextRunAt to nil.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*job.CronJob, error) {
	cur, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	j := cur.Clone()

	if req.Name != nil {
		j.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		j.Description = *req.Description
	}
	if req.Schedule != nil {
		j.Schedule = *req.Schedule
	}
	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if tz == "" {
			tz = s.defaultTZ
		}
		j.Timezone = tz
	}
	if req.Status != nil {
		j.Status = *req.Status
	}
	if req.Payload != nil {
		j.Payload = job.Payload{
			Action:     req.Payload.Action,
			Parameters: job.CloneParams(req.Payload.Parameters),
		}
	}
	if req.Tags != nil {
		j.Tags = job.NormalizeTags(*req.Tags)
	}
	if req.MaxRuns != nil {
		v := *req.MaxRuns
		j.MaxRuns = &v
	}

	if err := j.Validate(); err != nil {
		return nil, err
	}
	if _, err := cron.LoadLocation(j.Timezone); err != nil {
		return nil, err
	}
	if err := cron.Validate(j.Schedule); err != nil {
		return nil, err
	}

	if j.Status == job.StatusActive {
		next, err := cron.Next(j.Schedule, j.Timezone, now)
		if err != nil {
			return nil, err
		}
		j.NextRunAt = &next
	} else {
		j.NextRunAt = nil
	}
	j.UpdatedAt = now

	if err := s.st.Save(ctx, j); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	s.mu.Lock()
	s.cache[j.ID] = j
	s.mu.Unlock()

	s.log.Info("job updated",
		logx.String("job_id", j.ID), logx.String("job", j.Name),
		logx.String("status", string(j.Status)))
	return j.Clone(), nil
}

// Get is read-through: cache first, then store, repopulating the cache on a
// store hit.
func (s *Service) Get(ctx context.Context, id string) (*job.CronJob, error) {
	j, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return j.Clone(), nil
}

// List reloads the entire cache from the store, making it the authoritative
// "what does the store contain" operation.
func (s *Service) List(ctx context.Context) ([]*job.CronJob, error) {
	jobs, err := s.st.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	s.mu.Lock()
	s.cache = make(map[string]*job.CronJob, len(jobs))
	out := make([]*job.CronJob, 0, len(jobs))
	for _, j := range jobs {
		s.cache[j.ID] = j
		out = append(out, j.Clone())
	}
	s.mu.Unlock()

	return out, nil
}

// Delete removes the job from cache and store. Deleting an unknown id is a
// no-op success.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()

	if err := s.st.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	s.log.Info("job deleted", logx.String("job_id", id))
	return nil
}

// lookup returns the cached job, falling back to the store and repopulating
// the cache on a hit. The returned pointer is the cached instance; callers
// must clone before handing it out.
func (s *Service) lookup(ctx context.Context, id string) (*job.CronJob, error) {
	s.mu.Lock()
	if j, ok := s.cache[id]; ok {
		s.mu.Unlock()
		return j, nil
	}
	s.mu.Unlock()

	j, err := s.st.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if j == nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	s.cache[id] = j
	s.mu.Unlock()
	return j, nil
}
