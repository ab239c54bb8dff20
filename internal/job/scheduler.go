package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shop24h/shop24h/internal/errorutil"
	"github.com/shop24h/shop24h/internal/timeutil"
)

// HandlerFunc is the action executed when a job fires. Handlers must be
// idempotent: execution is at-least-once, a crash between handler completion
// and the status persist makes the job fire again on the next recovery.
type HandlerFunc func(ctx context.Context, referenceID string) error

// Scheduler is the single scheduling authority of the process. It owns the
// timer registry and is the only component that mutates job status and
// schedule time.
type Scheduler struct {
	store    Store
	handlers map[string]HandlerFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewScheduler(store Store) *Scheduler {
	return &Scheduler{
		store:    store,
		handlers: map[string]HandlerFunc{},
		timers:   map[string]*time.Timer{},
	}
}

// Register binds a handler to a job type. Must be called before Recover.
func (s *Scheduler) Register(jobType string, fn HandlerFunc) {
	s.handlers[jobType] = fn
}

// CreateOneTime persists a job that fires once at scheduleTime and arms its
// timer. The job is persisted before the timer is armed so a crash in
// between still leaves recoverable state.
func (s *Scheduler) CreateOneTime(ctx context.Context, jobType string, scheduleTime timeutil.DateTime, referenceID string) (*Job, error) {
	if jobType == "" || scheduleTime.IsZero() {
		return nil, errorutil.Format("%w: jobType and scheduleTime are required", ErrMissingField)
	}

	now := timeutil.DateTimeNow()
	j := &Job{
		JobID:        NewJobID(),
		Kind:         KindOneTime,
		JobType:      jobType,
		ReferenceID:  referenceID,
		ScheduleTime: scheduleTime,
		Status:       StatusScheduled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, j); err != nil {
		return nil, err
	}

	s.arm(j)
	slog.InfoContext(ctx, "created one-time job",
		"job_id", j.JobID, "job_type", jobType, "reference_id", referenceID, "schedule_time", scheduleTime)
	return j, nil
}

// CreateRecurring persists a recurring job whose first fire time is computed
// from the repeat interval relative to now, then arms its timer.
func (s *Scheduler) CreateRecurring(ctx context.Context, jobType string, interval *RepeatInterval, referenceID string) (*Job, error) {
	if jobType == "" || interval == nil {
		return nil, errorutil.Format("%w: jobType and repeatInterval are required", ErrMissingField)
	}

	now := timeutil.DateTimeNow()
	first, err := NextFireTime(interval, now)
	if err != nil {
		return nil, err
	}

	j := &Job{
		JobID:          NewJobID(),
		Kind:           KindRecurring,
		JobType:        jobType,
		ReferenceID:    referenceID,
		ScheduleTime:   first,
		RepeatInterval: interval,
		Status:         StatusScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, j); err != nil {
		return nil, err
	}

	s.arm(j)
	slog.InfoContext(ctx, "created recurring job",
		"job_id", j.JobID, "job_type", jobType, "schedule_time", first)
	return j, nil
}

// Cancel disarms and cancels the job correlated to referenceID. A missing
// job is a no-op, not an error, and cancelling twice is safe. Terminal jobs
// are left untouched.
func (s *Scheduler) Cancel(ctx context.Context, referenceID string) error {
	j, err := s.store.JobByReference(ctx, referenceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			slog.InfoContext(ctx, "no scheduled job for reference", "reference_id", referenceID)
			return nil
		}
		return err
	}

	s.disarm(j.JobID)

	if j.Status != StatusScheduled {
		return nil
	}

	j.Status = StatusCancelled
	j.UpdatedAt = timeutil.DateTimeNow()
	if err := s.store.Update(ctx, j); err != nil {
		return fmt.Errorf("could not cancel job %s: %w", j.JobID, err)
	}

	slog.InfoContext(ctx, "cancelled job", "job_id", j.JobID, "reference_id", referenceID)
	return nil
}

// Recover loads every scheduled job, executes the ones already due
// synchronously and arms timers for the rest. It must run on startup before
// traffic is accepted. Execution is at-least-once across restarts.
func (s *Scheduler) Recover(ctx context.Context) error {
	jobs, err := s.store.JobsByStatus(ctx, StatusScheduled)
	if err != nil {
		return fmt.Errorf("could not load scheduled jobs: %w", err)
	}

	now := timeutil.DateTimeNow()
	var missed, armed int
	for _, j := range jobs {
		if !j.ScheduleTime.After(now.Time) {
			slog.InfoContext(ctx, "executing missed job", "job_id", j.JobID, "job_type", j.JobType)
			s.fire(ctx, j)
			missed++
			continue
		}
		s.arm(j)
		armed++
	}

	slog.InfoContext(ctx, "scheduled jobs recovered", "missed", missed, "armed", armed, "total", len(jobs))
	return nil
}

// Stop disarms every timer. In-flight handlers are not aborted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) arm(j *Job) {
	delay := time.Until(j.ScheduleTime.Time)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[j.JobID]; ok {
		t.Stop()
	}
	s.timers[j.JobID] = time.AfterFunc(delay, func() {
		s.fire(context.Background(), j)
	})
}

func (s *Scheduler) disarm(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[jobID]; ok {
		t.Stop()
		delete(s.timers, jobID)
	}
}

// fire executes the job's handler and persists the outcome. A recurring
// job's next timer is only armed after the new schedule time is persisted,
// so at most one execution per job is in flight at a time.
func (s *Scheduler) fire(ctx context.Context, j *Job) {
	s.disarm(j.JobID)

	if err := s.execute(ctx, j); err != nil {
		// The job stays scheduled at its stale time and is picked up as
		// missed on the next recovery. There is no automatic retry backoff.
		slog.ErrorContext(ctx, "job handler failed",
			"job_id", j.JobID, "job_type", j.JobType, "error", err)
		return
	}

	switch j.Kind {
	case KindRecurring:
		// Recompute relative to now rather than the previous schedule time:
		// missed intervals during downtime are dropped instead of replayed.
		next, err := NextFireTime(j.RepeatInterval, timeutil.DateTimeNow())
		if err != nil {
			slog.ErrorContext(ctx, "could not compute next fire time",
				"job_id", j.JobID, "error", err)
			return
		}
		j.ScheduleTime = next
		j.UpdatedAt = timeutil.DateTimeNow()
		if err := s.store.Update(ctx, j); err != nil {
			slog.ErrorContext(ctx, "could not persist rescheduled job",
				"job_id", j.JobID, "error", err)
			return
		}
		s.arm(j)
		slog.InfoContext(ctx, "recurring job completed and rearmed",
			"job_id", j.JobID, "job_type", j.JobType, "next", next)
	default:
		j.Status = StatusCompleted
		j.UpdatedAt = timeutil.DateTimeNow()
		if err := s.store.Update(ctx, j); err != nil {
			slog.ErrorContext(ctx, "could not persist completed job",
				"job_id", j.JobID, "error", err)
			return
		}
		slog.InfoContext(ctx, "one-time job completed",
			"job_id", j.JobID, "job_type", j.JobType)
	}
}

func (s *Scheduler) execute(ctx context.Context, j *Job) error {
	fn, ok := s.handlers[j.JobType]
	if !ok {
		slog.WarnContext(ctx, "unknown job type, treating as no-op",
			"job_id", j.JobID, "job_type", j.JobType)
		return nil
	}
	return fn(ctx, j.ReferenceID)
}
