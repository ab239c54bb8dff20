package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shop24h/shop24h/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store for scheduler tests.
type memStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newMemStore() *memStore {
	return &memStore{jobs: map[string]*Job{}}
}

func (s *memStore) Create(_ context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *j
	s.jobs[j.JobID] = &clone
	return nil
}

func (s *memStore) Job(_ context.Context, jobID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *j
	return &clone, nil
}

func (s *memStore) JobByReference(_ context.Context, referenceID string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Job
	for _, j := range s.jobs {
		if j.ReferenceID != referenceID {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt.Time) {
			latest = j
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

func (s *memStore) JobsByStatus(_ context.Context, status Status) ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var jobs []*Job
	for _, j := range s.jobs {
		if j.Status == status {
			clone := *j
			jobs = append(jobs, &clone)
		}
	}
	return jobs, nil
}

func (s *memStore) Update(_ context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *j
	s.jobs[j.JobID] = &clone
	return nil
}

// recorder counts handler executions.
type recorder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recorder) handle(_ context.Context, referenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, referenceID)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestScheduler_OneTimeFires(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	scheduler := NewScheduler(store)
	defer scheduler.Stop()

	rec := &recorder{}
	scheduler.Register("test_type", rec.handle)

	j, err := scheduler.CreateOneTime(ctx, "test_type", timeutil.DateTimeNow().Add(50*time.Millisecond), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, j.Status)
	assert.Equal(t, KindOneTime, j.Kind)

	require.Eventually(t, func() bool {
		stored, err := store.Job(ctx, j.JobID)
		return err == nil && stored.Status == StatusCompleted
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"ref-1"}, rec.calls)
}

func TestScheduler_CreateOneTime_MissingFields(t *testing.T) {
	scheduler := NewScheduler(newMemStore())
	defer scheduler.Stop()

	_, err := scheduler.CreateOneTime(context.Background(), "", timeutil.DateTimeNow(), "ref")
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = scheduler.CreateOneTime(context.Background(), "test_type", timeutil.DateTime{}, "ref")
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestScheduler_CancelBeforeFire(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	scheduler := NewScheduler(store)
	defer scheduler.Stop()

	rec := &recorder{}
	scheduler.Register("test_type", rec.handle)

	j, err := scheduler.CreateOneTime(ctx, "test_type", timeutil.DateTimeNow().Add(100*time.Millisecond), "ref-1")
	require.NoError(t, err)

	require.NoError(t, scheduler.Cancel(ctx, "ref-1"))

	stored, err := store.Job(ctx, j.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)

	// The timer must not fire after cancellation.
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestScheduler_CancelUnknownReference(t *testing.T) {
	scheduler := NewScheduler(newMemStore())
	defer scheduler.Stop()

	assert.NoError(t, scheduler.Cancel(context.Background(), "no-such-ref"))
}

func TestScheduler_CancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	scheduler := NewScheduler(store)
	defer scheduler.Stop()
	scheduler.Register("test_type", (&recorder{}).handle)

	_, err := scheduler.CreateOneTime(ctx, "test_type", timeutil.DateTimeNow().Add(time.Hour), "ref-1")
	require.NoError(t, err)

	require.NoError(t, scheduler.Cancel(ctx, "ref-1"))
	require.NoError(t, scheduler.Cancel(ctx, "ref-1"))
}

func TestScheduler_CancelCompletedKeepsStatus(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	scheduler := NewScheduler(store)
	defer scheduler.Stop()

	rec := &recorder{}
	scheduler.Register("test_type", rec.handle)

	j, err := scheduler.CreateOneTime(ctx, "test_type", timeutil.DateTimeNow().Add(10*time.Millisecond), "ref-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stored, err := store.Job(ctx, j.JobID)
		return err == nil && stored.Status == StatusCompleted
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, scheduler.Cancel(ctx, "ref-1"))
	stored, err := store.Job(ctx, j.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
}

func TestScheduler_RecurringReschedules(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	scheduler := NewScheduler(store)
	defer scheduler.Stop()

	rec := &recorder{}
	scheduler.Register("test_type", rec.handle)

	j, err := scheduler.CreateRecurring(ctx, "test_type", &RepeatInterval{Minutes: 1}, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, KindRecurring, j.Kind)
	assert.True(t, j.ScheduleTime.After(timeutil.Now()))

	_, err = scheduler.CreateRecurring(ctx, "test_type", nil, "ref-2")
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = scheduler.CreateRecurring(ctx, "test_type", &RepeatInterval{}, "ref-3")
	assert.ErrorIs(t, err, ErrInvalidRecurrence)
}

func TestScheduler_RecoverExecutesMissedJobs(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	// A job whose schedule time passed while the process was down.
	past := timeutil.DateTimeNow().Add(-time.Hour)
	missed := &Job{
		JobID:        NewJobID(),
		Kind:         KindOneTime,
		JobType:      "test_type",
		ReferenceID:  "missed-ref",
		ScheduleTime: past,
		Status:       StatusScheduled,
		CreatedAt:    past,
		UpdatedAt:    past,
	}
	require.NoError(t, store.Create(ctx, missed))

	future := &Job{
		JobID:        NewJobID(),
		Kind:         KindOneTime,
		JobType:      "test_type",
		ReferenceID:  "future-ref",
		ScheduleTime: timeutil.DateTimeNow().Add(time.Hour),
		Status:       StatusScheduled,
		CreatedAt:    past,
		UpdatedAt:    past,
	}
	require.NoError(t, store.Create(ctx, future))

	scheduler := NewScheduler(store)
	defer scheduler.Stop()
	rec := &recorder{}
	scheduler.Register("test_type", rec.handle)

	require.NoError(t, scheduler.Recover(ctx))

	stored, err := store.Job(ctx, missed.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, []string{"missed-ref"}, rec.calls)

	stillScheduled, err := store.Job(ctx, future.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, stillScheduled.Status)
}

func TestScheduler_RecoverMissedRecurringAdvancesFromNow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	// Three intervals were missed during downtime. Only one execution should
	// happen and the next fire time advances from now, not from the stale
	// schedule time.
	stale := timeutil.DateTimeNow().Add(-3 * time.Hour)
	j := &Job{
		JobID:          NewJobID(),
		Kind:           KindRecurring,
		JobType:        "test_type",
		ReferenceID:    "rec-ref",
		ScheduleTime:   stale,
		RepeatInterval: &RepeatInterval{Hours: 1},
		Status:         StatusScheduled,
		CreatedAt:      stale,
		UpdatedAt:      stale,
	}
	require.NoError(t, store.Create(ctx, j))

	scheduler := NewScheduler(store)
	defer scheduler.Stop()
	rec := &recorder{}
	scheduler.Register("test_type", rec.handle)

	before := timeutil.Now()
	require.NoError(t, scheduler.Recover(ctx))

	assert.Equal(t, 1, rec.count())

	stored, err := store.Job(ctx, j.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, stored.Status)
	assert.True(t, stored.ScheduleTime.After(before.Add(59*time.Minute)),
		"next fire time should be about one hour from now, got %s", stored.ScheduleTime)
}

func TestScheduler_HandlerFailureLeavesJobScheduled(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	scheduler := NewScheduler(store)
	defer scheduler.Stop()

	rec := &recorder{err: assert.AnError}
	scheduler.Register("test_type", rec.handle)

	j, err := scheduler.CreateOneTime(ctx, "test_type", timeutil.DateTimeNow().Add(10*time.Millisecond), "ref-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return rec.count() == 1
	}, time.Second, 10*time.Millisecond)

	// The job is not marked completed, the next recovery retries it.
	stored, err := store.Job(ctx, j.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, stored.Status)
}

func TestScheduler_UnknownJobTypeCompletes(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	scheduler := NewScheduler(store)
	defer scheduler.Stop()

	j, err := scheduler.CreateOneTime(ctx, "no_handler", timeutil.DateTimeNow().Add(10*time.Millisecond), "ref-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stored, err := store.Job(ctx, j.JobID)
		return err == nil && stored.Status == StatusCompleted
	}, time.Second, 10*time.Millisecond)
}
