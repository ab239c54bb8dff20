package job

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Store is the durable record of scheduled jobs. Records are never deleted,
// terminal jobs are retained as an audit trail. Updates are last-writer-wins
// on a single record; the Scheduler funnels all mutation.
type Store interface {
	Create(ctx context.Context, j *Job) error
	Job(ctx context.Context, jobID string) (*Job, error)
	JobByReference(ctx context.Context, referenceID string) (*Job, error)
	JobsByStatus(ctx context.Context, status Status) ([]*Job, error)
	Update(ctx context.Context, j *Job) error
}

type Storage struct {
	db *gorm.DB
}

func NewStorage(db *gorm.DB) Storage {
	return Storage{db: db}
}

func (s Storage) Create(ctx context.Context, j *Job) error {
	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		return fmt.Errorf("could not create scheduled job: %w", err)
	}
	return nil
}

func (s Storage) Job(ctx context.Context, jobID string) (*Job, error) {
	j := &Job{}
	if err := s.db.WithContext(ctx).First(j, "job_id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not find scheduled job: %w", err)
	}
	return j, nil
}

func (s Storage) JobByReference(ctx context.Context, referenceID string) (*Job, error) {
	j := &Job{}
	err := s.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at DESC").
		First(j).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("could not find scheduled job by reference: %w", err)
	}
	return j, nil
}

func (s Storage) JobsByStatus(ctx context.Context, status Status) ([]*Job, error) {
	var jobs []*Job
	err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("schedule_time ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("could not find scheduled jobs: %w", err)
	}
	return jobs, nil
}

// Update persists status and schedule time changes. Identity fields are
// immutable.
func (s Storage) Update(ctx context.Context, j *Job) error {
	err := s.db.WithContext(ctx).
		Model(&Job{}).
		Omit("ID", "JobID", "CreatedAt").
		Where("job_id = ?", j.JobID).
		Updates(j).Error
	if err != nil {
		return fmt.Errorf("could not update scheduled job: %w", err)
	}
	return nil
}
