package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/errors"
	"github.com/jwalitptl/notify-api/pkg/sqlutil"
)

const jobColumns = `id, job_type, organization_id, job_id, user_id, job_token, delivery_status, claimed_at, created_at`

type jobRepository struct {
	BaseRepository
}

func NewJobRepository(base BaseRepository) repository.JobRepository {
	return &jobRepository{base}
}

// CreateBatch inserts all job rows for a scheduling request inside one
// transaction, so the scheduler is never told about a job that does not
// durably exist.
func (r *jobRepository) CreateBatch(ctx context.Context, jobs []*model.Job) error {
	if len(jobs) == 0 {
		return fmt.Errorf("no jobs to insert")
	}

	now := time.Now()
	builder := sqlutil.NewInsert("jobs",
		"id", "job_type", "organization_id", "job_id", "user_id", "job_token", "delivery_status", "created_at")
	for _, j := range jobs {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
		j.CreatedAt = now
		builder.Values(j.ID, j.JobType, j.OrganizationID, j.EntityID, j.UserID, j.TokenHash, j.DeliveryStatus, j.CreatedAt)
	}

	query, args, err := builder.Build()
	if err != nil {
		return err
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert jobs: %w", err)
		}
		return nil
	})
}

// GetForExecution reads a job for a webhook callback. Delivered jobs are
// filtered out at the read boundary so a replay of a completed job is
// indistinguishable from a missing one.
func (r *jobRepository) GetForExecution(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE id = $1
		AND delivery_status IS DISTINCT FROM 'delivered'
	`

	var job model.Job
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("job", err)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// Claim moves a job to working with a single conditional update, which
// is the only gate between two concurrent callbacks for the same job.
// The follow-up read merely refines the error for losers of the race.
func (r *jobRepository) Claim(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	query := `
		UPDATE jobs
		SET delivery_status = 'working', claimed_at = NOW()
		WHERE id = $1
		AND delivery_status IS DISTINCT FROM 'working'
		AND delivery_status IS DISTINCT FROM 'delivered'
		RETURNING ` + jobColumns

	var job model.Job
	err := r.db.GetContext(ctx, &job, query, id)
	if err == nil {
		return &job, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	var status sql.NullString
	if err := r.db.GetContext(ctx, &status, `SELECT delivery_status FROM jobs WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("job", err)
		}
		return nil, fmt.Errorf("failed to read job status: %w", err)
	}
	if status.Valid && status.String == string(model.DeliveryStatusWorking) {
		return nil, errors.Conflict("job is already in progress", nil)
	}
	return nil, errors.NotFound("job", sql.ErrNoRows)
}

func (r *jobRepository) SetStatus(ctx context.Context, id uuid.UUID, status model.DeliveryStatus) error {
	query := `
		UPDATE jobs
		SET delivery_status = $1
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("job", sql.ErrNoRows)
	}
	return nil
}

// ListStaleWorking surfaces jobs stuck in working past the staleness
// threshold so the reconciler can fail them. Staleness is keyed on the
// claim timestamp; created_at reflects scheduling time, which can be
// days before execution.
func (r *jobRepository) ListStaleWorking(ctx context.Context, olderThan time.Time, limit int) ([]*model.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE delivery_status = 'working'
		AND claimed_at < $1
		ORDER BY claimed_at ASC
		LIMIT $2
	`

	var jobs []*model.Job
	if err := r.db.SelectContext(ctx, &jobs, query, olderThan, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale jobs: %w", err)
	}
	return jobs, nil
}
