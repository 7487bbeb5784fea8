package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"nowplaying-bot/internal/queue"
)

// Jobs persists queue jobs so pending work survives a restart.
type Jobs struct {
	db *sqlx.DB
}

var _ queue.Store = (*Jobs)(nil)

// NewJobs returns the queue store backed by db.
func NewJobs(db *sqlx.DB) *Jobs {
	return &Jobs{db: db}
}

type jobRow struct {
	ID               string    `db:"id"`
	Name             string    `db:"name"`
	Payload          string    `db:"payload"`
	Attempts         int       `db:"attempts"`
	MaxAttempts      int       `db:"max_attempts"`
	RemoveOnComplete bool      `db:"remove_on_complete"`
	Status           string    `db:"status"`
	LastError        string    `db:"last_error"`
	CreatedAt        time.Time `db:"created_at"`
}

// Save inserts the job or replaces its stored state.
func (j *Jobs) Save(ctx context.Context, job queue.Job) error {
	row := jobRow{
		ID:               job.ID,
		Name:             job.Name,
		Payload:          string(job.Payload),
		Attempts:         job.Attempts,
		MaxAttempts:      job.MaxAttempts,
		RemoveOnComplete: job.RemoveOnComplete,
		Status:           string(job.Status),
		LastError:        job.LastError,
		CreatedAt:        job.CreatedAt.UTC(),
	}
	_, err := j.db.NamedExecContext(ctx, `insert or replace into jobs
		(id, name, payload, attempts, max_attempts, remove_on_complete, status, last_error, created_at)
		values(:id, :name, :payload, :attempts, :max_attempts, :remove_on_complete, :status, :last_error, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("saving job %s: %w", job.ID, err)
	}
	return nil
}

// Delete removes a finished job.
func (j *Jobs) Delete(ctx context.Context, id string) error {
	if _, err := j.db.ExecContext(ctx, `delete from jobs where id = ?`, id); err != nil {
		return fmt.Errorf("deleting job %s: %w", id, err)
	}
	return nil
}

// Pending returns pending jobs in creation order.
func (j *Jobs) Pending(ctx context.Context) ([]queue.Job, error) {
	return j.byStatus(ctx, queue.StatusPending)
}

// Failed returns jobs that used up their attempts, oldest first.
func (j *Jobs) Failed(ctx context.Context) ([]queue.Job, error) {
	return j.byStatus(ctx, queue.StatusFailed)
}

func (j *Jobs) byStatus(ctx context.Context, status queue.Status) ([]queue.Job, error) {
	var rows []jobRow
	err := j.db.SelectContext(ctx, &rows, `select * from jobs where status = ? order by created_at, id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("fetching %s jobs: %w", status, err)
	}

	jobs := make([]queue.Job, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, queue.Job{
			ID:               r.ID,
			Name:             r.Name,
			Payload:          json.RawMessage(r.Payload),
			Attempts:         r.Attempts,
			MaxAttempts:      r.MaxAttempts,
			RemoveOnComplete: r.RemoveOnComplete,
			Status:           queue.Status(r.Status),
			LastError:        r.LastError,
			CreatedAt:        r.CreatedAt,
		})
	}
	return jobs, nil
}
