package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus mirrors jobqueue.Status without importing it — jobqueue depends
// on sqlstore, not the other way around.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobApproved   JobStatus = "approved"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// JobRow is one row of the jobs table.
type JobRow struct {
	ID            string     `db:"id"`
	Type          string     `db:"job_type"`
	Ontology      string     `db:"ontology"`
	DataJSON      []byte     `db:"data"`
	Status        JobStatus  `db:"status"`
	ProgressJSON  []byte     `db:"progress"`
	StatsJSON     []byte     `db:"stats"`
	CreatedAt     time.Time  `db:"created_at"`
	ApprovedAt    *time.Time `db:"approved_at"`
	ApprovedBy    *string    `db:"approved_by"`
	StartedAt     *time.Time `db:"started_at"`
	FinishedAt    *time.Time `db:"finished_at"`
	Retries       int        `db:"retries"`
	MaxRetries    int        `db:"max_retries"`
	NextAttemptAt time.Time  `db:"next_attempt_at"`
	Error         *string    `db:"error"`
}

// InsertJobParams is the input to InsertJob.
type InsertJobParams struct {
	ID         string
	Type       string
	Ontology   string
	Data       any
	Status     JobStatus
	ApprovedBy *string
	MaxRetries int
}

// InsertJob enqueues a new job row. When ApprovedBy is set
// the row is created pre-approved with approved_at = now(), matching
// auto-approval of maintenance job types at enqueue time.
func (d *DB) InsertJob(ctx context.Context, p InsertJobParams) error {
	dataJSON, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("marshal job data: %w", err)
	}
	var approvedAt any
	if p.ApprovedBy != nil {
		approvedAt = time.Now().UTC()
	}
	_, err = d.conn.ExecContext(ctx, `
		INSERT INTO jobs (id, job_type, ontology, data, status, progress, stats, created_at,
		                   approved_at, approved_by, retries, max_retries)
		VALUES ($1, $2, $3, $4, $5, '{}', '{}', now(), $6, $7, 0, $8)`,
		p.ID, p.Type, p.Ontology, dataJSON, p.Status, approvedAt, p.ApprovedBy, p.MaxRetries)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches a job row by id, or nil, nil if it doesn't exist.
func (d *DB) GetJob(ctx context.Context, id string) (*JobRow, error) {
	var row JobRow
	err := d.conn.GetContext(ctx, &row, `
		SELECT id, job_type, ontology, data, status, progress, stats, created_at,
		       approved_at, approved_by, started_at, finished_at, retries, max_retries,
		       next_attempt_at, error
		FROM jobs WHERE id = $1`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job %q: %w", id, err)
	}
	return &row, nil
}

// ApproveJob sets status = approved, approved_by = by.
func (d *DB) ApproveJob(ctx context.Context, id, by string) error {
	_, err := d.conn.ExecContext(ctx, `
		UPDATE jobs SET status = $2, approved_at = now(), approved_by = $3
		WHERE id = $1`, id, JobApproved, by)
	if err != nil {
		return fmt.Errorf("approve job %q: %w", id, err)
	}
	return nil
}

// UpdateJobProgress persists a chunk-boundary progress update: progress and stats are caller-defined JSON blobs.
func (d *DB) UpdateJobProgress(ctx context.Context, id string, progress, stats any) error {
	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal job progress: %w", err)
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal job stats: %w", err)
	}
	_, err = d.conn.ExecContext(ctx, `
		UPDATE jobs SET progress = $2, stats = $3 WHERE id = $1`, id, progressJSON, statsJSON)
	if err != nil {
		return fmt.Errorf("update job progress %q: %w", id, err)
	}
	return nil
}

// MarkJobProcessing transitions a job to processing and stamps started_at.
func (d *DB) MarkJobProcessing(ctx context.Context, id string) error {
	_, err := d.conn.ExecContext(ctx, `
		UPDATE jobs SET status = $2, started_at = now() WHERE id = $1`, id, JobProcessing)
	if err != nil {
		return fmt.Errorf("mark job processing %q: %w", id, err)
	}
	return nil
}

// MarkJobCompleted transitions a job to completed and stamps finished_at.
func (d *DB) MarkJobCompleted(ctx context.Context, id string, stats any) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal job stats: %w", err)
	}
	_, err = d.conn.ExecContext(ctx, `
		UPDATE jobs SET status = $2, finished_at = now(), stats = $3 WHERE id = $1`,
		id, JobCompleted, statsJSON)
	if err != nil {
		return fmt.Errorf("mark job completed %q: %w", id, err)
	}
	return nil
}

// RequeueJobForRetry returns the job to approved with the failure recorded
// and next_attempt_at pushed out by cooldown, so DequeueApprovedJob skips it
// until the backoff elapses.
func (d *DB) RequeueJobForRetry(ctx context.Context, id string, retries int, errMsg string, cooldown time.Duration) error {
	_, err := d.conn.ExecContext(ctx, `
		UPDATE jobs SET status = $2, retries = $3, error = $4, started_at = NULL,
		                next_attempt_at = now() + ($5 * interval '1 second')
		WHERE id = $1`, id, JobApproved, retries, errMsg, cooldown.Seconds())
	if err != nil {
		return fmt.Errorf("requeue job %q: %w", id, err)
	}
	return nil
}

// MarkJobFailed marks a job permanently failed once its retry budget is
// exhausted.
func (d *DB) MarkJobFailed(ctx context.Context, id, errMsg string) error {
	_, err := d.conn.ExecContext(ctx, `
		UPDATE jobs SET status = $2, finished_at = now(), error = $3 WHERE id = $1`,
		id, JobFailed, errMsg)
	if err != nil {
		return fmt.Errorf("mark job failed %q: %w", id, err)
	}
	return nil
}

// DequeueApprovedJob atomically claims one approved job via
// `SELECT... FOR UPDATE SKIP LOCKED` and marks it processing in the same
// transaction, so two concurrent workers never race on
// the same row. Returns nil, nil when no approved job is available.
func (d *DB) DequeueApprovedJob(ctx context.Context) (*JobRow, error) {
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin dequeue transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var row JobRow
	err = tx.GetContext(ctx, &row, `
		SELECT id, job_type, ontology, data, status, progress, stats, created_at,
		       approved_at, approved_by, started_at, finished_at, retries, max_retries,
		       next_attempt_at, error
		FROM jobs WHERE status = $1 AND next_attempt_at <= now()
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1`, JobApproved)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue approved job: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = $2, started_at = now() WHERE id = $1`, row.ID, JobProcessing); err != nil {
		return nil, fmt.Errorf("claim job %q: %w", row.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit dequeue transaction: %w", err)
	}
	row.Status = JobProcessing
	return &row, nil
}

// DeleteJobsByOntology clears all job rows for an ontology.
func (d *DB) DeleteJobsByOntology(ctx context.Context, ontology string) error {
	_, err := d.conn.ExecContext(ctx, `DELETE FROM jobs WHERE ontology = $1`, ontology)
	if err != nil {
		return fmt.Errorf("delete jobs for ontology %q: %w", ontology, err)
	}
	return nil
}
