package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kgraph-core/internal/domain"
	"kgraph-core/internal/sqlstore"
)

const defaultMaxRetries = 3

// repo is the narrow slice of *sqlstore.DB the queue depends on.
type repo interface {
	InsertJob(ctx context.Context, p sqlstore.InsertJobParams) error
	GetJob(ctx context.Context, id string) (*sqlstore.JobRow, error)
	ApproveJob(ctx context.Context, id, by string) error
	UpdateJobProgress(ctx context.Context, id string, progress, stats any) error
	MarkJobCompleted(ctx context.Context, id string, stats any) error
	RequeueJobForRetry(ctx context.Context, id string, retries int, errMsg string, cooldown time.Duration) error
	MarkJobFailed(ctx context.Context, id, errMsg string) error
	DequeueApprovedJob(ctx context.Context) (*sqlstore.JobRow, error)
	DeleteJobsByOntology(ctx context.Context, ontology string) error
}

// Queue is the persisted FIFO job queue.
type Queue struct {
	db       repo
	policy   *approvalPolicy
	workers  map[JobType]WorkerFunc
	logger   *zap.Logger
}

func New(db repo, logger *zap.Logger) *Queue {
	return &Queue{db: db, policy: newApprovalPolicy(), workers: map[JobType]WorkerFunc{}, logger: logger}
}

// Register adds or replaces the worker for jobType.
func (q *Queue) Register(jobType JobType, fn WorkerFunc) {
	q.workers[jobType] = fn
}

// SetApprovalOverride changes whether jobType is auto-approved at enqueue
// time, overriding the default maintenance-type table (O4).
func (q *Queue) SetApprovalOverride(jobType JobType, autoApprove bool) {
	q.policy.SetOverride(jobType, autoApprove)
}

// EnqueueParams is the enqueue request, generalized to any job type.
type EnqueueParams struct {
	Type       JobType
	Ontology   string
	Data       map[string]any
	MaxRetries int
}

// Enqueue inserts a new job row, auto-approving it when its type is in the
// maintenance set.
func (q *Queue) Enqueue(ctx context.Context, p EnqueueParams) (string, error) {
	id := domain.NewJobID()
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	status := StatusQueued
	var approvedBy *string
	if q.policy.isAutoApproved(p.Type) {
		status = StatusApproved
		system := "system"
		approvedBy = &system
	}

	if err := q.db.InsertJob(ctx, sqlstore.InsertJobParams{
		ID:         id,
		Type:       string(p.Type),
		Ontology:   p.Ontology,
		Data:       p.Data,
		Status:     status,
		ApprovedBy: approvedBy,
		MaxRetries: maxRetries,
	}); err != nil {
		return "", fmt.Errorf("enqueue job type %q: %w", p.Type, err)
	}
	return id, nil
}

// Approve transitions a queued job to approved.
func (q *Queue) Approve(ctx context.Context, id, by string) error {
	if err := q.db.ApproveJob(ctx, id, by); err != nil {
		return fmt.Errorf("approve job %q: %w", id, err)
	}
	return nil
}

// GetJob fetches one job's current state.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	row, err := q.db.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %q: %w", id, err)
	}
	if row == nil {
		return nil, nil
	}
	return rowToJob(row)
}

// DeleteJobsByOntology implements ingestion.jobDeleter.
func (q *Queue) DeleteJobsByOntology(ctx context.Context, ontology string) error {
	if err := q.db.DeleteJobsByOntology(ctx, ontology); err != nil {
		return fmt.Errorf("delete jobs for ontology %q: %w", ontology, err)
	}
	return nil
}

// reporter persists a single job's progress/stats as they change, wired
// into the WorkerFunc it's passed to.
type reporter struct {
	ctx context.Context
	db  repo
	id  string
}

func (r *reporter) ReportProgress(progress, stats map[string]any) error {
	if err := r.db.UpdateJobProgress(r.ctx, r.id, progress, stats); err != nil {
		return fmt.Errorf("report progress for job %q: %w", r.id, err)
	}
	return nil
}

// RunOnce dequeues and processes a single approved job, if one is
// available. Returns ran=false when the queue was empty.
func (q *Queue) RunOnce(ctx context.Context) (ran bool, err error) {
	row, err := q.db.DequeueApprovedJob(ctx)
	if err != nil {
		return false, fmt.Errorf("dequeue approved job: %w", err)
	}
	if row == nil {
		return false, nil
	}

	job, err := rowToJob(row)
	if err != nil {
		return true, fmt.Errorf("decode job %q: %w", row.ID, err)
	}

	worker, registered := q.workers[job.Type]
	if !registered {
		failErr := fmt.Sprintf("no worker registered for job type %q", job.Type)
		if markErr := q.db.MarkJobFailed(ctx, job.ID, failErr); markErr != nil {
			return true, fmt.Errorf("mark job %q failed (unregistered type): %w", job.ID, markErr)
		}
		return true, nil
	}

	runErr := worker(ctx, *job, &reporter{ctx: ctx, db: q.db, id: job.ID})
	if runErr == nil {
		if err := q.db.MarkJobCompleted(ctx, job.ID, job.Stats); err != nil {
			return true, fmt.Errorf("mark job %q completed: %w", job.ID, err)
		}
		return true, nil
	}

	retries := row.Retries + 1
	if retries >= row.MaxRetries {
		if err := q.db.MarkJobFailed(ctx, job.ID, runErr.Error()); err != nil {
			return true, fmt.Errorf("mark job %q failed: %w", job.ID, err)
		}
		q.logger.Warn("job exhausted retry budget", zap.String("job_id", job.ID), zap.String("job_type", string(job.Type)), zap.Error(runErr))
		return true, nil
	}

	cooldown := cooldownFor(retries)
	if err := q.db.RequeueJobForRetry(ctx, job.ID, retries, runErr.Error(), cooldown); err != nil {
		return true, fmt.Errorf("requeue job %q: %w", job.ID, err)
	}
	q.logger.Info("job failed, requeued with cooldown",
		zap.String("job_id", job.ID), zap.String("job_type", string(job.Type)),
		zap.Int("retries", retries), zap.Duration("cooldown", cooldown), zap.Error(runErr))
	return true, nil
}

func rowToJob(row *sqlstore.JobRow) (*Job, error) {
	job := &Job{
		ID:         row.ID,
		Type:       JobType(row.Type),
		Ontology:   row.Ontology,
		Status:     row.Status,
		CreatedAt:  row.CreatedAt,
		ApprovedAt: row.ApprovedAt,
		ApprovedBy: row.ApprovedBy,
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
		Retries:    row.Retries,
		MaxRetries: row.MaxRetries,
		Error:      row.Error,
	}
	if len(row.DataJSON) > 0 {
		if err := json.Unmarshal(row.DataJSON, &job.Data); err != nil {
			return nil, fmt.Errorf("unmarshal job data: %w", err)
		}
	}
	if len(row.ProgressJSON) > 0 {
		if err := json.Unmarshal(row.ProgressJSON, &job.Progress); err != nil {
			return nil, fmt.Errorf("unmarshal job progress: %w", err)
		}
	}
	if len(row.StatsJSON) > 0 {
		if err := json.Unmarshal(row.StatsJSON, &job.Stats); err != nil {
			return nil, fmt.Errorf("unmarshal job stats: %w", err)
		}
	}
	return job, nil
}
