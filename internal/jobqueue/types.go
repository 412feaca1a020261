// Package jobqueue is a persisted FIFO job queue over the
// relational store, with a pluggable worker registry, an approval gate, and
// exponential-cooldown retry.
package jobqueue

import (
	"context"
	"time"

	"kgraph-core/internal/sqlstore"
)

// Status is a job's lifecycle state.
type Status = sqlstore.JobStatus

const (
	StatusQueued     = sqlstore.JobQueued
	StatusApproved   = sqlstore.JobApproved
	StatusProcessing = sqlstore.JobProcessing
	StatusCompleted  = sqlstore.JobCompleted
	StatusFailed     = sqlstore.JobFailed
)

// JobType identifies a registered worker.
type JobType string

const (
	TypeIngestion            JobType = "ingestion"
	TypeVocabConsolidate     JobType = "vocab_consolidate"
	TypeVocabRefresh         JobType = "vocab_refresh"
	TypeEpistemicRemeasure   JobType = "epistemic_remeasurement"
	TypeProjection           JobType = "projection"
	TypeSourceEmbedding      JobType = "source_embedding"
	TypeArtifactCleanup      JobType = "artifact_cleanup"
	TypeProposalExecution    JobType = "proposal_execution"
)

// Job is the public view of one row, translated from sqlstore.JobRow's raw
// JSON columns into typed Data/Progress/Stats maps.
type Job struct {
	ID         string
	Type       JobType
	Ontology   string
	Data       map[string]any
	Status     Status
	Progress   map[string]any
	Stats      map[string]any
	CreatedAt  time.Time
	ApprovedAt *time.Time
	ApprovedBy *string
	StartedAt  *time.Time
	FinishedAt *time.Time
	Retries    int
	MaxRetries int
	Error      *string
}

// WorkerFunc processes one job. It receives the live job (data plus
// progress/stats accumulated so far from a prior crashed attempt) and a
// Reporter to persist chunk-boundary progress.
type WorkerFunc func(ctx context.Context, job Job, report Reporter) error

// Reporter lets a worker persist incremental progress so a crash mid-job
// resumes rather than restarts.
type Reporter interface {
	ReportProgress(progress, stats map[string]any) error
}
