// Package core exposes the caller-facing surface — EnqueueIngestion,
// GetJob, Search, GetDocumentSources — as one composed Service:
// a thin façade over several collaborators that a cmd/ binary
// or a (currently out-of-scope) HTTP handler calls into, rather than
// reaching into internal/jobqueue and internal/graphstore directly.
package core

import (
	"context"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"

	"kgraph-core/internal/aiprovider"
	"kgraph-core/internal/domain"
	"kgraph-core/internal/graphstore"
	"kgraph-core/internal/jobqueue"
)

// ChunkOptions is EnqueueIngestion's `options` argument.
type ChunkOptions struct {
	TargetWords   int
	MinWords      int
	MaxWords      int
	OverlapWords  int
	ChunkStrategy string
}

// IngestMetadata is EnqueueIngestion's `metadata` argument.
type IngestMetadata struct {
	UserID      string
	Username    string
	SourceType  domain.SourceType
	FilePath    string
	SourceURL   string
	Hostname    string
	Filename    string
	ContentHash string
}

// Service composes the job queue and graph store into the core's public
// boundary. Every field is a narrow interface so tests can supply fakes
// without pulling in the concrete jobqueue/graphstore packages.
type Service struct {
	jobs     enqueuer
	embedder aiprovider.Embedder
	searcher searcher
	sources  sourceGetter
	logger   *zap.Logger
}

type enqueuer interface {
	Enqueue(ctx context.Context, p jobqueue.EnqueueParams) (string, error)
	GetJob(ctx context.Context, id string) (*jobqueue.Job, error)
}

type searcher interface {
	Search(ctx context.Context, ontology string, embedding []float32, k int, threshold float64) ([]domain.ScoredConcept, error)
}

type sourceGetter interface {
	GetSource(ctx context.Context, sourceID string) (*domain.Source, error)
}

func New(jobs *jobqueue.Queue, embedder aiprovider.Embedder, graph *graphstore.Client, logger *zap.Logger) *Service {
	return &Service{jobs: jobs, embedder: embedder, searcher: graph, sources: graph, logger: logger}
}

// ingestionJobData mirrors jobqueue's unexported wire shape for the
// "ingestion" job type; duplicated here rather than exported across package
// boundaries, since job data has no shared schema type by design.
type ingestionJobData struct {
	Ontology   string `json:"ontology"`
	IngestedBy string `json:"ingested_by"`
	SourceType string `json:"source_type"`
	Filename   string `json:"filename,omitempty"`
	FilePath   string `json:"file_path,omitempty"`
	Hostname   string `json:"hostname,omitempty"`
	RawBase64  string `json:"raw_base64"`
	IsImage    bool   `json:"is_image,omitempty"`
}

// EnqueueIngestion creates an ingestion job and returns its job_id.
// Non-zero chunking options are stored in the job's data map; the ingestion
// worker does not read them, so every job is chunked with the
// container-wide chunker settings.
func (s *Service) EnqueueIngestion(ctx context.Context, content []byte, ontology string, opts ChunkOptions, meta IngestMetadata, isImage bool) (string, error) {
	data := map[string]any{
		"ontology":    ontology,
		"ingested_by": meta.UserID,
		"source_type": string(meta.SourceType),
		"filename":    meta.Filename,
		"file_path":   meta.FilePath,
		"hostname":    meta.Hostname,
		"raw_base64":  base64.StdEncoding.EncodeToString(content),
		"is_image":    isImage,
	}
	if opts.TargetWords > 0 {
		data["target_words"] = opts.TargetWords
		data["min_words"] = opts.MinWords
		data["max_words"] = opts.MaxWords
		data["overlap_words"] = opts.OverlapWords
	}
	if opts.ChunkStrategy != "" {
		data["chunk_strategy"] = opts.ChunkStrategy
	}

	id, err := s.jobs.Enqueue(ctx, jobqueue.EnqueueParams{
		Type:     jobqueue.TypeIngestion,
		Ontology: ontology,
		Data:     data,
	})
	if err != nil {
		return "", fmt.Errorf("enqueue ingestion: %w", err)
	}
	s.logger.Info("ingestion enqueued", zap.String("job_id", id), zap.String("ontology", ontology), zap.String("ingested_by", meta.UserID))
	return id, nil
}

// JobStatus is GetJob's {status, progress, stats?, error?} response.
type JobStatus struct {
	Status   jobqueue.Status
	Progress map[string]any
	Stats    map[string]any
	Error    *string
}

// GetJob reports a job's current status.
func (s *Service) GetJob(ctx context.Context, id string) (*JobStatus, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %q: %w", id, err)
	}
	if job == nil {
		return nil, nil
	}
	return &JobStatus{Status: job.Status, Progress: job.Progress, Stats: job.Stats, Error: job.Error}, nil
}

// SearchResult is one row of a Search response.
type SearchResult struct {
	ConceptID   string
	Label       string
	Description string
	Similarity  float64
}

// Search embeds queryText via the active provider, then delegates to the
// graph store's vector search.
func (s *Service) Search(ctx context.Context, ontology, queryText string, k int, threshold float64) ([]SearchResult, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("search: no embedding provider configured")
	}
	emb, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query text: %w", err)
	}
	scored, err := s.searcher.Search(ctx, ontology, emb.Vector, k, threshold)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	results := make([]SearchResult, 0, len(scored))
	for _, c := range scored {
		results = append(results, SearchResult{
			ConceptID:   c.ConceptID,
			Label:       c.Label,
			Description: c.Description,
			Similarity:  c.Similarity,
		})
	}
	return results, nil
}

// GetDocumentSources returns a Source's metadata and storage keys.
// Callers fetch the blob itself from the
// object-storage client directly using the returned GarageKey/StorageKey;
// this method never touches object storage.
func (s *Service) GetDocumentSources(ctx context.Context, sourceID string) (*domain.Source, error) {
	src, err := s.sources.GetSource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get source %q: %w", sourceID, err)
	}
	return src, nil
}
