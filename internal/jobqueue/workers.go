package jobqueue

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"kgraph-core/internal/aiprovider"
	"kgraph-core/internal/apperrors"
	"kgraph-core/internal/domain"
	"kgraph-core/internal/epistemic"
	"kgraph-core/internal/grounding"
	"kgraph-core/internal/ingestion"
	"kgraph-core/internal/vocabulary"
)

// decodeJobData round-trips a job's untyped data map through JSON into a
// concrete struct, since sqlstore stores job data as a JSONB blob with no
// schema of its own.
func decodeJobData(data map[string]any, dest any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal job data: %w", err)
	}
	return json.Unmarshal(raw, dest)
}

// sourceRepo is the slice of *graphstore.Client the source_embedding worker
// needs: find sources lacking an embedding, fetch each one's text, write
// the computed vector back.
type sourceRepo interface {
	SourcesMissingEmbedding(ctx context.Context, ontology string, limit int) ([]string, error)
	GetSource(ctx context.Context, sourceID string) (*domain.Source, error)
	SetSourceEmbedding(ctx context.Context, sourceID string, embedding []float32) error
}

// artifactRepo is the slice of *sqlstore.DB the artifact_cleanup worker
// needs.
type artifactRepo interface {
	DeleteExpiredArtifacts(ctx context.Context) (int64, error)
}

// projectionRefresher is the cache dependency the projection worker
// dispatches into; internal/projection.Service satisfies it.
type projectionRefresher interface {
	Refresh(ctx context.Context, ontology string) error
}

// Deps bundles the collaborators the built-in worker set dispatches
// into. Any field left nil yields a worker that returns an error when
// dispatched rather than panicking, so a deployment can wire a subset.
type Deps struct {
	Pipeline   *ingestion.Pipeline
	Vocabulary *vocabulary.Manager
	Epistemic  *epistemic.Service
	Grounding  *grounding.Engine
	Sources    sourceRepo
	Embedder   aiprovider.Embedder
	Artifacts  artifactRepo
	Projection projectionRefresher
}

const groundingPersistPageSize = 200

// RegisterBuiltins wires the eight built-in worker types into q.
func RegisterBuiltins(q *Queue, deps Deps) {
	q.Register(TypeIngestion, ingestionWorker(deps.Pipeline))
	q.Register(TypeVocabConsolidate, vocabConsolidateWorker(deps.Vocabulary))
	q.Register(TypeVocabRefresh, vocabRefreshWorker(deps.Vocabulary))
	q.Register(TypeEpistemicRemeasure, epistemicRemeasureWorker(deps.Epistemic, deps.Grounding))
	q.Register(TypeProjection, projectionWorker(deps.Projection))
	q.Register(TypeSourceEmbedding, sourceEmbeddingWorker(deps.Sources, deps.Embedder))
	q.Register(TypeArtifactCleanup, artifactCleanupWorker(deps.Artifacts))
	q.Register(TypeProposalExecution, proposalExecutionWorker())
}

// ingestionJobData is the shape enqueue(type="ingestion", data) carries;
// Raw travels base64-encoded since job data is stored as JSON.
type ingestionJobData struct {
	Ontology     string `json:"ontology"`
	IngestedBy   string `json:"ingested_by"`
	SourceType   string `json:"source_type"`
	Filename     string `json:"filename,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
	RawBase64    string `json:"raw_base64"`
	IsImage      bool   `json:"is_image,omitempty"`
}

func ingestionWorker(pipeline *ingestion.Pipeline) WorkerFunc {
	return func(ctx context.Context, job Job, report Reporter) error {
		if pipeline == nil {
			return apperrors.NotImplemented("ingestion pipeline not wired")
		}
		var data ingestionJobData
		if err := decodeJobData(job.Data, &data); err != nil {
			return fmt.Errorf("decode ingestion job data: %w", err)
		}
		raw, err := base64.StdEncoding.DecodeString(data.RawBase64)
		if err != nil {
			return fmt.Errorf("decode ingestion job raw payload: %w", err)
		}

		ingestJob := ingestion.Job{
			JobID:      job.ID,
			Ontology:   data.Ontology,
			IngestedBy: data.IngestedBy,
			SourceType: domain.SourceType(data.SourceType),
			Raw:        raw,
			IsImage:    data.IsImage,
		}
		if data.Filename != "" {
			ingestJob.Filename = &data.Filename
		}
		if data.FilePath != "" {
			ingestJob.FilePath = &data.FilePath
		}
		if data.Hostname != "" {
			ingestJob.Hostname = &data.Hostname
		}

		result, err := pipeline.IngestDocument(ctx, ingestJob)
		if err != nil {
			return fmt.Errorf("ingest document: %w", err)
		}
		return report.ReportProgress(
			map[string]any{"document_id": result.DocumentID, "skipped": result.Skipped},
			map[string]any{
				"concepts_created":      result.Stats.ConceptsCreated,
				"concepts_linked":       result.Stats.ConceptsLinked,
				"sources_created":       result.Stats.SourcesCreated,
				"instances_created":     result.Stats.InstancesCreated,
				"relationships_created": result.Stats.RelationshipsCreated,
			})
	}
}

func vocabConsolidateWorker(mgr *vocabulary.Manager) WorkerFunc {
	return func(ctx context.Context, job Job, report Reporter) error {
		if mgr == nil {
			return apperrors.NotImplemented("vocabulary manager not wired")
		}
		performedBy := stringDataField(job.Data, "performed_by", "system")
		edgesRetargeted := 0
		deprecated, _ := job.Data["deprecated_type"].(string)
		target, _ := job.Data["target_type"].(string)
		reason := stringDataField(job.Data, "reason", "scheduled consolidation")
		if deprecated != "" && target != "" {
			var err error
			edgesRetargeted, err = mgr.Merge(ctx, deprecated, target, performedBy, reason)
			if err != nil {
				return fmt.Errorf("merge %q into %q: %w", deprecated, target, err)
			}
		}
		return report.ReportProgress(nil, map[string]any{"edges_retargeted": edgesRetargeted})
	}
}

func vocabRefreshWorker(mgr *vocabulary.Manager) WorkerFunc {
	return func(ctx context.Context, job Job, report Reporter) error {
		if mgr == nil {
			return apperrors.NotImplemented("vocabulary manager not wired")
		}
		currentModel := stringDataField(job.Data, "current_model", "")
		scope := vocabulary.RegenerateScope(stringDataField(job.Data, "scope", string(vocabulary.RegenerateOnlyMissing)))
		regenerated, err := mgr.RegenerateEmbeddings(ctx, scope, currentModel)
		if err != nil {
			return fmt.Errorf("regenerate vocabulary embeddings: %w", err)
		}
		return report.ReportProgress(nil, map[string]any{"regenerated": regenerated})
	}
}

func epistemicRemeasureWorker(svc *epistemic.Service, eng *grounding.Engine) WorkerFunc {
	return func(ctx context.Context, job Job, report Reporter) error {
		if svc == nil {
			return apperrors.NotImplemented("epistemic service not wired")
		}
		if eng != nil {
			if _, err := eng.PersistAll(ctx, groundingPersistPageSize); err != nil {
				return fmt.Errorf("persist grounding before remeasurement: %w", err)
			}
		}
		results, err := svc.MeasureAll(ctx, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("measure epistemic status for all types: %w", err)
		}
		return report.ReportProgress(nil, map[string]any{"types_measured": len(results)})
	}
}

func projectionWorker(refresher projectionRefresher) WorkerFunc {
	return func(ctx context.Context, job Job, report Reporter) error {
		if refresher == nil {
			return apperrors.NotImplemented("projection refresher not wired")
		}
		if err := refresher.Refresh(ctx, job.Ontology); err != nil {
			return fmt.Errorf("refresh projection for ontology %q: %w", job.Ontology, err)
		}
		return nil
	}
}

func sourceEmbeddingWorker(repo sourceRepo, embedder aiprovider.Embedder) WorkerFunc {
	return func(ctx context.Context, job Job, report Reporter) error {
		if repo == nil || embedder == nil {
			return apperrors.NotImplemented("source embedding collaborators not wired")
		}
		limit := intDataField(job.Data, "limit", 100)
		ids, err := repo.SourcesMissingEmbedding(ctx, job.Ontology, limit)
		if err != nil {
			return fmt.Errorf("list sources missing embedding for %q: %w", job.Ontology, err)
		}

		embedded := 0
		for _, sourceID := range ids {
			src, err := repo.GetSource(ctx, sourceID)
			if err != nil {
				return fmt.Errorf("get source %q: %w", sourceID, err)
			}
			if src == nil || src.FullText == "" {
				continue
			}
			result, err := embedder.Embed(ctx, src.FullText)
			if err != nil {
				return fmt.Errorf("embed source %q: %w", sourceID, err)
			}
			if err := repo.SetSourceEmbedding(ctx, sourceID, result.Vector); err != nil {
				return fmt.Errorf("set embedding for source %q: %w", sourceID, err)
			}
			embedded++
			if err := report.ReportProgress(map[string]any{"sources_embedded": embedded}, nil); err != nil {
				return err
			}
		}
		return nil
	}
}

func artifactCleanupWorker(repo artifactRepo) WorkerFunc {
	return func(ctx context.Context, job Job, report Reporter) error {
		if repo == nil {
			return apperrors.NotImplemented("artifact repo not wired")
		}
		deleted, err := repo.DeleteExpiredArtifacts(ctx)
		if err != nil {
			return fmt.Errorf("delete expired artifacts: %w", err)
		}
		return report.ReportProgress(nil, map[string]any{"artifacts_deleted": deleted})
	}
}

// proposalExecutionWorker is O5: proposal_execution's lifecycle lives
// outside this core, so the registered handler exists only to turn a
// dequeue into a clean, typed failure rather than an unregistered-type
// error.
func proposalExecutionWorker() WorkerFunc {
	return func(ctx context.Context, job Job, report Reporter) error {
		return apperrors.NotImplemented("proposal_execution is not implemented by this core")
	}
}

func stringDataField(data map[string]any, key, fallback string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intDataField(data map[string]any, key string, fallback int) int {
	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
