package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"kgraph-core/internal/aiprovider"
	"kgraph-core/internal/apperrors"
	"kgraph-core/internal/chunker"
	"kgraph-core/internal/domain"
	"kgraph-core/internal/vocabulary"
)

// graphStore is the narrow slice of *graphstore.Client the pipeline
// depends on.
type graphStore interface {
	CreateConcept(ctx context.Context, concept domain.Concept) error
	ExtendConceptSearchTerms(ctx context.Context, conceptID string, newTerms []string) error
	VectorSearch(ctx context.Context, ontology string, query []float32, threshold float64, topK int) ([]domain.ScoredConcept, error)
	CreateSource(ctx context.Context, src domain.Source) error
	CreateInstance(ctx context.Context, sourceID, quote string) (string, error)
	LinkAppears(ctx context.Context, conceptID, sourceID string) error
	LinkEvidence(ctx context.Context, conceptID, instanceID string) error
	CreateConceptEdge(ctx context.Context, fromID, toID, edgeType string, prov domain.EdgeProvenance) error
	DocumentContext(ctx context.Context, ontology string, limit int) ([]domain.Concept, error)
	CreateDocumentMeta(ctx context.Context, meta domain.DocumentMeta, sourceIDs []string) error
	FindDocumentMeta(ctx context.Context, contentHash, ontology string) (*domain.DocumentMeta, error)
	ListVocabTypes(ctx context.Context, limit int) ([]domain.VocabType, error)
	DeleteOntology(ctx context.Context, ontology string) (int, error)
}

// objectStore is the narrow slice of *objectstore.Store the pipeline
// depends on.
type objectStore interface {
	PutSourceDocument(ctx context.Context, ontology, ext string, data []byte) (key string, hash string, err error)
	UploadImage(ctx context.Context, ontology, sourceID, filename string, data []byte) (key string, mime string, err error)
	DeleteOntology(ctx context.Context, ontology string) (int, error)
}

// vocabRegistrar is the slice of *vocabulary.Manager the pipeline depends
// on: registering newly observed relationship types and triggering the
// post-ingestion sync.
type vocabRegistrar interface {
	Add(ctx context.Context, p vocabulary.AddParams) error
	SyncFromGraph(ctx context.Context, performedBy string) ([]string, error)
}

// jobDeleter is the job-queue dependency ontology deletion clears job rows
// through. Optional: a nil jobs field skips
// this step, since the queue isn't always wired in every deployment of this
// pipeline (e.g. a one-shot CLI ingestion run with no queue).
type jobDeleter interface {
	DeleteJobsByOntology(ctx context.Context, ontology string) error
}

// Clock abstracts wall-clock reads so callers can pin timestamps.
type Clock func() time.Time

// Pipeline ingests one document end to end.
type Pipeline struct {
	graph           graphStore
	objects         objectStore
	vocab           vocabRegistrar
	jobs            jobDeleter
	extractor       aiprovider.Extractor
	embedder        aiprovider.Embedder
	vision          aiprovider.VisionDescriber
	visualEmbedder  aiprovider.VisualEmbedder
	checkpoints     CheckpointStore
	metrics         MetricsSink
	wordChunker     chunker.WordBudgetChunker
	markdownChunker chunker.MarkdownChunker
	useMarkdown     bool
	upsertThreshold float64
	contextWindow   int
	now             Clock
	logger          *zap.Logger
}

// Config bundles the few numeric knobs IngestDocument needs beyond its
// collaborators.
type Config struct {
	UpsertThreshold    float64
	ContextWindowLimit int // default 50
	UseMarkdownChunker bool
	WordBudget         chunker.WordBudgetChunker
	MarkdownBudget     chunker.WordBudgetChunker
}

func New(
	graph graphStore,
	objects objectStore,
	vocab vocabRegistrar,
	jobs jobDeleter,
	extractor aiprovider.Extractor,
	embedder aiprovider.Embedder,
	vision aiprovider.VisionDescriber,
	visualEmbedder aiprovider.VisualEmbedder,
	checkpoints CheckpointStore,
	metrics MetricsSink,
	cfg Config,
	now Clock,
	logger *zap.Logger,
) *Pipeline {
	if cfg.ContextWindowLimit <= 0 {
		cfg.ContextWindowLimit = 50
	}
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		graph:           graph,
		objects:         objects,
		vocab:           vocab,
		jobs:            jobs,
		extractor:       extractor,
		embedder:        embedder,
		vision:          vision,
		visualEmbedder:  visualEmbedder,
		checkpoints:     checkpoints,
		metrics:         metrics,
		wordChunker:     cfg.WordBudget,
		markdownChunker: chunker.MarkdownChunker{WordBudget: cfg.MarkdownBudget},
		useMarkdown:     cfg.UseMarkdownChunker,
		upsertThreshold: cfg.UpsertThreshold,
		contextWindow:   cfg.ContextWindowLimit,
		now:             now,
		logger:          logger,
	}
}

// IngestDocument runs one job end to end: hash, content-addressed
// blob write, DocumentMeta dedup check, chunk, and then process every chunk
// in order.
//
// Chunk processing below is a plain for loop, never a goroutine fan-out.
// Concepts upserted by chunk N become the context window and the vector
// search candidate set for chunk N+1, so parallelizing this loop would
// non-deterministically change which concepts get merged versus duplicated
// — the one piece of this pipeline where reaching for concurrency would be
// a correctness bug, not just a missed optimization.
func (p *Pipeline) IngestDocument(ctx context.Context, job Job) (Result, error) {
	contentHash := domain.ContentHash(job.Raw)

	existing, err := p.graph.FindDocumentMeta(ctx, contentHash, job.Ontology)
	if err != nil {
		return Result{}, fmt.Errorf("find document meta: %w", err)
	}
	if existing != nil {
		p.logger.Info("document already ingested, skipping",
			zap.String("ontology", job.Ontology), zap.String("content_hash", contentHash))
		return Result{DocumentID: existing.DocumentID, Skipped: true}, nil
	}

	documentName := documentCheckpointName(job, contentHash)
	cp, resumed, err := p.loadOrInitCheckpoint(ctx, job.Ontology, documentName, contentHash)
	if err != nil {
		return Result{}, fmt.Errorf("load checkpoint: %w", err)
	}

	var garageKey *string
	if !job.IsImage {
		key, _, err := p.objects.PutSourceDocument(ctx, job.Ontology, "txt", job.Raw)
		if err != nil {
			return Result{}, fmt.Errorf("put source document: %w", err)
		}
		garageKey = &key
	}

	chunks, err := p.chunkJob(ctx, job, contentHash)
	if err != nil {
		return Result{}, fmt.Errorf("chunk document: %w", err)
	}

	if resumed {
		p.logger.Info("resuming document ingestion from checkpoint",
			zap.String("ontology", job.Ontology), zap.Int("resume_from_chunk", cp.ResumeFromChunk))
	}

	vocabTypes, err := p.graph.ListVocabTypes(ctx, 0)
	if err != nil {
		return Result{}, fmt.Errorf("list vocab types: %w", err)
	}
	matcher := NewMatcher(vocabTypes)

	for i := cp.ResumeFromChunk; i < len(chunks); i++ {
		chunk := chunks[i]
		window, err := p.gatherContextWindow(ctx, job.Ontology)
		if err != nil {
			return Result{}, fmt.Errorf("gather context window for chunk %d: %w", i, err)
		}

		chunkResult, err := p.processChunk(ctx, job, contentHash, i, chunk, window, vocabTypes, matcher, garageKey)
		if err != nil {
			p.logger.Error("chunk processing failed, checkpoint left in place for retry",
				zap.String("ontology", job.Ontology), zap.Int("chunk", i), zap.Error(err))
			return Result{}, apperrors.Wrap(err, fmt.Sprintf("process chunk %d", i))
		}

		cp.Stats.Add(chunkResult.stats)
		cp.recordConceptIDs(chunkResult.conceptIDs...)
		cp.SourceIDs = append(cp.SourceIDs, chunkResult.sourceID)
		cp.ResumeFromChunk = i + 1
		if err := p.checkpoints.Save(ctx, job.Ontology, documentName, cp); err != nil {
			return Result{}, fmt.Errorf("save checkpoint after chunk %d: %w", i, err)
		}
	}

	meta := domain.DocumentMeta{
		DocumentID:  contentHash,
		ContentHash: contentHash,
		Ontology:    job.Ontology,
		SourceCount: len(cp.SourceIDs),
		IngestedBy:  job.IngestedBy,
		JobID:       job.JobID,
		Filename:    job.Filename,
		SourceType:  job.SourceType,
		FilePath:    job.FilePath,
		Hostname:    job.Hostname,
		IngestedAt:  p.now().UTC().Format(time.RFC3339),
		GarageKey:   garageKey,
	}
	if err := p.graph.CreateDocumentMeta(ctx, meta, cp.SourceIDs); err != nil {
		return Result{}, fmt.Errorf("create document meta: %w", err)
	}

	if _, err := p.vocab.SyncFromGraph(ctx, "system"); err != nil {
		p.logger.Warn("post-ingestion vocabulary sync failed", zap.Error(err))
	}
	if p.metrics != nil {
		if err := p.metrics.Record(ctx, job.Ontology, cp.Stats); err != nil {
			p.logger.Warn("graph metrics refresh failed", zap.Error(err))
		}
	}
	if err := p.checkpoints.Clear(ctx, job.Ontology, documentName); err != nil {
		p.logger.Warn("checkpoint cleanup failed", zap.Error(err))
	}

	return Result{DocumentID: contentHash, Stats: cp.Stats}, nil
}

func (p *Pipeline) loadOrInitCheckpoint(ctx context.Context, ontology, documentName, contentHash string) (Checkpoint, bool, error) {
	cp, found, err := p.checkpoints.Load(ctx, ontology, documentName)
	if err != nil {
		return Checkpoint{}, false, err
	}
	if !found || cp == nil {
		return Checkpoint{ContentHash: contentHash}, false, nil
	}
	if cp.ContentHash != contentHash {
		p.logger.Warn("checkpoint content_hash does not match document, discarding and restarting from chunk 0",
			zap.String("ontology", ontology), zap.String("document_name", documentName),
			zap.String("checkpoint_content_hash", cp.ContentHash), zap.String("content_hash", contentHash))
		return Checkpoint{ContentHash: contentHash}, false, nil
	}
	return *cp, true, nil
}

func documentCheckpointName(job Job, contentHash string) string {
	name := contentHash
	if job.Filename != nil && *job.Filename != "" {
		name = *job.Filename
	}
	return strings.NewReplacer(" ", "_", "/", "_").Replace(strings.ToLower(name))
}

// DeleteOntology cascades a document-ontology delete across the graph and
// object stores, and clears any queued jobs for it.
func (p *Pipeline) DeleteOntology(ctx context.Context, ontology string) error {
	if _, err := p.graph.DeleteOntology(ctx, ontology); err != nil {
		return fmt.Errorf("delete ontology from graph: %w", err)
	}
	if _, err := p.objects.DeleteOntology(ctx, ontology); err != nil {
		return fmt.Errorf("delete ontology from object store: %w", err)
	}
	if p.jobs != nil {
		if err := p.jobs.DeleteJobsByOntology(ctx, ontology); err != nil {
			return fmt.Errorf("delete jobs for ontology: %w", err)
		}
	}
	return nil
}
