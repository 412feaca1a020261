package grounding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kgraph-core/internal/domain"
)

// graphRepo is the narrow slice of *graphstore.Client the engine depends on.
type graphRepo interface {
	IncomingConceptEdges(ctx context.Context, conceptID string) ([]domain.IncomingEdge, error)
	PageConceptIDs(ctx context.Context, offset, limit int) ([]string, error)
	SetConceptGrounding(ctx context.Context, conceptID string, value float64) error
}

// vocabRepo is the narrow slice of *sqlstore.DB the engine depends on — the
// row, not the graph node, is authoritative for a VocabType's embedding.
type vocabRepo interface {
	GetVocabularyRow(ctx context.Context, relationshipType string) (*domain.VocabularyRow, error)
}

// Engine computes per-concept grounding scalars.
type Engine struct {
	graph  graphRepo
	vocab  vocabRepo
	pairs  []OpposingPair
	logger *zap.Logger

	// No embedding cache is kept on the Engine: Compute memoizes
	// VocabularyRow lookups only for the lifetime of one call, so each call
	// is independent and concurrent-safe.
}

func New(graph graphRepo, vocab vocabRepo, logger *zap.Logger) *Engine {
	return &Engine{graph: graph, vocab: vocab, pairs: DefaultOpposingPairs, logger: logger}
}

// Filter narrows which incoming edge types contribute to a Compute call.
type Filter struct {
	IncludeTypes []string
	ExcludeTypes []string
}

func (f Filter) allows(edgeType string) bool {
	if len(f.IncludeTypes) > 0 {
		found := false
		for _, t := range f.IncludeTypes {
			if t == edgeType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, t := range f.ExcludeTypes {
		if t == edgeType {
			return false
		}
	}
	return true
}

// Compute returns the grounding scalar for conceptID: a
// confidence-weighted mean of its incoming edges' VocabType embeddings
// projected onto the polarity axis. Returns exactly 0.0 when no opposing
// pair survives or the concept has no qualifying incoming edges.
func (e *Engine) Compute(ctx context.Context, conceptID string, filter Filter) (float64, error) {
	axisEmbeddings, err := e.pairEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("collect polarity pair embeddings: %w", err)
	}
	axis, ok := BuildAxis(e.pairs, axisEmbeddings)
	if !ok {
		return 0, nil
	}

	edges, err := e.graph.IncomingConceptEdges(ctx, conceptID)
	if err != nil {
		return 0, fmt.Errorf("incoming edges for %q: %w", conceptID, err)
	}

	var num, den float64
	embeddingCache := map[string][]float32{}
	for _, edge := range edges {
		if !filter.allows(edge.Type) {
			continue
		}
		embedding, ok := embeddingCache[edge.Type]
		if !ok {
			row, err := e.vocab.GetVocabularyRow(ctx, edge.Type)
			if err != nil {
				return 0, fmt.Errorf("vocabulary row for %q: %w", edge.Type, err)
			}
			if row != nil {
				embedding = row.Embedding
			}
			embeddingCache[edge.Type] = embedding
		}
		if len(embedding) == 0 {
			continue
		}
		confidence := edge.Confidence
		if confidence == 0 {
			confidence = 1.0
		}
		num += confidence * Project(embedding, axis)
		den += confidence
	}

	if den == 0 {
		return 0, nil
	}
	return num / den, nil
}

func (e *Engine) pairEmbeddings(ctx context.Context) (map[string][]float32, error) {
	names := make(map[string]struct{}, len(e.pairs)*2)
	for _, p := range e.pairs {
		names[p.Positive] = struct{}{}
		names[p.Negative] = struct{}{}
	}
	out := make(map[string][]float32, len(names))
	for name := range names {
		row, err := e.vocab.GetVocabularyRow(ctx, name)
		if err != nil {
			return nil, err
		}
		if row != nil && len(row.Embedding) > 0 {
			out[name] = row.Embedding
		}
	}
	return out, nil
}

// Bucket is the operational-telemetry bucketing of the grounding
// distribution.
type Bucket string

const (
	BucketStrongPositive   Bucket = "strong_positive"   // > 0.7
	BucketModeratePositive Bucket = "moderate_positive" // 0.3..0.7
	BucketWeakPositive     Bucket = "weak_positive"     // 0..0.3
	BucketWeakNegative     Bucket = "weak_negative"     // -0.3..0
	BucketModerateNegative Bucket = "moderate_negative" // -0.7..-0.3
	BucketStrongNegative   Bucket = "strong_negative"   // < -0.7
)

// BucketFor classifies a grounding scalar into the telemetry bucket.
func BucketFor(v float64) Bucket {
	switch {
	case v > 0.7:
		return BucketStrongPositive
	case v > 0.3:
		return BucketModeratePositive
	case v >= 0:
		return BucketWeakPositive
	case v >= -0.3:
		return BucketWeakNegative
	case v >= -0.7:
		return BucketModerateNegative
	default:
		return BucketStrongNegative
	}
}

// PersistResult summarizes one PersistAll page-walking run.
type PersistResult struct {
	ConceptsProcessed int
	Buckets           map[Bucket]int
}

// PersistAll pages through every Concept, computes its grounding scalar, and
// writes it back via SetConceptGrounding. pageSize <= 0 defaults to 200.
func (e *Engine) PersistAll(ctx context.Context, pageSize int) (PersistResult, error) {
	if pageSize <= 0 {
		pageSize = 200
	}
	result := PersistResult{Buckets: map[Bucket]int{}}

	for offset := 0;; offset += pageSize {
		ids, err := e.graph.PageConceptIDs(ctx, offset, pageSize)
		if err != nil {
			return result, fmt.Errorf("page concept ids at offset %d: %w", offset, err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			score, err := e.Compute(ctx, id, Filter{})
			if err != nil {
				e.logger.Warn("grounding computation failed, skipping concept", zap.String("concept_id", id), zap.Error(err))
				continue
			}
			if err := e.graph.SetConceptGrounding(ctx, id, score); err != nil {
				return result, fmt.Errorf("persist grounding for %q: %w", id, err)
			}
			result.ConceptsProcessed++
			result.Buckets[BucketFor(score)]++
		}
		if len(ids) < pageSize {
			break
		}
	}
	return result, nil
}
