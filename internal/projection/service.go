package projection

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kgraph-core/internal/graphstore"
)

// graphRepo is the narrow slice of *graphstore.Client the service depends
// on.
type graphRepo interface {
	ConceptsForOntology(ctx context.Context, ontology string) ([]graphstore.ProjectableConcept, error)
	CountConcepts(ctx context.Context, ontology string) (int, error)
}

// cache is the narrow slice of *objectstore.Store the service depends on.
type cache interface {
	GetProjectionLatest(ctx context.Context, ontology, embeddingSource string) ([]byte, error)
	PutProjectionLatest(ctx context.Context, ontology, embeddingSource, timestamp string, data []byte) error
	InvalidateProjection(ctx context.Context, ontology, embeddingSource string) error
}

// Service owns the cache write path: it pulls the Concept population for an
// ontology, hands it to the external ProjectionComputer, and caches the result.
type Service struct {
	graph           graphRepo
	store           cache
	algorithm       ProjectionComputer
	embeddingSource string
	logger          *zap.Logger
}

func New(graph graphRepo, store cache, algorithm ProjectionComputer, embeddingSource string, logger *zap.Logger) *Service {
	return &Service{graph: graph, store: store, algorithm: algorithm, embeddingSource: embeddingSource, logger: logger}
}

// driftThreshold is the concept-count drift that justifies a recompute.
const driftThreshold = 5

// NeedsRefresh is the `projection` launcher's condition check: true when
// no cache exists yet, the cache is unparseable, or the
// current concept count has drifted from the cached statistics by at least
// driftThreshold.
func (s *Service) NeedsRefresh(ctx context.Context, ontology string) (bool, error) {
	raw, err := s.store.GetProjectionLatest(ctx, ontology, s.embeddingSource)
	if err != nil {
		return false, fmt.Errorf("get cached projection for %q: %w", ontology, err)
	}
	if raw == nil {
		return true, nil
	}
	var cached Dataset
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.logger.Warn("cached projection unparseable, treating as absent", zap.String("ontology", ontology), zap.Error(err))
		return true, nil
	}
	current, err := s.graph.CountConcepts(ctx, ontology)
	if err != nil {
		return false, fmt.Errorf("count concepts for %q: %w", ontology, err)
	}
	delta := current - cached.Statistics.ConceptCount
	if delta < 0 {
		delta = -delta
	}
	return delta >= driftThreshold, nil
}

// Refresh is the projection worker's body: pull the ontology's projectable Concepts, run the external
// ProjectionComputer, write both latest.json and a timestamped history
// snapshot.
func (s *Service) Refresh(ctx context.Context, ontology string) error {
	start := time.Now()
	concepts, err := s.graph.ConceptsForOntology(ctx, ontology)
	if err != nil {
		return fmt.Errorf("load concepts for projection of %q: %w", ontology, err)
	}

	inputs := make([]Input, 0, len(concepts))
	embeddingDims := 0
	for _, c := range concepts {
		inputs = append(inputs, Input{
			ConceptID:         c.ConceptID,
			Label:             c.Label,
			Embedding:         c.Embedding,
			GroundingStrength: c.GroundingStrength,
		})
		if len(c.Embedding) > embeddingDims {
			embeddingDims = len(c.Embedding)
		}
	}

	result, err := s.algorithm.Reduce(ctx, inputs)
	if err != nil {
		return fmt.Errorf("reduce %d concepts for %q: %w", len(inputs), ontology, err)
	}

	groundingRange := rangeOf(groundingValues(concepts))

	dataset := Dataset{
		Ontology:     ontology,
		ChangelistID: newChangelistID(),
		Algorithm:    result.Algorithm,
		Parameters:   result.Parameters,
		ComputedAt:   time.Now().UTC().Format(time.RFC3339),
		Concepts:     result.Points,
		Statistics: Statistics{
			ConceptCount:      len(inputs),
			ComputationTimeMs: time.Since(start).Milliseconds(),
			EmbeddingDims:     embeddingDims,
			GroundingRange:    groundingRange,
		},
	}

	data, err := json.Marshal(dataset)
	if err != nil {
		return fmt.Errorf("marshal projection dataset for %q: %w", ontology, err)
	}

	if err := s.store.PutProjectionLatest(ctx, ontology, s.embeddingSource, timestampSegment(), data); err != nil {
		return fmt.Errorf("write projection cache for %q: %w", ontology, err)
	}
	return nil
}

// Invalidate drops the "latest" pointer for an ontology, forcing the next read to recompute.
func (s *Service) Invalidate(ctx context.Context, ontology string) error {
	return s.store.InvalidateProjection(ctx, ontology, s.embeddingSource)
}

func groundingValues(concepts []graphstore.ProjectableConcept) []float64 {
	out := make([]float64, 0, len(concepts))
	for _, c := range concepts {
		if c.GroundingStrength != nil {
			out = append(out, *c.GroundingStrength)
		}
	}
	return out
}

func rangeOf(values []float64) *[2]float64 {
	if len(values) == 0 {
		return nil
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return &[2]float64{min, max}
}

func timestampSegment() string {
	return time.Now().UTC().Format("20060102_150405")
}

// newChangelistID mints the "cl_YYYYmmdd_HHMMSS_<8hex>" conditional-read
// tag.
func newChangelistID() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("cl_%s_%s", timestampSegment(), hex.EncodeToString(buf))
}
