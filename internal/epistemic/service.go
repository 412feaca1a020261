package epistemic

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"kgraph-core/internal/domain"
	"kgraph-core/internal/grounding"
)

// Metric name identifiers this service increments/marks-measured. Kept as plain strings rather than an internal/metrics import to
// avoid a dependency cycle — internal/metrics defines the same literals as
// its canonical constants.
const (
	MetricEpistemicMeasurement = "epistemic_measurement_counter"
	MetricVocabularyChange     = "vocabulary_change_counter"
)

// groundingEngine is the narrow slice of *grounding.Engine the service needs.
type groundingEngine interface {
	Compute(ctx context.Context, conceptID string, filter grounding.Filter) (float64, error)
}

// graphRepo is the narrow slice of *graphstore.Client the service needs.
type graphRepo interface {
	TargetsOfType(ctx context.Context, edgeType string) ([]string, error)
	WriteEpistemicStatus(ctx context.Context, name string, status domain.EpistemicStatus, rationale, measuredAt string) error
	ListVocabTypes(ctx context.Context, limit int) ([]domain.VocabType, error)
}

// metricsSink is the narrow slice of internal/metrics.Service the service
// needs.
type metricsSink interface {
	Increment(ctx context.Context, metric string) error
	MarkMeasurementComplete(ctx context.Context, metric string) error
}

// Service measures and persists epistemic status for vocabulary types.
type Service struct {
	graph      graphRepo
	grounding  groundingEngine
	metrics    metricsSink
	sampleSize int
	logger     *zap.Logger
	rng        *rand.Rand
}

// New constructs a Service. sampleSize <= 0 defaults to DefaultSampleSize.
func New(graph graphRepo, grounding groundingEngine, metrics metricsSink, sampleSize int, logger *zap.Logger) *Service {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Service{
		graph:      graph,
		grounding:  grounding,
		metrics:    metrics,
		sampleSize: sampleSize,
		logger:     logger,
		rng:        rand.New(rand.NewSource(1)),
	}
}

// Result is the outcome of classifying a single VocabType.
type Result struct {
	Name      string
	Status    domain.EpistemicStatus
	Rationale string
	SampleN   int
}

// Measure classifies one VocabType by name and writes the result back to the
// graph. measuredAt is the RFC3339 timestamp recorded on
// the node.
func (s *Service) Measure(ctx context.Context, name string, measuredAt time.Time) (Result, error) {
	targets, err := s.graph.TargetsOfType(ctx, name)
	if err != nil {
		return Result{}, fmt.Errorf("targets of type %q: %w", name, err)
	}
	if len(targets) == 0 {
		status, rationale := classify(name, nil)
		return s.finish(ctx, name, status, rationale, measuredAt, 0)
	}

	sampled := s.sample(targets)
	var scores []float64
	for _, conceptID := range sampled {
		score, err := s.grounding.Compute(ctx, conceptID, grounding.Filter{})
		if err != nil {
			s.logger.Warn("grounding computation failed during epistemic sampling, dropping target",
				zap.String("vocab_type", name), zap.String("concept_id", conceptID), zap.Error(err))
			continue
		}
		scores = append(scores, score)
	}

	status, rationale := classify(name, scores)
	return s.finish(ctx, name, status, rationale, measuredAt, len(scores))
}

func (s *Service) finish(ctx context.Context, name string, status domain.EpistemicStatus, rationale string, measuredAt time.Time, sampleN int) (Result, error) {
	if err := s.graph.WriteEpistemicStatus(ctx, name, status, rationale, measuredAt.UTC().Format(time.RFC3339)); err != nil {
		return Result{}, fmt.Errorf("write epistemic status for %q: %w", name, err)
	}
	if err := s.metrics.Increment(ctx, MetricEpistemicMeasurement); err != nil {
		return Result{}, fmt.Errorf("increment epistemic measurement counter: %w", err)
	}
	if err := s.metrics.MarkMeasurementComplete(ctx, MetricVocabularyChange); err != nil {
		return Result{}, fmt.Errorf("mark vocabulary change counter measured: %w", err)
	}
	return Result{Name: name, Status: status, Rationale: rationale, SampleN: sampleN}, nil
}

// sample draws up to s.sampleSize elements uniformly at random from targets
// without replacement, leaving targets untouched.
func (s *Service) sample(targets []string) []string {
	if len(targets) <= s.sampleSize {
		return targets
	}
	shuffled := make([]string, len(targets))
	copy(shuffled, targets)
	s.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:s.sampleSize]
}

// MeasureAll runs Measure over every active VocabType (the body of the
// epistemic_remeasurement worker).
func (s *Service) MeasureAll(ctx context.Context, measuredAt time.Time) ([]Result, error) {
	types, err := s.graph.ListVocabTypes(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("list vocab types: %w", err)
	}
	results := make([]Result, 0, len(types))
	for _, vt := range types {
		if !vt.IsActive {
			continue
		}
		result, err := s.Measure(ctx, vt.Name, measuredAt)
		if err != nil {
			return results, fmt.Errorf("measure %q: %w", vt.Name, err)
		}
		results = append(results, result)
	}
	return results, nil
}
