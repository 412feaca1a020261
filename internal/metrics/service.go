package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"kgraph-core/internal/ingestion"
	"kgraph-core/internal/sqlstore"
)

// Urgency is the staleness banding StalenessInfo returns.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
	UrgencyNone   Urgency = "none"
)

// Metric is a read-only view of one counter row.
type Metric struct {
	Name                string
	Counter             int64
	LastMeasuredCounter int64
}

// Delta returns counter - last_measured_counter, the quantity every launcher
// condition and GetStalenessInfo threshold against.
func (m Metric) Delta() int64 { return m.Counter - m.LastMeasuredCounter }

// repo is the narrow slice of *sqlstore.DB the service needs.
type repo interface {
	IncrementMetric(ctx context.Context, name string) error
	IncrementMetricBy(ctx context.Context, name string, delta int64) error
	MarkMetricMeasured(ctx context.Context, name string) error
	ResetMetric(ctx context.Context, name string) error
	GetMetric(ctx context.Context, name string) (*sqlstore.MetricRow, error)
	GetAllMetrics(ctx context.Context) ([]sqlstore.MetricRow, error)
}

// Service is the relational counters plus their Prometheus mirror.
// Scraping an HTTP endpoint is out of scope; Collectors exposes the gauges
// so a caller's own metrics server can register them.
type Service struct {
	db     repo
	gauges map[string]prometheus.Gauge
}

// New builds a Service with one gauge per metric in namespace.
func New(db repo, namespace string) *Service {
	gauges := make(map[string]prometheus.Gauge, len(allMetricNames))
	for _, name := range allMetricNames {
		gauges[name] = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      "Graph-change counter delta for " + name,
		})
	}
	return &Service{db: db, gauges: gauges}
}

// Collectors returns every gauge as a prometheus.Collector, for the caller
// to register with its own registry.
func (s *Service) Collectors() []prometheus.Collector {
	out := make([]prometheus.Collector, 0, len(s.gauges))
	for _, g := range s.gauges {
		out = append(out, g)
	}
	return out
}

// Increment bumps a counter by 1.
func (s *Service) Increment(ctx context.Context, metric string) error {
	return s.IncrementBy(ctx, metric, 1)
}

// IncrementBy bumps a counter by delta and refreshes its gauge mirror.
func (s *Service) IncrementBy(ctx context.Context, metric string, delta int64) error {
	if err := s.db.IncrementMetricBy(ctx, metric, delta); err != nil {
		return fmt.Errorf("increment %q: %w", metric, err)
	}
	s.refreshGauge(ctx, metric)
	return nil
}

// GetDelta returns counter - last_measured_counter for a metric.
func (s *Service) GetDelta(ctx context.Context, metric string) (int64, error) {
	row, err := s.db.GetMetric(ctx, metric)
	if err != nil {
		return 0, fmt.Errorf("get metric %q: %w", metric, err)
	}
	if row == nil {
		return 0, nil
	}
	return row.Counter - row.LastMeasuredCounter, nil
}

// MarkMeasurementComplete resets the measured watermark to the current
// counter value.
func (s *Service) MarkMeasurementComplete(ctx context.Context, metric string) error {
	if err := s.db.MarkMetricMeasured(ctx, metric); err != nil {
		return fmt.Errorf("mark %q measured: %w", metric, err)
	}
	s.refreshGauge(ctx, metric)
	return nil
}

// Reset zeroes a counter.
func (s *Service) Reset(ctx context.Context, metric string) error {
	if err := s.db.ResetMetric(ctx, metric); err != nil {
		return fmt.Errorf("reset %q: %w", metric, err)
	}
	s.refreshGauge(ctx, metric)
	return nil
}

// GetAllMetrics returns every counter's current state.
func (s *Service) GetAllMetrics(ctx context.Context) ([]Metric, error) {
	rows, err := s.db.GetAllMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("get all metrics: %w", err)
	}
	out := make([]Metric, 0, len(rows))
	for _, row := range rows {
		out = append(out, Metric{Name: row.Name, Counter: row.Counter, LastMeasuredCounter: row.LastMeasuredCounter})
	}
	return out, nil
}

// GetStalenessInfo bands the vocabulary_change_counter delta into an
// operator-facing urgency.
func (s *Service) GetStalenessInfo(ctx context.Context) (Urgency, int64, error) {
	delta, err := s.GetDelta(ctx, VocabularyChangeCounter)
	if err != nil {
		return UrgencyNone, 0, err
	}
	switch {
	case delta >= 50:
		return UrgencyHigh, delta, nil
	case delta >= 20:
		return UrgencyMedium, delta, nil
	case delta >= 10:
		return UrgencyLow, delta, nil
	default:
		return UrgencyNone, delta, nil
	}
}

func (s *Service) refreshGauge(ctx context.Context, metric string) {
	gauge, ok := s.gauges[metric]
	if !ok {
		return
	}
	row, err := s.db.GetMetric(ctx, metric)
	if err != nil || row == nil {
		return
	}
	gauge.Set(float64(row.Counter - row.LastMeasuredCounter))
}

// Record implements ingestion.MetricsSink: concept/relationship counts from this ingestion pass, plus
// one document_ingestion_counter tick for the document itself.
func (s *Service) Record(ctx context.Context, _ string, stats ingestion.Stats) error {
	if err := s.IncrementBy(ctx, ConceptCreationCounter, int64(stats.ConceptsCreated)); err != nil {
		return err
	}
	if err := s.IncrementBy(ctx, RelationshipCreationCounter, int64(stats.RelationshipsCreated)); err != nil {
		return err
	}
	if err := s.Increment(ctx, DocumentIngestionCounter); err != nil {
		return err
	}
	return nil
}
