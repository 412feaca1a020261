package ingestion

import "context"

// MetricsSink is the optional metrics dependency: a post-ingestion graph-change
// metrics refresh. A nil sink skips this step entirely,
// since graph metrics are a derived, rebuildable view rather than something
// ingestion correctness depends on.
type MetricsSink interface {
	Record(ctx context.Context, ontology string, stats Stats) error
}
