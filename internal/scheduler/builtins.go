package scheduler

import (
	"context"
	"fmt"
	"time"

	"kgraph-core/internal/jobqueue"
)

// --- artifact_cleanup -------------------------------------------------

type artifactRepo interface {
	CountExpiredArtifacts(ctx context.Context) (int, error)
}

// ArtifactCleanupLauncher fires when at least one artifact row has
// expired.
type ArtifactCleanupLauncher struct {
	repo artifactRepo
}

func NewArtifactCleanupLauncher(repo artifactRepo) *ArtifactCleanupLauncher {
	return &ArtifactCleanupLauncher{repo: repo}
}

func (*ArtifactCleanupLauncher) ID() string                  { return "artifact_cleanup" }
func (*ArtifactCleanupLauncher) Interval() time.Duration      { return 24 * time.Hour }
func (*ArtifactCleanupLauncher) JobType() jobqueue.JobType    { return jobqueue.TypeArtifactCleanup }
func (l *ArtifactCleanupLauncher) CheckConditions(ctx context.Context) (bool, error) {
	count, err := l.repo.CountExpiredArtifacts(ctx)
	if err != nil {
		return false, fmt.Errorf("count expired artifacts: %w", err)
	}
	return count >= 1, nil
}
func (*ArtifactCleanupLauncher) PrepareJobData(context.Context) (map[string]any, error) {
	return map[string]any{}, nil
}

// --- category_refresh --------------------------------------------------

type pendingCategoryRepo interface {
	CountPendingCategoryTypes(ctx context.Context) (int, error)
}

// CategoryRefreshLauncher fires when at least one VocabType is still
// awaiting probabilistic categorization.
type CategoryRefreshLauncher struct {
	repo pendingCategoryRepo
}

func NewCategoryRefreshLauncher(repo pendingCategoryRepo) *CategoryRefreshLauncher {
	return &CategoryRefreshLauncher{repo: repo}
}

func (*CategoryRefreshLauncher) ID() string               { return "category_refresh" }
func (*CategoryRefreshLauncher) Interval() time.Duration   { return 6 * time.Hour }
func (*CategoryRefreshLauncher) JobType() jobqueue.JobType { return jobqueue.TypeVocabRefresh }
func (l *CategoryRefreshLauncher) CheckConditions(ctx context.Context) (bool, error) {
	count, err := l.repo.CountPendingCategoryTypes(ctx)
	if err != nil {
		return false, fmt.Errorf("count pending-category vocab types: %w", err)
	}
	return count >= 1, nil
}
func (*CategoryRefreshLauncher) PrepareJobData(context.Context) (map[string]any, error) {
	return map[string]any{"scope": "only_missing"}, nil
}

// --- vocab_consolidation ------------------------------------------------

type activityRepo interface {
	VocabActivityCounts(ctx context.Context) (active, inactive int, err error)
}

const (
	consolidationHighRatio = 0.20
	consolidationLowRatio  = 0.10
	consolidationMinActive = 50
)

// VocabConsolidationLauncher fires when the inactive/active VocabType ratio
// crosses into the consolidate band, with hysteresis against flapping
// around the 0.10-0.20 boundary: above 0.20 always fires; below
// 0.10 never fires; in between, it only fires if the *previous* tick's
// state was already "consolidate" (the scheduler records a tick that
// enqueued a job as "fired").
type VocabConsolidationLauncher struct {
	repo  activityRepo
	state stateRepo
}

func NewVocabConsolidationLauncher(repo activityRepo, state stateRepo) *VocabConsolidationLauncher {
	return &VocabConsolidationLauncher{repo: repo, state: state}
}

func (*VocabConsolidationLauncher) ID() string               { return "vocab_consolidation" }
func (*VocabConsolidationLauncher) Interval() time.Duration   { return 12 * time.Hour }
func (*VocabConsolidationLauncher) JobType() jobqueue.JobType { return jobqueue.TypeVocabConsolidate }

func (l *VocabConsolidationLauncher) CheckConditions(ctx context.Context) (bool, error) {
	active, inactive, err := l.repo.VocabActivityCounts(ctx)
	if err != nil {
		return false, fmt.Errorf("vocab activity counts: %w", err)
	}
	if active < consolidationMinActive {
		return false, nil
	}
	ratio := float64(inactive) / float64(active)

	switch {
	case ratio > consolidationHighRatio:
		return true, nil
	case ratio < consolidationLowRatio:
		return false, nil
	default:
		row, err := l.state.GetScheduledJobState(ctx, "vocab_consolidation")
		if err != nil {
			return false, fmt.Errorf("read vocab_consolidation hysteresis state: %w", err)
		}
		return row != nil && (row.LastState == "consolidate" || row.LastState == "fired"), nil
	}
}

func (l *VocabConsolidationLauncher) PrepareJobData(context.Context) (map[string]any, error) {
	return map[string]any{"reason": "scheduled consolidation"}, nil
}

// --- epistemic_remeasurement --------------------------------------------

type deltaRepo interface {
	GetDelta(ctx context.Context, metric string) (int64, error)
}

// EpistemicRemeasurementLauncher fires when the vocabulary_change_counter
// delta has reached threshold since the last remeasurement.
type EpistemicRemeasurementLauncher struct {
	metrics   deltaRepo
	metric    string
	threshold int64
}

func NewEpistemicRemeasurementLauncher(metrics deltaRepo, metric string, threshold int64) *EpistemicRemeasurementLauncher {
	if threshold <= 0 {
		threshold = 10
	}
	return &EpistemicRemeasurementLauncher{metrics: metrics, metric: metric, threshold: threshold}
}

func (*EpistemicRemeasurementLauncher) ID() string                { return "epistemic_remeasurement" }
func (*EpistemicRemeasurementLauncher) Interval() time.Duration    { return 24 * time.Hour }
func (*EpistemicRemeasurementLauncher) JobType() jobqueue.JobType { return jobqueue.TypeEpistemicRemeasure }

func (l *EpistemicRemeasurementLauncher) CheckConditions(ctx context.Context) (bool, error) {
	delta, err := l.metrics.GetDelta(ctx, l.metric)
	if err != nil {
		return false, fmt.Errorf("vocabulary change delta: %w", err)
	}
	return delta >= l.threshold, nil
}

func (*EpistemicRemeasurementLauncher) PrepareJobData(context.Context) (map[string]any, error) {
	return map[string]any{}, nil
}

// --- projection ----------------------------------------------------------

type ontologyLister interface {
	ListOntologies(ctx context.Context) ([]string, error)
}

type driftChecker interface {
	NeedsRefresh(ctx context.Context, ontology string) (bool, error)
}

// ProjectionLauncher fires for the first ontology (in ListOntologies order)
// whose cached projection has drifted from the live concept count by at
// least the drift threshold, or has no cache at all. Only one
// ontology is refreshed per firing; a persistently drifting set of
// ontologies catches up over successive hourly ticks rather than enqueuing
// an unbounded burst of jobs in one tick.
type ProjectionLauncher struct {
	ontologies ontologyLister
	drift      driftChecker

	dueOntology string
}

func NewProjectionLauncher(ontologies ontologyLister, drift driftChecker) *ProjectionLauncher {
	return &ProjectionLauncher{ontologies: ontologies, drift: drift}
}

func (*ProjectionLauncher) ID() string               { return "projection" }
func (*ProjectionLauncher) Interval() time.Duration   { return time.Hour }
func (*ProjectionLauncher) JobType() jobqueue.JobType { return jobqueue.TypeProjection }

func (l *ProjectionLauncher) CheckConditions(ctx context.Context) (bool, error) {
	names, err := l.ontologies.ListOntologies(ctx)
	if err != nil {
		return false, fmt.Errorf("list ontologies: %w", err)
	}
	for _, name := range names {
		needs, err := l.drift.NeedsRefresh(ctx, name)
		if err != nil {
			return false, fmt.Errorf("check projection drift for %q: %w", name, err)
		}
		if needs {
			l.dueOntology = name
			return true, nil
		}
	}
	return false, nil
}

func (l *ProjectionLauncher) PrepareJobData(context.Context) (map[string]any, error) {
	return map[string]any{"ontology": l.dueOntology}, nil
}

// artifactCounter, vocabActivity, pendingCategories, and ontologyWalker
// bundle the repos Builtins needs, since each launcher only depends on a
// narrow slice of *graphstore.Client / *sqlstore.DB.
type artifactCounter = artifactRepo
type vocabActivity = activityRepo
type pendingCategories = pendingCategoryRepo
type ontologyWalker = ontologyLister

// Builtins assembles the five canonical launchers from a
// shared relational repo, graph repo, metrics delta source, and projection
// drift checker.
func Builtins(relational interface {
	artifactCounter
	pendingCategories
	deltaRepo
}, graph interface {
	vocabActivity
	ontologyWalker
}, state stateRepo, proj driftChecker, vocabularyChangeThreshold int64) []Launcher {
	return []Launcher{
		NewArtifactCleanupLauncher(relational),
		NewCategoryRefreshLauncher(relational),
		NewVocabConsolidationLauncher(graph, state),
		NewEpistemicRemeasurementLauncher(relational, "vocabulary_change_counter", vocabularyChangeThreshold),
		NewProjectionLauncher(graph, proj),
	}
}
