package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgraph-core/internal/sqlstore"
)

type fakeArtifactRepo struct{ count int }

func (f fakeArtifactRepo) CountExpiredArtifacts(context.Context) (int, error) { return f.count, nil }

func TestArtifactCleanupLauncher(t *testing.T) {
	assert.False(t, mustCheck(t, NewArtifactCleanupLauncher(fakeArtifactRepo{count: 0})))
	assert.True(t, mustCheck(t, NewArtifactCleanupLauncher(fakeArtifactRepo{count: 1})))
}

type fakePendingRepo struct{ count int }

func (f fakePendingRepo) CountPendingCategoryTypes(context.Context) (int, error) { return f.count, nil }

func TestCategoryRefreshLauncher(t *testing.T) {
	assert.False(t, mustCheck(t, NewCategoryRefreshLauncher(fakePendingRepo{count: 0})))
	assert.True(t, mustCheck(t, NewCategoryRefreshLauncher(fakePendingRepo{count: 3})))
}

type fakeActivityRepo struct{ active, inactive int }

func (f fakeActivityRepo) VocabActivityCounts(context.Context) (int, int, error) {
	return f.active, f.inactive, nil
}

func TestVocabConsolidationLauncherRatioBands(t *testing.T) {
	state := newFakeStateRepo()

	// Below minimum active population: never fires regardless of ratio.
	low := NewVocabConsolidationLauncher(fakeActivityRepo{active: 10, inactive: 5}, state)
	assert.False(t, mustCheck(t, low))

	// Ratio 0.25 > 0.20: always fires.
	high := NewVocabConsolidationLauncher(fakeActivityRepo{active: 100, inactive: 25}, state)
	assert.True(t, mustCheck(t, high))

	// Ratio 0.05 < 0.10: never fires.
	belowFloor := NewVocabConsolidationLauncher(fakeActivityRepo{active: 100, inactive: 5}, state)
	assert.False(t, mustCheck(t, belowFloor))

	// Ratio 0.15 in the hysteresis band: fires only if previous state was "consolidate".
	midNoPriorState := NewVocabConsolidationLauncher(fakeActivityRepo{active: 100, inactive: 15}, state)
	assert.False(t, mustCheck(t, midNoPriorState))

	state.rows["vocab_consolidation"] = &sqlstore.ScheduledJobRow{LauncherID: "vocab_consolidation", LastState: "consolidate"}
	midWithPriorState := NewVocabConsolidationLauncher(fakeActivityRepo{active: 100, inactive: 15}, state)
	assert.True(t, mustCheck(t, midWithPriorState))
}

type fakeDeltaRepo struct{ delta int64 }

func (f fakeDeltaRepo) GetDelta(context.Context, string) (int64, error) { return f.delta, nil }

func TestEpistemicRemeasurementLauncherThreshold(t *testing.T) {
	below := NewEpistemicRemeasurementLauncher(fakeDeltaRepo{delta: 9}, "vocabulary_change_counter", 10)
	assert.False(t, mustCheck(t, below))

	atThreshold := NewEpistemicRemeasurementLauncher(fakeDeltaRepo{delta: 10}, "vocabulary_change_counter", 10)
	assert.True(t, mustCheck(t, atThreshold))
}

type fakeOntologyLister struct{ names []string }

func (f fakeOntologyLister) ListOntologies(context.Context) ([]string, error) { return f.names, nil }

type fakeDriftChecker struct{ due map[string]bool }

func (f fakeDriftChecker) NeedsRefresh(_ context.Context, ontology string) (bool, error) {
	return f.due[ontology], nil
}

func TestProjectionLauncherPicksFirstDriftedOntology(t *testing.T) {
	lister := fakeOntologyLister{names: []string{"a", "b", "c"}}
	drift := fakeDriftChecker{due: map[string]bool{"b": true, "c": true}}
	l := NewProjectionLauncher(lister, drift)

	ok := mustCheck(t, l)
	require.True(t, ok)

	data, err := l.PrepareJobData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", data["ontology"])
}

func TestProjectionLauncherNoneDrifted(t *testing.T) {
	lister := fakeOntologyLister{names: []string{"a"}}
	drift := fakeDriftChecker{due: map[string]bool{}}
	l := NewProjectionLauncher(lister, drift)

	assert.False(t, mustCheck(t, l))
}

func mustCheck(t *testing.T, l Launcher) bool {
	t.Helper()
	ok, err := l.CheckConditions(context.Background())
	require.NoError(t, err)
	return ok
}
