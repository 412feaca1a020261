package graphfacade

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kgraph-core/internal/domain"
)

func TestAuditSnapshotTracksSafeAndRaw(t *testing.T) {
	var a AuditLog
	a.recordSafe()
	a.recordSafe()
	a.recordRaw()

	snap := a.Snapshot()
	assert.Equal(t, int64(3), snap.Total)
	assert.Equal(t, int64(2), snap.Safe)
	assert.Equal(t, int64(1), snap.Raw)
	assert.InDelta(t, 2.0/3.0, snap.SafetyRatio, 1e-9)
}

func TestAuditSnapshotZeroTotalHasZeroRatio(t *testing.T) {
	var a AuditLog
	snap := a.Snapshot()
	assert.Equal(t, 0.0, snap.SafetyRatio)
}

func TestIntersectOrReplaceKeepsOnlyVocabTypesWhenRelTypesGiven(t *testing.T) {
	out := intersectOrReplace([]string{"CAUSES", "PRECEDES"}, []string{"CAUSES", "CONTRADICTS"})
	assert.Equal(t, []string{"CAUSES"}, out)
}

func TestIntersectOrReplaceFallsBackToVocabTypesWhenRelTypesEmpty(t *testing.T) {
	out := intersectOrReplace(nil, []string{"CAUSES", "CONTRADICTS"})
	assert.Equal(t, []string{"CAUSES", "CONTRADICTS"}, out)
}

func TestJoinTypesPipeDelimits(t *testing.T) {
	assert.Equal(t, "CAUSES|PRECEDES", joinTypes([]string{"CAUSES", "PRECEDES"}))
	assert.Equal(t, "CAUSES", joinTypes([]string{"CAUSES"}))
}

func TestStatusSetMembership(t *testing.T) {
	set := statusSet([]domain.EpistemicStatus{domain.StatusAffirmative, domain.StatusContested})
	_, ok := set[domain.StatusAffirmative]
	assert.True(t, ok)
	_, ok = set[domain.StatusEmerging]
	assert.False(t, ok)
}
