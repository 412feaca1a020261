package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kgraph-core/internal/jobqueue"
	"kgraph-core/internal/platform/logging"
	"kgraph-core/internal/sqlstore"
)

func nopLogger() *zap.Logger { return logging.Nop() }

type fakeStateRepo struct {
	rows map[string]*sqlstore.ScheduledJobRow
}

func newFakeStateRepo() *fakeStateRepo { return &fakeStateRepo{rows: map[string]*sqlstore.ScheduledJobRow{}} }

func (f *fakeStateRepo) GetScheduledJobState(_ context.Context, launcherID string) (*sqlstore.ScheduledJobRow, error) {
	return f.rows[launcherID], nil
}

func (f *fakeStateRepo) RecordLauncherRun(_ context.Context, launcherID, schedule, lastState string) error {
	now := time.Now()
	f.rows[launcherID] = &sqlstore.ScheduledJobRow{LauncherID: launcherID, Schedule: schedule, LastRunAt: &now, LastState: lastState}
	return nil
}

type fakeQueue struct {
	enqueued []jobqueue.EnqueueParams
}

func (f *fakeQueue) Enqueue(_ context.Context, p jobqueue.EnqueueParams) (string, error) {
	f.enqueued = append(f.enqueued, p)
	return "job_1", nil
}

type stubLauncher struct {
	id       string
	interval time.Duration
	jobType  jobqueue.JobType
	ok       bool
	data     map[string]any
	calls    int
}

func (s *stubLauncher) ID() string                { return s.id }
func (s *stubLauncher) Interval() time.Duration    { return s.interval }
func (s *stubLauncher) JobType() jobqueue.JobType  { return s.jobType }
func (s *stubLauncher) CheckConditions(context.Context) (bool, error) {
	s.calls++
	return s.ok, nil
}
func (s *stubLauncher) PrepareJobData(context.Context) (map[string]any, error) { return s.data, nil }

func TestTickEnqueuesWhenConditionHolds(t *testing.T) {
	state := newFakeStateRepo()
	queue := &fakeQueue{}
	sched := New(state, queue, nopLogger())
	l := &stubLauncher{id: "l1", interval: time.Hour, jobType: jobqueue.TypeArtifactCleanup, ok: true, data: map[string]any{}}
	sched.Register(l)

	sched.Tick(context.Background())

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, jobqueue.TypeArtifactCleanup, queue.enqueued[0].Type)
	assert.Equal(t, 1, l.calls)
	assert.Equal(t, "fired", state.rows["l1"].LastState)
}

func TestTickSkipsWhenConditionFalse(t *testing.T) {
	state := newFakeStateRepo()
	queue := &fakeQueue{}
	sched := New(state, queue, nopLogger())
	l := &stubLauncher{id: "l1", interval: time.Hour, jobType: jobqueue.TypeArtifactCleanup, ok: false}
	sched.Register(l)

	sched.Tick(context.Background())

	assert.Empty(t, queue.enqueued)
	assert.Equal(t, "skipped", state.rows["l1"].LastState)
}

func TestTickSkipsLauncherNotYetDue(t *testing.T) {
	state := newFakeStateRepo()
	now := time.Now()
	state.rows["l1"] = &sqlstore.ScheduledJobRow{LauncherID: "l1", LastRunAt: &now, LastState: "skipped"}
	queue := &fakeQueue{}
	sched := New(state, queue, nopLogger())
	l := &stubLauncher{id: "l1", interval: time.Hour, jobType: jobqueue.TypeArtifactCleanup, ok: true}
	sched.Register(l)

	sched.Tick(context.Background())

	assert.Equal(t, 0, l.calls, "a launcher whose interval has not elapsed is not even evaluated")
	assert.Empty(t, queue.enqueued)
}

func TestTickRunsLauncherFirstTimeWithNoPriorState(t *testing.T) {
	state := newFakeStateRepo()
	queue := &fakeQueue{}
	sched := New(state, queue, nopLogger())
	l := &stubLauncher{id: "l1", interval: 24 * time.Hour, jobType: jobqueue.TypeArtifactCleanup, ok: true, data: map[string]any{}}
	sched.Register(l)

	sched.Tick(context.Background())

	assert.Equal(t, 1, l.calls)
	require.Len(t, queue.enqueued, 1)
}
