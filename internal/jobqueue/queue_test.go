package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kgraph-core/internal/sqlstore"
)

type fakeRepo struct {
	jobs       map[string]*sqlstore.JobRow
	queueOrder []string
	deleted    []string
	failed     map[string]string
	requeued   map[string]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: map[string]*sqlstore.JobRow{}, failed: map[string]string{}, requeued: map[string]int{}}
}

func (f *fakeRepo) InsertJob(_ context.Context, p sqlstore.InsertJobParams) error {
	dataJSON, err := marshalAny(p.Data)
	if err != nil {
		return err
	}
	row := &sqlstore.JobRow{
		ID: p.ID, Type: p.Type, Ontology: p.Ontology, DataJSON: dataJSON,
		Status: p.Status, ApprovedBy: p.ApprovedBy, MaxRetries: p.MaxRetries,
		CreatedAt: time.Now(),
	}
	f.jobs[p.ID] = row
	f.queueOrder = append(f.queueOrder, p.ID)
	return nil
}

func (f *fakeRepo) GetJob(_ context.Context, id string) (*sqlstore.JobRow, error) {
	row, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeRepo) ApproveJob(_ context.Context, id, by string) error {
	row := f.jobs[id]
	row.Status = sqlstore.JobApproved
	row.ApprovedBy = &by
	return nil
}

func (f *fakeRepo) UpdateJobProgress(_ context.Context, id string, progress, stats any) error {
	row := f.jobs[id]
	p, err := marshalAny(progress)
	if err != nil {
		return err
	}
	s, err := marshalAny(stats)
	if err != nil {
		return err
	}
	row.ProgressJSON = p
	row.StatsJSON = s
	return nil
}

func (f *fakeRepo) MarkJobCompleted(_ context.Context, id string, stats any) error {
	row := f.jobs[id]
	row.Status = sqlstore.JobCompleted
	s, err := marshalAny(stats)
	if err != nil {
		return err
	}
	row.StatsJSON = s
	return nil
}

func (f *fakeRepo) RequeueJobForRetry(_ context.Context, id string, retries int, errMsg string, cooldown time.Duration) error {
	row := f.jobs[id]
	row.Status = sqlstore.JobApproved
	row.Retries = retries
	row.Error = &errMsg
	f.requeued[id] = retries
	return nil
}

func (f *fakeRepo) MarkJobFailed(_ context.Context, id, errMsg string) error {
	row := f.jobs[id]
	row.Status = sqlstore.JobFailed
	row.Error = &errMsg
	f.failed[id] = errMsg
	return nil
}

func (f *fakeRepo) DequeueApprovedJob(_ context.Context) (*sqlstore.JobRow, error) {
	for _, id := range f.queueOrder {
		row := f.jobs[id]
		if row.Status == sqlstore.JobApproved {
			row.Status = sqlstore.JobProcessing
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) DeleteJobsByOntology(_ context.Context, ontology string) error {
	for id, row := range f.jobs {
		if row.Ontology == ontology {
			delete(f.jobs, id)
			f.deleted = append(f.deleted, id)
		}
	}
	return nil
}

func marshalAny(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func TestEnqueue_MaintenanceTypeAutoApproved(t *testing.T) {
	repo := newFakeRepo()
	q := New(repo, zap.NewNop())

	id, err := q.Enqueue(context.Background(), EnqueueParams{Type: TypeArtifactCleanup, Ontology: "acme"})
	require.NoError(t, err)

	row := repo.jobs[id]
	assert.Equal(t, sqlstore.JobApproved, row.Status)
	require.NotNil(t, row.ApprovedBy)
	assert.Equal(t, "system", *row.ApprovedBy)
}

func TestEnqueue_UserInitiatedTypeRequiresApproval(t *testing.T) {
	repo := newFakeRepo()
	q := New(repo, zap.NewNop())

	id, err := q.Enqueue(context.Background(), EnqueueParams{Type: TypeIngestion, Ontology: "acme"})
	require.NoError(t, err)

	row := repo.jobs[id]
	assert.Equal(t, sqlstore.JobQueued, row.Status)
	assert.Nil(t, row.ApprovedBy)
}

func TestRunOnce_EmptyQueueReturnsFalse(t *testing.T) {
	repo := newFakeRepo()
	q := New(repo, zap.NewNop())

	ran, err := q.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestRunOnce_SuccessMarksCompleted(t *testing.T) {
	repo := newFakeRepo()
	q := New(repo, zap.NewNop())
	q.Register(TypeProjection, func(_ context.Context, _ Job, _ Reporter) error { return nil })

	id, err := q.Enqueue(context.Background(), EnqueueParams{Type: TypeProjection, Ontology: "acme"})
	require.NoError(t, err)

	ran, err := q.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, sqlstore.JobCompleted, repo.jobs[id].Status)
}

func TestRunOnce_FailureUnderRetryBudgetRequeuesWithCooldown(t *testing.T) {
	repo := newFakeRepo()
	q := New(repo, zap.NewNop())
	q.Register(TypeProjection, func(_ context.Context, _ Job, _ Reporter) error { return errors.New("boom") })

	id, err := q.Enqueue(context.Background(), EnqueueParams{Type: TypeProjection, Ontology: "acme", MaxRetries: 3})
	require.NoError(t, err)

	ran, err := q.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, sqlstore.JobApproved, repo.jobs[id].Status)
	assert.Equal(t, 1, repo.requeued[id])
}

func TestRunOnce_FailureAtRetryBudgetMarksFailed(t *testing.T) {
	repo := newFakeRepo()
	q := New(repo, zap.NewNop())
	q.Register(TypeProjection, func(_ context.Context, _ Job, _ Reporter) error { return errors.New("boom") })

	id, err := q.Enqueue(context.Background(), EnqueueParams{Type: TypeProjection, Ontology: "acme", MaxRetries: 1})
	require.NoError(t, err)

	ran, err := q.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, sqlstore.JobFailed, repo.jobs[id].Status)
	assert.Contains(t, repo.failed[id], "boom")
}

func TestRunOnce_UnregisteredTypeMarksFailed(t *testing.T) {
	repo := newFakeRepo()
	q := New(repo, zap.NewNop())

	id, err := q.Enqueue(context.Background(), EnqueueParams{Type: TypeProjection, Ontology: "acme"})
	require.NoError(t, err)

	ran, err := q.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, sqlstore.JobFailed, repo.jobs[id].Status)
}

func TestApprove_DelegatesToRepo(t *testing.T) {
	repo := newFakeRepo()
	q := New(repo, zap.NewNop())

	id, err := q.Enqueue(context.Background(), EnqueueParams{Type: TypeIngestion, Ontology: "acme"})
	require.NoError(t, err)

	require.NoError(t, q.Approve(context.Background(), id, "alice"))
	assert.Equal(t, sqlstore.JobApproved, repo.jobs[id].Status)
	assert.Equal(t, "alice", *repo.jobs[id].ApprovedBy)
}

func TestDeleteJobsByOntology_RemovesMatchingRows(t *testing.T) {
	repo := newFakeRepo()
	q := New(repo, zap.NewNop())

	_, err := q.Enqueue(context.Background(), EnqueueParams{Type: TypeIngestion, Ontology: "acme"})
	require.NoError(t, err)
	_, err = q.Enqueue(context.Background(), EnqueueParams{Type: TypeIngestion, Ontology: "other"})
	require.NoError(t, err)

	require.NoError(t, q.DeleteJobsByOntology(context.Background(), "acme"))
	assert.Len(t, repo.jobs, 1)
}

func TestSetApprovalOverride_ChangesAutoApprovalAtEnqueueTime(t *testing.T) {
	repo := newFakeRepo()
	q := New(repo, zap.NewNop())
	q.SetApprovalOverride(TypeIngestion, true)

	id, err := q.Enqueue(context.Background(), EnqueueParams{Type: TypeIngestion, Ontology: "acme"})
	require.NoError(t, err)
	assert.Equal(t, sqlstore.JobApproved, repo.jobs[id].Status)
}
