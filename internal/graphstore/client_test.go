package graphstore

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kgraph-core/internal/apperrors"
)

// fakeRows is a minimal pgx.Rows stand-in driven by a fixed set of value
// rows, enough to exercise Client.Execute's decode loop without a live
// Postgres connection.
type fakeRows struct {
	values [][]any
	idx    int
	err    error
}

func (f *fakeRows) Close()                                        {}
func (f *fakeRows) Err() error                                     { return f.err }
func (f *fakeRows) CommandTag() pgconn.CommandTag                  { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription   { return nil }
func (f *fakeRows) Next() bool {
	if f.idx >= len(f.values) {
		return false
	}
	f.idx++
	return true
}
func (f *fakeRows) Scan(dest ...any) error           { return nil }
func (f *fakeRows) Values() ([]any, error)           { return f.values[f.idx-1], nil }
func (f *fakeRows) RawValues() [][]byte              { return nil }
func (f *fakeRows) Conn() *pgx.Conn                  { return nil }

type fakePool struct {
	rows *fakeRows
	err  error
}

func (p *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.rows, nil
}

func TestExecuteDecodesRows(t *testing.T) {
	fp := &fakePool{rows: &fakeRows{values: [][]any{
		{`{"concept_id": "concept_1", "label": "Foo"}::vertex`},
	}}}
	client := &Client{pool: fp, logger: zap.NewNop()}

	rows, err := client.Execute(context.Background(), "MATCH (c:Concept) RETURN c AS c", nil, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	decoded, ok := rows[0]["c"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "concept_1", decoded["concept_id"])
}

func TestExecuteFetchOneStopsAtFirstRow(t *testing.T) {
	fp := &fakePool{rows: &fakeRows{values: [][]any{
		{`"a"`}, {`"b"`},
	}}}
	client := &Client{pool: fp, logger: zap.NewNop()}

	rows, err := client.Execute(context.Background(), "MATCH (c:Concept) RETURN c.label AS label", nil, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0]["label"])
}

func TestExecuteClassifiesExpectedRaceAsDebug(t *testing.T) {
	fp := &fakePool{err: errors.New("Entity failed to be updated")}
	client := &Client{pool: fp, logger: zap.NewNop()}

	_, err := client.Execute(context.Background(), "RETURN 1", nil, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsRaceCondition(err))
}

func TestExecuteClassifiesOtherErrorsAsTransient(t *testing.T) {
	fp := &fakePool{err: errors.New("connection reset by peer")}
	client := &Client{pool: fp, logger: zap.NewNop()}

	_, err := client.Execute(context.Background(), "RETURN 1", nil, false)
	require.Error(t, err)
	assert.False(t, apperrors.IsRaceCondition(err))
}
