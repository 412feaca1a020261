// Package graphstore is the graph store client: a pooled
// connection over a property-graph extension running inside Postgres,
// parameter escaping (native binding isn't available to the graph
// extension), graph-native return value decoding, and the typed helpers
// layered on top (Concept/Source/Instance/DocumentMeta/vocabulary CRUD).
package graphstore

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"kgraph-core/internal/apperrors"
	"kgraph-core/internal/tracing"
)

// pool is the subset of *pgxpool.Pool this package depends on, so tests can
// substitute a fake without a live Postgres connection.
type pool interface {
	Query(ctx context.Context, sql string, args...any) (pgx.Rows, error)
}

// Client issues graph statements over a pooled Postgres connection.
type Client struct {
	pool   pool
	logger *zap.Logger
}

// New wraps an already-configured pgxpool.Pool. Pool sizing (min=1,
// max=20 default) is the caller's responsibility via
// pgxpool.ParseConfig + internal/config.
func New(p *pgxpool.Pool, logger *zap.Logger) *Client {
	return &Client{pool: p, logger: logger}
}

// expectedRaceSubstrings are the error-message fragments that mark an
// expected concurrent-MERGE conflict: logged at DEBUG, never
// ERROR, because the caller's retry is the correct recovery, not a bug.
var expectedRaceSubstrings = []string{"already exists", "Entity failed to be updated"}

// Execute is the single primitive every typed helper is built on:
// substitutes params into query (the graph extension has no native bind
// parameters), runs it, and decodes each row into the column names
// parseReturnColumns computes from query's RETURN clause. When fetchOne is
// true, only the first row is decoded and returned.
func (c *Client) Execute(ctx context.Context, query string, params map[string]any, fetchOne bool) (out []Row, execErr error) {
	ctx, span := tracing.Start(ctx, "graphstore.Execute",
		attribute.Int("graphstore.param_count", len(params)),
		attribute.Bool("graphstore.fetch_one", fetchOne),
	)
	defer func() { tracing.End(span, execErr) }()

	literalQuery, err := buildParams(query, params)
	if err != nil {
		return nil, apperrors.Internal("failed to build graph query parameters", err)
	}

	columns := parseReturnColumns(query)

	rows, err := c.pool.Query(ctx, literalQuery)
	if err != nil {
		c.logQueryError(err)
		return nil, classifyQueryError(err)
	}
	defer rows.Close()

	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return nil, apperrors.Internal("failed to read graph query row", err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if i >= len(raw) {
				break
			}
			text, ok := raw[i].(string)
			if !ok {
				row[col] = raw[i]
				continue
			}
			decoded, err := decodeGraphValue(text)
			if err != nil {
				return nil, apperrors.Internal("failed to decode graph query value", err)
			}
			row[col] = decoded
		}
		out = append(out, row)
		if fetchOne {
			break
		}
	}
	if err := rows.Err(); err != nil {
		c.logQueryError(err)
		return nil, classifyQueryError(err)
	}
	return out, nil
}

func (c *Client) logQueryError(err error) {
	msg := err.Error()
	for _, s := range expectedRaceSubstrings {
		if strings.Contains(msg, s) {
			c.logger.Debug("expected graph concurrency conflict", zap.Error(err))
			return
		}
	}
	c.logger.Error("graph query failed", zap.Error(err))
}

func classifyQueryError(err error) error {
	msg := err.Error()
	for _, s := range expectedRaceSubstrings {
		if strings.Contains(msg, s) {
			return apperrors.RaceCondition("expected graph concurrency conflict", err)
		}
	}
	return apperrors.Transient("graph query failed", err)
}
