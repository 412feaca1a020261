// Package sqlstore wraps the relational side-tables (vocabulary,
// vocabulary_history, jobs, scheduler state, checkpoints index, graph-change
// metrics counters) that live next to the property graph in the same
// Postgres instance.
package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"kgraph-core/internal/sqlstore/migrations"
)

// DB is a thin wrapper over *sqlx.DB, mirroring graphstore.Client's
// struct-wraps-a-driver shape.
type DB struct {
	conn   *sqlx.DB
	logger *zap.Logger
}

// Open connects to Postgres via the pgx stdlib driver (registered as
// "pgx" by github.com/jackc/pgx/v5/stdlib's init) and wraps it with sqlx.
func Open(dsn string, logger *zap.Logger) (*DB, error) {
	conn, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open relational store: %w", err)
	}
	return &DB{conn: conn, logger: logger}, nil
}

func (d *DB) Close() error { return d.conn.Close() }

func (d *DB) Ping(ctx context.Context) error { return d.conn.PingContext(ctx) }

// Migrate brings the relational side-tables up to the latest schema
// version using the embedded goose migration set.
func (d *DB) Migrate() error {
	if err := migrations.Migrate(d.conn.DB); err != nil {
		return fmt.Errorf("migrate relational store: %w", err)
	}
	return nil
}
