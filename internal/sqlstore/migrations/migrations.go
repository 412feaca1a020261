// Package migrations embeds the goose migration set for the relational
// side-tables (vocabulary, history, metrics, jobs, scheduler, checkpoint
// index) and exposes a single Migrate entry point.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var files embed.FS

// Migrate brings db up to the latest migration. Callers pass the
// *sql.DB obtained from sqlstore.DB's underlying connection (sqlx.DB.DB).
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
