package sqlstore

import (
	"context"
	"fmt"
	"time"
)

// CheckpointIndexRow tracks which documents currently have a resumable
// checkpoint blob in object storage, so list_checkpoints() doesn't
// need to list the whole bucket. The checkpoint content itself lives in
// object storage; this table is purely an index over it.
type CheckpointIndexRow struct {
	Ontology     string    `db:"ontology"`
	DocumentName string    `db:"document_name"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// UpsertCheckpointIndex records that a checkpoint now exists for
// (ontology, documentName), bumping updated_at on every save.
func (d *DB) UpsertCheckpointIndex(ctx context.Context, ontology, documentName string) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO checkpoint_index (ontology, document_name, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (ontology, document_name) DO UPDATE SET updated_at = now()`,
		ontology, documentName)
	if err != nil {
		return fmt.Errorf("upsert checkpoint index: %w", err)
	}
	return nil
}

// DeleteCheckpointIndex removes the index row for (ontology, documentName),
// called after the checkpoint blob itself is deleted on job success.
func (d *DB) DeleteCheckpointIndex(ctx context.Context, ontology, documentName string) error {
	_, err := d.conn.ExecContext(ctx, `
		DELETE FROM checkpoint_index WHERE ontology = $1 AND document_name = $2`,
		ontology, documentName)
	if err != nil {
		return fmt.Errorf("delete checkpoint index: %w", err)
	}
	return nil
}

// ListCheckpointIndex returns every resumable checkpoint for an ontology,
// most recently saved first. ontology == "" lists
// across all ontologies.
func (d *DB) ListCheckpointIndex(ctx context.Context, ontology string) ([]CheckpointIndexRow, error) {
	var rows []CheckpointIndexRow
	var err error
	if ontology == "" {
		err = d.conn.SelectContext(ctx, &rows, `
			SELECT ontology, document_name, updated_at FROM checkpoint_index
			ORDER BY updated_at DESC`)
	} else {
		err = d.conn.SelectContext(ctx, &rows, `
			SELECT ontology, document_name, updated_at FROM checkpoint_index
			WHERE ontology = $1 ORDER BY updated_at DESC`, ontology)
	}
	if err != nil {
		return nil, fmt.Errorf("list checkpoint index: %w", err)
	}
	return rows, nil
}
