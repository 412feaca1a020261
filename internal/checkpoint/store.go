// Package checkpoint is durable per-document resume state for
// the ingestion pipeline, persisted as a JSON blob in object storage plus a
// relational index row so list_checkpoints doesn't have to list the
// whole bucket. Open Question O3 (local disk vs. object storage) resolves
// here in favor of object storage, since a worker picking up a requeued job
// may not be the same process — or the same machine — that wrote the
// checkpoint.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kgraph-core/internal/apperrors"
	"kgraph-core/internal/ingestion"
	"kgraph-core/internal/sqlstore"
)

// blobStore is the narrow slice of *objectstore.Store this package depends
// on.
type blobStore interface {
	PutCheckpoint(ctx context.Context, ontology, documentName string, data []byte) error
	GetCheckpoint(ctx context.Context, ontology, documentName string) ([]byte, bool, error)
	DeleteCheckpoint(ctx context.Context, ontology, documentName string) error
}

// indexStore is the narrow slice of *sqlstore.DB this package depends on.
type indexStore interface {
	UpsertCheckpointIndex(ctx context.Context, ontology, documentName string) error
	DeleteCheckpointIndex(ctx context.Context, ontology, documentName string) error
	ListCheckpointIndex(ctx context.Context, ontology string) ([]sqlstore.CheckpointIndexRow, error)
}

// Store is the concrete ingestion.CheckpointStore, backed by object
// storage for the blob and a relational table purely as a listing index.
type Store struct {
	blobs  blobStore
	index  indexStore
	logger *zap.Logger
}

func New(blobs blobStore, index indexStore, logger *zap.Logger) *Store {
	return &Store{blobs: blobs, index: index, logger: logger}
}

// Load implements ingestion.CheckpointStore. A corrupt (unparseable) blob is
// treated the same as a missing one after logging a warning — a hash
// mismatch or a missing file discards the checkpoint and restarts the job
// from chunk 0; a malformed JSON blob is the same failure mode by a
// different cause, so it gets the same fallback rather
// than a hard error that would wedge the job permanently.
func (s *Store) Load(ctx context.Context, ontology, documentName string) (*ingestion.Checkpoint, bool, error) {
	data, found, err := s.blobs.GetCheckpoint(ctx, ontology, documentName)
	if err != nil {
		return nil, false, fmt.Errorf("get checkpoint blob: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	var cp ingestion.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.Warn("checkpoint blob is corrupt, discarding and restarting from chunk 0",
			zap.String("ontology", ontology), zap.String("document_name", documentName), zap.Error(err))
		return nil, false, nil
	}
	return &cp, true, nil
}

// Save implements ingestion.CheckpointStore, overwriting the same blob key
// on every chunk boundary and keeping the listing index in
// sync.
func (s *Store) Save(ctx context.Context, ontology, documentName string, cp ingestion.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return apperrors.Wrap(err, "marshal checkpoint")
	}
	if err := s.blobs.PutCheckpoint(ctx, ontology, documentName, data); err != nil {
		return fmt.Errorf("put checkpoint blob: %w", err)
	}
	if err := s.index.UpsertCheckpointIndex(ctx, ontology, documentName); err != nil {
		return fmt.Errorf("upsert checkpoint index: %w", err)
	}
	return nil
}

// Clear implements ingestion.CheckpointStore, called on job success.
func (s *Store) Clear(ctx context.Context, ontology, documentName string) error {
	if err := s.blobs.DeleteCheckpoint(ctx, ontology, documentName); err != nil {
		return fmt.Errorf("delete checkpoint blob: %w", err)
	}
	if err := s.index.DeleteCheckpointIndex(ctx, ontology, documentName); err != nil {
		return fmt.Errorf("delete checkpoint index: %w", err)
	}
	return nil
}

// Record pairs a checkpoint index entry with its full payload, the
// `list_checkpoints` external-interface shape.
type Record struct {
	Ontology     string
	DocumentName string
	UpdatedAt    string
	Checkpoint   ingestion.Checkpoint
}

// List returns every currently-resumable
// document for an ontology (or every ontology when ontology == ""), most
// recently saved first, each with its full decoded checkpoint payload.
func (s *Store) List(ctx context.Context, ontology string) ([]Record, error) {
	rows, err := s.index.ListCheckpointIndex(ctx, ontology)
	if err != nil {
		return nil, fmt.Errorf("list checkpoint index: %w", err)
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		cp, found, err := s.Load(ctx, row.Ontology, row.DocumentName)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint %s/%s: %w", row.Ontology, row.DocumentName, err)
		}
		if !found {
			s.logger.Warn("checkpoint index row has no backing blob, skipping",
				zap.String("ontology", row.Ontology), zap.String("document_name", row.DocumentName))
			continue
		}
		out = append(out, Record{
			Ontology:     row.Ontology,
			DocumentName: row.DocumentName,
			UpdatedAt:    row.UpdatedAt.UTC().Format(time.RFC3339),
			Checkpoint:   *cp,
		})
	}
	return out, nil
}
