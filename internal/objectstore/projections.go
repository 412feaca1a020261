package objectstore

import "context"

// PutProjectionLatest writes the current projection-cache snapshot
// and also archives it as a historical snapshot under timestamp, so the
// cache always has both a stable "latest" pointer and an immutable history.
func (s *Store) PutProjectionLatest(ctx context.Context, ontology, embeddingSource, timestamp string, data []byte) error {
	if err := s.put(ctx, ProjectionLatestKey(ontology, embeddingSource), data, "application/json"); err != nil {
		return err
	}
	return s.put(ctx, ProjectionSnapshotKey(ontology, embeddingSource, timestamp), data, "application/json")
}

// GetProjectionLatest fetches the current projection-cache snapshot, or
// (nil, nil) if none has ever been written for this ontology/embedding-source
// pair.
func (s *Store) GetProjectionLatest(ctx context.Context, ontology, embeddingSource string) ([]byte, error) {
	key := ProjectionLatestKey(ontology, embeddingSource)
	already, err := s.exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !already {
		return nil, nil
	}
	return s.Get(ctx, key)
}

// InvalidateProjection removes the "latest" pointer for an
// ontology/embedding-source pair without touching its historical snapshots,
// forcing the next read to recompute.
func (s *Store) InvalidateProjection(ctx context.Context, ontology, embeddingSource string) error {
	_, err := s.DeleteByPrefix(ctx, ProjectionLatestKey(ontology, embeddingSource))
	return err
}
