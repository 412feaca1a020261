package objectstore

import "context"

// PutCheckpoint writes a document's checkpoint JSON blob. Callers
// overwrite the same key on every chunk boundary — there is no historical
// checkpoint snapshot, unlike the projection cache.
func (s *Store) PutCheckpoint(ctx context.Context, ontology, documentName string, data []byte) error {
	return s.put(ctx, CheckpointKey(ontology, documentName), data, "application/json")
}

// GetCheckpoint fetches a document's checkpoint JSON blob, or (nil, false)
// if none exists.
func (s *Store) GetCheckpoint(ctx context.Context, ontology, documentName string) ([]byte, bool, error) {
	key := CheckpointKey(ontology, documentName)
	found, err := s.exists(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// DeleteCheckpoint removes a document's checkpoint blob.
func (s *Store) DeleteCheckpoint(ctx context.Context, ontology, documentName string) error {
	_, err := s.DeleteByPrefix(ctx, CheckpointKey(ontology, documentName))
	return err
}
