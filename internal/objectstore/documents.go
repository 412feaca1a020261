package objectstore

import "context"

// PutSourceDocument writes the raw document bytes under the
// content-addressed source-document-store key. Re-ingestion of
// identical content is a no-op put: if a blob already exists at the derived
// key, this returns immediately without writing again.
func (s *Store) PutSourceDocument(ctx context.Context, ontology, ext string, data []byte) (key string, hash string, err error) {
	hash = contentHash(data)
	key = SourceDocumentKey(ontology, hash, ext)

	already, err := s.exists(ctx, key)
	if err != nil {
		return "", "", err
	}
	if already {
		return key, hash, nil
	}
	if err := s.put(ctx, key, data, "application/octet-stream"); err != nil {
		return "", "", err
	}
	return key, hash, nil
}

// GetSourceDocument fetches a source document blob by its content-addressed
// key.
func (s *Store) GetSourceDocument(ctx context.Context, key string) ([]byte, error) {
	return s.Get(ctx, key)
}
