package objectstore

import "context"

// DeleteOntology removes every blob an ontology owns across all three
// sub-stores: images (bare sanitized-ontology prefix), source documents
// (sources/{ontology}/), and projections (projections/{ontology}/) — the
// object-storage leg of the ontology-delete cascade.
func (s *Store) DeleteOntology(ctx context.Context, ontology string) (deleted int, err error) {
	prefixes := []string{
		OntologyPrefix(ontology),
		"sources/" + SanitizeOntology(ontology) + "/",
		"projections/" + SanitizeOntology(ontology) + "/",
	}
	for _, prefix := range prefixes {
		n, err := s.DeleteByPrefix(ctx, prefix)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}
