package objectstore

import (
	"regexp"
	"strings"
)

var unsafeKeySegment = regexp.MustCompile(`[^a-zA-Z0-9_\-]+`)

// SanitizeOntology maps an ontology name onto a safe S3 key segment —
// lowercased, with every run of characters other than letters, digits,
// underscores and hyphens collapsed to a single underscore, and leading or
// trailing underscores trimmed.
func SanitizeOntology(ontology string) string {
	lowered := strings.ToLower(ontology)
	return strings.Trim(unsafeKeySegment.ReplaceAllString(lowered, "_"), "_")
}

// ImageKey builds the image-store key: {sanitized_ontology}/{source_id}.{ext}
func ImageKey(ontology, sourceID, ext string) string {
	return SanitizeOntology(ontology) + "/" + sourceID + "." + ext
}

// SourceDocumentKey builds the content-addressed source-document-store
// key: sources/{ontology}/{hash_prefix}.{ext}
func SourceDocumentKey(ontology, hashPrefix, ext string) string {
	return "sources/" + SanitizeOntology(ontology) + "/" + hashPrefix + "." + ext
}

// ProjectionLatestKey builds the "latest" projection-cache key.
func ProjectionLatestKey(ontology, embeddingSource string) string {
	return "projections/" + SanitizeOntology(ontology) + "/" + embeddingSource + "/latest.json"
}

// ProjectionSnapshotKey builds a historical projection-cache snapshot key,
// timestamp is caller-supplied (RFC3339 or similar) so this package never
// needs wall-clock access.
func ProjectionSnapshotKey(ontology, embeddingSource, timestamp string) string {
	return "projections/" + SanitizeOntology(ontology) + "/" + embeddingSource + "/" + timestamp + ".json"
}

// OntologyPrefix is the key prefix delete_by_prefix uses to remove every
// blob belonging to an ontology on deletion.
func OntologyPrefix(ontology string) string {
	return SanitizeOntology(ontology) + "/"
}

// CheckpointKey builds the per-document checkpoint key: the
// durable JSON resume record lives alongside the other ontology-scoped
// blobs rather than on local disk, so a crashed worker can resume on any
// node. documentName is already normalized (lowercase, spaces/slashes ->
// underscore) by the caller before reaching this helper.
func CheckpointKey(ontology, documentName string) string {
	return "checkpoints/" + SanitizeOntology(ontology) + "/" + documentName + ".json"
}
