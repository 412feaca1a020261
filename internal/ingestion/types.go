// Package ingestion is the per-document, per-chunk pipeline
// that turns raw bytes into Concepts, Sources, Instances, and typed
// edges. Chunk processing is strictly serial — see the comment on
// Pipeline.IngestDocument for why this package never spawns a goroutine
// across chunks.
package ingestion

import "kgraph-core/internal/domain"

// Job is one unit of ingestion work: either a text document or an image,
// routed to the same pipeline.
type Job struct {
	JobID      string
	Ontology   string
	IngestedBy string
	SourceType domain.SourceType
	Filename   *string
	FilePath   *string
	Hostname   *string
	Raw        []byte
	IsImage    bool
}

// Stats is the running counter set updated after every chunk.
type Stats struct {
	ConceptsCreated       int
	ConceptsLinked        int
	SourcesCreated        int
	InstancesCreated      int
	RelationshipsCreated  int
}

// Add accumulates delta into s in place.
func (s *Stats) Add(delta Stats) {
	s.ConceptsCreated += delta.ConceptsCreated
	s.ConceptsLinked += delta.ConceptsLinked
	s.SourcesCreated += delta.SourcesCreated
	s.InstancesCreated += delta.InstancesCreated
	s.RelationshipsCreated += delta.RelationshipsCreated
}

// Result is what IngestDocument returns on completion.
type Result struct {
	DocumentID string
	Skipped    bool // true when DocumentMeta already existed for this (content_hash, ontology)
	Stats      Stats
}
