package domain

// ContentType distinguishes a Source that is itself a text/markdown chunk
// from one produced by the image-ingestion prefix.
type ContentType string

const (
	ContentTypeDocument ContentType = "document"
	ContentTypeImage    ContentType = "image"
)

// Source is one retrievable chunk of evidence: a paragraph of a document,
// or an ingested image. garage_key, storage_key and visual_embedding are
// mutually exclusive-ish depending on ContentType.
type Source struct {
	SourceID         string      `json:"source_id"`
	Document         string      `json:"document"` // logical ontology name
	Paragraph        int         `json:"paragraph"`
	FullText         string      `json:"full_text"`
	ContentType      ContentType `json:"content_type"`
	StorageKey       *string     `json:"storage_key,omitempty"`     // image blob key
	GarageKey        *string     `json:"garage_key,omitempty"`      // original doc blob key
	ContentHash      *string     `json:"content_hash,omitempty"`
	CharOffsetStart  *int        `json:"char_offset_start,omitempty"`
	CharOffsetEnd    *int        `json:"char_offset_end,omitempty"`
	ChunkIndex       *int        `json:"chunk_index,omitempty"`
	VisualEmbedding  []float32   `json:"visual_embedding,omitempty"`
	Embedding        []float32   `json:"embedding,omitempty"`
}

// Instance is a verbatim quote linking a Concept to a Source. Every Instance
// must have exactly one FROM_SOURCE target and at least one EVIDENCED_BY
// predecessor — that linkage is enforced by the caller at
// creation time, not by this struct.
type Instance struct {
	InstanceID string `json:"instance_id"`
	Quote      string `json:"quote"`
}

// SourceType enumerates how a document entered the system, carried on
// DocumentMeta for audit purposes.
type SourceType string

const (
	SourceTypeFile  SourceType = "file"
	SourceTypeStdin SourceType = "stdin"
	SourceTypeMCP   SourceType = "mcp"
	SourceTypeAPI   SourceType = "api"
	SourceTypeURL   SourceType = "url"
)

// DocumentMeta is the provenance record written once per successfully
// ingested document. DocumentID equals ContentHash; dedup key is
// (ContentHash, Ontology).
type DocumentMeta struct {
	DocumentID   string     `json:"document_id"`
	ContentHash  string     `json:"content_hash"`
	Ontology     string     `json:"ontology"`
	SourceCount  int        `json:"source_count"`
	IngestedBy   string     `json:"ingested_by"`
	JobID        string     `json:"job_id"`
	Filename     *string    `json:"filename,omitempty"`
	SourceType   SourceType `json:"source_type"`
	FilePath     *string    `json:"file_path,omitempty"`
	Hostname     *string    `json:"hostname,omitempty"`
	IngestedAt   string     `json:"ingested_at"` // ISO-8601
	GarageKey    *string    `json:"garage_key,omitempty"`
}
