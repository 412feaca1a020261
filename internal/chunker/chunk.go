// Package chunker splits ingested text into ordered
// chunks for the ingestion pipeline, via either a plain word-budget
// strategy or a markdown-AST-aware strategy.
package chunker

// BoundaryType classifies why a chunk ended where it did.
type BoundaryType string

const (
	BoundarySemantic       BoundaryType = "semantic"
	BoundaryHardCut        BoundaryType = "hard_cut"
	BoundaryEndOfDocument  BoundaryType = "end_of_document"
)

// Chunk is one ordered, numbered chunk of text.
type Chunk struct {
	Text          string
	ChunkNumber   int
	WordCount     int
	BoundaryType  BoundaryType
	StartPosition int
	EndPosition   int
	Nodes         []string // source AST node kinds this chunk was assembled from; empty for word-budget chunks
}
