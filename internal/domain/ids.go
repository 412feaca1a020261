package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NewConceptID mints a fresh concept identifier.
func NewConceptID() string { return "concept_" + uuid.New().String() }

// NewInstanceID mints a fresh instance identifier.
func NewInstanceID() string { return "instance_" + uuid.New().String() }

// NewJobID mints a fresh job identifier.
func NewJobID() string { return "job_" + uuid.New().String() }

// ContentHash returns the hex-encoded SHA-256 of raw document bytes, used as
// both the object-store content-addressed key prefix and DocumentMeta's
// DocumentID.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// SourceID derives a chunk's Source id from the document's content hash and
// chunk number: `{content_hash[:12]}_chunk{n}`.
func SourceID(contentHash string, chunkNumber int) string {
	prefix := contentHash
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	return fmt.Sprintf("%s_chunk%d", prefix, chunkNumber)
}
