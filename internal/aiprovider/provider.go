// Package aiprovider holds capability interfaces for the three AI
// operations the ingestion pipeline needs (extraction, embedding, vision),
// plus the provider-agnostic policy, retry, rate-limit, and semaphore
// envelope every concrete provider runs inside, and a circuit-breaker
// constructor (NewBreaker) that no concrete provider uses.
package aiprovider

import "context"

// TokenUsage is the {input, output, total} accounting carried on every
// provider response that consumes tokens.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// ExtractionResult is the structured output of a text-in, JSON-out
// extraction call — the raw JSON is left for the caller (internal/ingestion)
// to unmarshal against its own schema, since the schema varies by what is
// being extracted (concepts vs. edges vs. categorization).
type ExtractionResult struct {
	RawJSON string
	Usage   TokenUsage
	Model   string
}

// Extractor performs structured-JSON extraction from text.
type Extractor interface {
	Extract(ctx context.Context, prompt string) (ExtractionResult, error)
}

// EmbeddingResult is a fixed-dimension embedding vector plus token usage.
type EmbeddingResult struct {
	Vector []float32
	Usage  TokenUsage
	Model  string
}

// Embedder produces fixed-dimension embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
	Dimensions() int
}

// VisionResult is the {text, tokens, model, provider} result of a vision
// call.
type VisionResult struct {
	Text     string
	Usage    TokenUsage
	Model    string
	Provider string
}

// DefaultVisionPrompt is the literal "describe everything verbatim"
// instruction used when the caller supplies none.
const DefaultVisionPrompt = "Describe everything visible in this image verbatim: text, objects, layout, colors, and any other detail a sighted reader would need to reconstruct the image from your description alone."

// VisionDescriber turns image bytes into prose, given a prompt.
type VisionDescriber interface {
	Describe(ctx context.Context, image []byte, prompt string) (VisionResult, error)
}

// VisualEmbedder produces a fixed-dimension, L2-normalized image embedding
// (CLS-token pooled from a pretrained vision-embedding model).
// Like the projection cache's ProjectionComputer, the pretrained
// model backing this is an external collaborator this repo does not ship a
// concrete implementation of; internal/ingestion depends only on this
// interface.
type VisualEmbedder interface {
	EmbedImage(ctx context.Context, image []byte) (EmbeddingResult, error)
	Dimensions() int
}

// Policy is a provider's concurrency and retry policy, resolved by
// the caller from relational config, then environment, then these hard
// defaults.
type Policy struct {
	MaxConcurrentRequests int
	MaxRetries            int
}

// DefaultPolicyFor returns the hard-coded default policy for a named
// provider. Unknown names get the conservative cloud-provider default.
func DefaultPolicyFor(provider string) Policy {
	switch provider {
	case "ollama":
		return Policy{MaxConcurrentRequests: 1, MaxRetries: 3}
	case "anthropic":
		return Policy{MaxConcurrentRequests: 4, MaxRetries: 8}
	case "openai":
		return Policy{MaxConcurrentRequests: 8, MaxRetries: 8}
	case "mock":
		return Policy{MaxConcurrentRequests: 100, MaxRetries: 0}
	default:
		return Policy{MaxConcurrentRequests: 4, MaxRetries: 8}
	}
}
