package ingestion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kgraph-core/internal/domain"
	"kgraph-core/internal/vocabulary"
)

// chunkResult is one chunk's contribution to the document's running
// Checkpoint: the stats delta, every concept touched (for
// the checkpoint's last-50 recent_concept_ids window), and the chunk's own
// Source id.
type chunkResult struct {
	stats      Stats
	conceptIDs []string
	sourceID   string
}

// processChunk handles a single chunk: extraction, concept
// upsert-by-meaning, Source/Instance creation, and typed concept-to-concept
// edges. contextWindow and vocabTypes are both fixed as of the start of
// this chunk's processing; the concepts this call creates become part of
// the next chunk's context window and vector-search candidate set, which is
// exactly why the caller never parallelizes this across chunks.
func (p *Pipeline) processChunk(
	ctx context.Context,
	job Job,
	contentHash string,
	chunkNumber int,
	chunk textChunk,
	contextWindow []domain.Concept,
	vocabTypes []domain.VocabType,
	matcher *Matcher,
	garageKey *string,
) (chunkResult, error) {
	var result chunkResult
	sourceID := domain.SourceID(contentHash, chunkNumber)
	result.sourceID = sourceID

	payload, err := p.extractChunk(ctx, chunk, contextWindow, vocabTypes)
	if err != nil {
		return result, fmt.Errorf("extract: %w", err)
	}

	if err := p.createChunkSource(ctx, job, contentHash, chunkNumber, chunk, sourceID, garageKey); err != nil {
		return result, fmt.Errorf("create source: %w", err)
	}
	result.stats.SourcesCreated++

	labelToConceptID := make(map[string]string, len(payload.Concepts)+len(contextWindow))
	for _, c := range contextWindow {
		labelToConceptID[c.Label] = c.ConceptID
	}

	for _, ec := range payload.Concepts {
		conceptID, created, err := p.upsertConcept(ctx, job.Ontology, ec)
		if err != nil {
			return result, fmt.Errorf("upsert concept %q: %w", ec.Label, err)
		}
		labelToConceptID[ec.Label] = conceptID
		result.conceptIDs = append(result.conceptIDs, conceptID)
		if created {
			result.stats.ConceptsCreated++
		} else {
			result.stats.ConceptsLinked++
		}

		if err := p.graph.LinkAppears(ctx, conceptID, sourceID); err != nil {
			return result, fmt.Errorf("link concept %q appears in source %q: %w", conceptID, sourceID, err)
		}

		for _, quote := range ec.Quotes {
			instanceID, err := p.graph.CreateInstance(ctx, sourceID, quote)
			if err != nil {
				return result, fmt.Errorf("create instance for concept %q: %w", conceptID, err)
			}
			if err := p.graph.LinkEvidence(ctx, conceptID, instanceID); err != nil {
				return result, fmt.Errorf("link evidence for concept %q: %w", conceptID, err)
			}
			result.stats.InstancesCreated++
		}
	}

	for _, rel := range payload.Relationships {
		fromID, ok := labelToConceptID[rel.FromLabel]
		if !ok {
			p.logger.Warn("relationship references a concept label not seen this chunk or earlier, skipping",
				zap.String("from_label", rel.FromLabel), zap.String("type", rel.Type))
			continue
		}
		toID, ok := labelToConceptID[rel.ToLabel]
		if !ok {
			p.logger.Warn("relationship references a concept label not seen this chunk or earlier, skipping",
				zap.String("to_label", rel.ToLabel), zap.String("type", rel.Type))
			continue
		}

		edgeType, category, err := p.resolveEdgeType(ctx, rel.Type, matcher)
		if err != nil {
			return result, fmt.Errorf("resolve relationship type %q: %w", rel.Type, err)
		}

		createdBy := job.IngestedBy
		jobID := job.JobID
		docID := contentHash
		prov := domain.EdgeProvenance{
			Confidence: rel.Confidence,
			Category:   category,
			Source:     domain.EdgeSourceLLMExtraction,
			CreatedAt:  p.now().UTC().Format(time.RFC3339),
			CreatedBy:  &createdBy,
			JobID:      &jobID,
			DocumentID: &docID,
		}
		if err := p.graph.CreateConceptEdge(ctx, fromID, toID, edgeType, prov); err != nil {
			return result, fmt.Errorf("create edge %s -[%s]-> %s: %w", fromID, edgeType, toID, err)
		}
		result.stats.RelationshipsCreated++
	}

	return result, nil
}

// extractChunk calls the extraction LLM and parses its response. Image chunks carry no separate extraction call: their text is
// already vision-LLM prose, and that prose still goes through the same
// concept/relationship extraction as any other chunk.
func (p *Pipeline) extractChunk(ctx context.Context, chunk textChunk, contextWindow []domain.Concept, vocabTypes []domain.VocabType) (ExtractionPayload, error) {
	prompt := buildExtractionPrompt(chunk.Text, contextWindow, vocabTypes)
	raw, err := p.extractor.Extract(ctx, prompt)
	if err != nil {
		return ExtractionPayload{}, fmt.Errorf("call extraction provider: %w", err)
	}
	return parseExtractionResponse(raw.RawJSON)
}

// createChunkSource builds and persists the chunk's Source node.
func (p *Pipeline) createChunkSource(ctx context.Context, job Job, contentHash string, chunkNumber int, chunk textChunk, sourceID string, garageKey *string) error {
	startPos, endPos := chunk.StartPosition, chunk.EndPosition
	chunkIdx := chunkNumber

	src := domain.Source{
		SourceID:        sourceID,
		Document:        job.Ontology,
		Paragraph:       chunkNumber,
		FullText:        chunk.Text,
		ContentType:     domain.ContentTypeDocument,
		ContentHash:     &contentHash,
		CharOffsetStart: &startPos,
		CharOffsetEnd:   &endPos,
		ChunkIndex:      &chunkIdx,
	}

	if chunk.Image != nil {
		src.ContentType = domain.ContentTypeImage
		src.FullText = chunk.Image.ProseText
		src.VisualEmbedding = chunk.Image.VisualEmbedding
		if chunk.Image.StorageKey != "" {
			key := chunk.Image.StorageKey
			src.StorageKey = &key
		}
	} else {
		src.GarageKey = garageKey
	}

	return p.graph.CreateSource(ctx, src)
}

// upsertConcept embeds, vector-searches, and either merges into
// the best match or create a new Concept.
func (p *Pipeline) upsertConcept(ctx context.Context, ontology string, ec ExtractedConcept) (conceptID string, created bool, err error) {
	embedding, err := p.embedder.Embed(ctx, ec.Label+": "+ec.Description)
	if err != nil {
		return "", false, fmt.Errorf("embed concept: %w", err)
	}

	candidates, err := p.graph.VectorSearch(ctx, ontology, embedding.Vector, p.upsertThreshold, 1)
	if err != nil {
		return "", false, fmt.Errorf("vector search: %w", err)
	}

	if len(candidates) > 0 && candidates[0].Similarity >= p.upsertThreshold {
		existing := candidates[0].Concept
		existing.ExtendSearchTerms(ec.SearchTerms)
		if err := p.graph.ExtendConceptSearchTerms(ctx, existing.ConceptID, existing.SearchTerms); err != nil {
			return "", false, fmt.Errorf("extend search terms: %w", err)
		}
		return existing.ConceptID, false, nil
	}

	concept := domain.Concept{
		ConceptID:   domain.NewConceptID(),
		Label:       ec.Label,
		Description: ec.Description,
		Embedding:   embedding.Vector,
		SearchTerms: ec.SearchTerms,
	}
	if err := p.graph.CreateConcept(ctx, concept); err != nil {
		return "", false, fmt.Errorf("create concept: %w", err)
	}
	return concept.ConceptID, true, nil
}

// resolveEdgeType resolves an extracted relationship type: match
// against the active vocabulary via the stem+synonym matcher, or register a
// brand-new "llm_generated" VocabType when nothing matches. The category
// refresh launcher is what later runs the probabilistic categorizer
// over everything still sitting at "llm_generated" — this call only needs
// the type to exist so the edge can be created.
func (p *Pipeline) resolveEdgeType(ctx context.Context, rawType string, matcher *Matcher) (name, category string, err error) {
	name, matched := matcher.Match(rawType)
	if matched {
		return name, "", nil
	}

	if err := p.vocab.Add(ctx, vocabulary.AddParams{
		Name:      name,
		Category:  "llm_generated",
		AddedBy:   "system",
		IsBuiltin: false,
	}); err != nil {
		return "", "", fmt.Errorf("register new vocabulary type %q: %w", name, err)
	}
	matcher.index(name)
	return name, "llm_generated", nil
}
