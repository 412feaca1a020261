package ingestion

import (
	"context"
	"strings"

	"kgraph-core/internal/chunker"
	"kgraph-core/internal/domain"
)

// textChunk is a chunker.Chunk plus, for image jobs, the image-ingestion
// prefix output that must flow into the chunk's Source node.
type textChunk struct {
	chunker.Chunk
	Image *imageIngestResult
}

// chunkJob turns one Job into its ordered chunk list. Image jobs never go
// through the text chunker: the image-ingestion prefix runs once and its
// prose becomes the sole chunk's text, then the usual pipeline takes over.
func (p *Pipeline) chunkJob(ctx context.Context, job Job, contentHash string) ([]textChunk, error) {
	if job.IsImage {
		sourceID := domain.SourceID(contentHash, 0)
		img, err := p.prepareImage(ctx, job, sourceID)
		if err != nil {
			return nil, err
		}
		return []textChunk{{
			Chunk: chunker.Chunk{
				Text:         img.ProseText,
				ChunkNumber:  0,
				WordCount:    len(strings.Fields(img.ProseText)),
				BoundaryType: chunker.BoundaryEndOfDocument,
			},
			Image: &img,
		}}, nil
	}

	var chunks []chunker.Chunk
	if p.useMarkdown {
		nodes := p.markdownChunker.ParseNodes(job.Raw)
		sections := p.markdownChunker.GroupSections(nodes)
		sections, err := chunker.TranslateSections(ctx, sections, p.extractor, 0)
		if err != nil {
			return nil, err
		}
		chunks = p.markdownChunker.Chunk(sections)
	} else {
		chunks = p.wordChunker.Chunk(string(job.Raw))
	}

	wrapped := make([]textChunk, len(chunks))
	for i, c := range chunks {
		wrapped[i] = textChunk{Chunk: c}
	}
	return wrapped, nil
}

// gatherContextWindow builds the extraction context window.
// DocumentContext already restricts to
// Concepts linked to this ontology's Sources, which covers both "this
// document so far" and "the last few paragraphs" since both are Sources
// tagged with the same ontology.
func (p *Pipeline) gatherContextWindow(ctx context.Context, ontology string) ([]domain.Concept, error) {
	window, err := p.graph.DocumentContext(ctx, ontology, p.contextWindow)
	if err != nil {
		return nil, err
	}
	if len(window) == 0 {
		p.logger.Info("empty context window, first ingestion for this ontology")
	}
	return window, nil
}
