package ingestion

import (
	"context"
	"fmt"

	"kgraph-core/internal/aiprovider"
)

// imageIngestResult is the payload the image-ingestion prefix hands to the
// rest of the pipeline.
type imageIngestResult struct {
	ProseText       string
	StorageKey      string
	VisualEmbedding []float32
	MimeType        string
}

// prepareImage runs the image-ingestion prefix: a visual embedding, a
// vision-LLM description, and an upload to the image store, in that order
// so a failure in either AI call leaves nothing written to object storage.
func (p *Pipeline) prepareImage(ctx context.Context, job Job, sourceID string) (imageIngestResult, error) {
	var result imageIngestResult

	if p.visualEmbedder != nil {
		embedding, err := p.visualEmbedder.EmbedImage(ctx, job.Raw)
		if err != nil {
			return result, fmt.Errorf("generate visual embedding: %w", err)
		}
		result.VisualEmbedding = embedding.Vector
	}

	description, err := p.vision.Describe(ctx, job.Raw, aiprovider.DefaultVisionPrompt)
	if err != nil {
		return result, fmt.Errorf("vision describe: %w", err)
	}
	result.ProseText = description.Text

	filename := ""
	if job.Filename != nil {
		filename = *job.Filename
	}
	key, mime, err := p.objects.UploadImage(ctx, job.Ontology, sourceID, filename, job.Raw)
	if err != nil {
		return result, fmt.Errorf("upload image: %w", err)
	}
	result.StorageKey = key
	result.MimeType = mime
	return result, nil
}
