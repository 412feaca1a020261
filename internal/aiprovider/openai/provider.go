// Package openai implements aiprovider.Extractor and aiprovider.Embedder
// against the OpenAI chat-completions and embeddings APIs.
package openai

import (
	"context"

	openaisdk "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"kgraph-core/internal/aiprovider"
)

// Provider implements extraction and embedding via OpenAI models.
type Provider struct {
	client          *openaisdk.Client
	extractionModel string
	embeddingModel  openaisdk.EmbeddingModel
	dimensions      int
	retrier         *aiprovider.Retrier
	semaphores      *aiprovider.Semaphores
	logger          *zap.Logger
}

// Config holds construction parameters resolved from relational config /
// environment.
type Config struct {
	APIKey          string
	ExtractionModel string
	EmbeddingModel  string
	Dimensions      int
	Policy          aiprovider.Policy
}

func New(cfg Config, semaphores *aiprovider.Semaphores, logger *zap.Logger) *Provider {
	extractionModel := cfg.ExtractionModel
	if extractionModel == "" {
		extractionModel = openaisdk.GPT4oMini
	}
	embeddingModel := openaisdk.EmbeddingModel(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = openaisdk.SmallEmbedding3
	}
	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 1536
	}
	return &Provider{
		client:          openaisdk.NewClient(cfg.APIKey),
		extractionModel: extractionModel,
		embeddingModel:  embeddingModel,
		dimensions:      dimensions,
		retrier:         aiprovider.NewRetrier(cfg.Policy.MaxRetries),
		semaphores:      semaphores,
		logger:          logger,
	}
}

// Extract satisfies aiprovider.Extractor.
func (p *Provider) Extract(ctx context.Context, prompt string) (aiprovider.ExtractionResult, error) {
	if err := p.semaphores.Acquire(ctx, "openai", 8); err != nil {
		return aiprovider.ExtractionResult{}, err
	}
	defer p.semaphores.Release("openai", 8)

	var result aiprovider.ExtractionResult
	err := p.retrier.Do(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, openaisdk.ChatCompletionRequest{
			Model: p.extractionModel,
			Messages: []openaisdk.ChatCompletionMessage{
				{Role: openaisdk.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openaisdk.ChatCompletionResponseFormat{Type: openaisdk.ChatCompletionResponseFormatTypeJSONObject},
		})
		if err != nil {
			return err
		}
		text := ""
		if len(resp.Choices) > 0 {
			text = resp.Choices[0].Message.Content
		}
		result = aiprovider.ExtractionResult{
			RawJSON: text,
			Usage: aiprovider.TokenUsage{
				Input:  resp.Usage.PromptTokens,
				Output: resp.Usage.CompletionTokens,
				Total:  resp.Usage.TotalTokens,
			},
			Model: resp.Model,
		}
		return nil
	})
	return result, err
}

// Dimensions satisfies aiprovider.Embedder.
func (p *Provider) Dimensions() int { return p.dimensions }

// Embed satisfies aiprovider.Embedder.
func (p *Provider) Embed(ctx context.Context, text string) (aiprovider.EmbeddingResult, error) {
	if err := p.semaphores.Acquire(ctx, "openai", 8); err != nil {
		return aiprovider.EmbeddingResult{}, err
	}
	defer p.semaphores.Release("openai", 8)

	var result aiprovider.EmbeddingResult
	err := p.retrier.Do(ctx, func() error {
		resp, err := p.client.CreateEmbeddings(ctx, openaisdk.EmbeddingRequestStrings{
			Input: []string{text},
			Model: p.embeddingModel,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return nil
		}
		result = aiprovider.EmbeddingResult{
			Vector: resp.Data[0].Embedding,
			Usage: aiprovider.TokenUsage{
				Input: resp.Usage.PromptTokens,
				Total: resp.Usage.TotalTokens,
			},
			Model: string(p.embeddingModel),
		}
		return nil
	})
	return result, err
}
