// Package anthropic implements aiprovider.Extractor and
// aiprovider.VisionDescriber against the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/base64"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"kgraph-core/internal/aiprovider"
	"kgraph-core/internal/tracing"
)

// Provider implements extraction and vision description via Claude models.
type Provider struct {
	client          anthropic.Client
	extractionModel anthropic.Model
	visionModel     anthropic.Model
	retrier         *aiprovider.Retrier
	semaphores      *aiprovider.Semaphores
	logger          *zap.Logger
}

// Config holds the construction parameters an operator supplies from
// relational config / environment.
type Config struct {
	APIKey          string
	ExtractionModel string
	VisionModel     string
	Policy          aiprovider.Policy
}

func New(cfg Config, semaphores *aiprovider.Semaphores, logger *zap.Logger) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	extractionModel := anthropic.Model(cfg.ExtractionModel)
	if extractionModel == "" {
		extractionModel = anthropic.ModelClaude3_7SonnetLatest
	}
	visionModel := anthropic.Model(cfg.VisionModel)
	if visionModel == "" {
		visionModel = extractionModel
	}
	return &Provider{
		client:          anthropic.NewClient(opts...),
		extractionModel: extractionModel,
		visionModel:     visionModel,
		retrier:         aiprovider.NewRetrier(cfg.Policy.MaxRetries),
		semaphores:      semaphores,
		logger:          logger,
	}
}

// Extract satisfies aiprovider.Extractor.
func (p *Provider) Extract(ctx context.Context, prompt string) (result aiprovider.ExtractionResult, extractErr error) {
	ctx, span := tracing.Start(ctx, "aiprovider.anthropic.Extract", attribute.String("aiprovider.model", string(p.extractionModel)))
	defer func() { tracing.End(span, extractErr) }()

	if err := p.semaphores.Acquire(ctx, "anthropic", 4); err != nil {
		return aiprovider.ExtractionResult{}, err
	}
	defer p.semaphores.Release("anthropic", 4)

	extractErr = p.retrier.Do(ctx, func() error {
		msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     p.extractionModel,
			MaxTokens: 4096,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return err
		}
		result = aiprovider.ExtractionResult{
			RawJSON: concatText(msg),
			Usage: aiprovider.TokenUsage{
				Input:  int(msg.Usage.InputTokens),
				Output: int(msg.Usage.OutputTokens),
				Total:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
			},
			Model: string(p.extractionModel),
		}
		return nil
	})
	return result, extractErr
}

// Describe satisfies aiprovider.VisionDescriber.
func (p *Provider) Describe(ctx context.Context, image []byte, prompt string) (aiprovider.VisionResult, error) {
	if prompt == "" {
		prompt = aiprovider.DefaultVisionPrompt
	}
	if err := p.semaphores.Acquire(ctx, "anthropic", 4); err != nil {
		return aiprovider.VisionResult{}, err
	}
	defer p.semaphores.Release("anthropic", 4)

	mediaType := detectMediaType(image)
	encoded := base64.StdEncoding.EncodeToString(image)

	var result aiprovider.VisionResult
	err := p.retrier.Do(ctx, func() error {
		msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     p.visionModel,
			MaxTokens: 2048,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(
					anthropic.NewImageBlockBase64(mediaType, encoded),
					anthropic.NewTextBlock(prompt),
				),
			},
		})
		if err != nil {
			return err
		}
		result = aiprovider.VisionResult{
			Text: concatText(msg),
			Usage: aiprovider.TokenUsage{
				Input:  int(msg.Usage.InputTokens),
				Output: int(msg.Usage.OutputTokens),
				Total:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
			},
			Model:    string(p.visionModel),
			Provider: "anthropic",
		}
		return nil
	})
	return result, err
}

func concatText(msg *anthropic.Message) string {
	var out string
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			out += text.Text
		}
	}
	return out
}

func detectMediaType(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 8 && data[0] == 0x89 && data[1] == 0x50:
		return "image/png"
	case len(data) >= 6 && string(data[:3]) == "GIF":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
