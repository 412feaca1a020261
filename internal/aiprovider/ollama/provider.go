// Package ollama implements aiprovider.Extractor and
// aiprovider.VisionDescriber against a local Ollama server's HTTP API.
// Ollama has no official Go SDK, so this talks to it over plain net/http —
// the same shape the pack's own Ollama embedding client uses.
package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"kgraph-core/internal/aiprovider"
)

// Provider implements extraction and vision description via a local Ollama
// instance.
type Provider struct {
	endpoint        string
	extractionModel string
	visionModel     string
	httpClient      *http.Client
	retrier         *aiprovider.Retrier
	semaphores      *aiprovider.Semaphores
	logger          *zap.Logger
}

type Config struct {
	Endpoint        string
	ExtractionModel string
	VisionModel     string
	Policy          aiprovider.Policy
}

func New(cfg Config, semaphores *aiprovider.Semaphores, logger *zap.Logger) *Provider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	extractionModel := cfg.ExtractionModel
	if extractionModel == "" {
		extractionModel = "llama3.1"
	}
	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = "llava"
	}
	return &Provider{
		endpoint:        endpoint,
		extractionModel: extractionModel,
		visionModel:     visionModel,
		httpClient:      &http.Client{Timeout: 120 * time.Second},
		retrier:         aiprovider.NewRetrier(cfg.Policy.MaxRetries),
		semaphores:      semaphores,
		logger:          logger,
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response  string `json:"response"`
	EvalCount int    `json:"eval_count"`
	PromptEvalCount int `json:"prompt_eval_count"`
}

// Extract satisfies aiprovider.Extractor.
func (p *Provider) Extract(ctx context.Context, prompt string) (aiprovider.ExtractionResult, error) {
	if err := p.semaphores.Acquire(ctx, "ollama", 1); err != nil {
		return aiprovider.ExtractionResult{}, err
	}
	defer p.semaphores.Release("ollama", 1)

	var result aiprovider.ExtractionResult
	err := p.retrier.Do(ctx, func() error {
		resp, err := p.generate(ctx, p.extractionModel, prompt, nil)
		if err != nil {
			return err
		}
		result = aiprovider.ExtractionResult{
			RawJSON: resp.Response,
			Usage: aiprovider.TokenUsage{
				Input:  resp.PromptEvalCount,
				Output: resp.EvalCount,
				Total:  resp.PromptEvalCount + resp.EvalCount,
			},
			Model: p.extractionModel,
		}
		return nil
	})
	return result, err
}

// Describe satisfies aiprovider.VisionDescriber.
func (p *Provider) Describe(ctx context.Context, image []byte, prompt string) (aiprovider.VisionResult, error) {
	if prompt == "" {
		prompt = aiprovider.DefaultVisionPrompt
	}
	if err := p.semaphores.Acquire(ctx, "ollama", 1); err != nil {
		return aiprovider.VisionResult{}, err
	}
	defer p.semaphores.Release("ollama", 1)

	encoded := base64.StdEncoding.EncodeToString(image)
	var result aiprovider.VisionResult
	err := p.retrier.Do(ctx, func() error {
		resp, err := p.generate(ctx, p.visionModel, prompt, []string{encoded})
		if err != nil {
			return err
		}
		result = aiprovider.VisionResult{
			Text: resp.Response,
			Usage: aiprovider.TokenUsage{
				Input:  resp.PromptEvalCount,
				Output: resp.EvalCount,
				Total:  resp.PromptEvalCount + resp.EvalCount,
			},
			Model:    p.visionModel,
			Provider: "ollama",
		}
		return nil
	})
	return result, err
}

func (p *Provider) generate(ctx context.Context, model, prompt string, images []string) (generateResponse, error) {
	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, Images: images, Stream: false})
	if err != nil {
		return generateResponse{}, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return generateResponse{}, fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return generateResponse{}, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		if resp.StatusCode == http.StatusTooManyRequests {
			return generateResponse{}, fmt.Errorf("ollama rate limit exceeded: %s", string(data))
		}
		return generateResponse{}, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(data))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return generateResponse{}, fmt.Errorf("decode ollama response: %w", err)
	}
	return out, nil
}
