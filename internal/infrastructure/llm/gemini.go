package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"PrismPipeline/internal/config"
	"PrismPipeline/internal/ports"
	"PrismPipeline/internal/retry"
)

// GeminiClient implements both ports.LanguageModel and ports.Embedder on the Gemini API.
type GeminiClient struct {
	client      *genai.Client
	chatModel   string
	embedModel  string
	dimensions  int32
	temperature float32
	limiter     *rate.Limiter
}

var (
	_ ports.LanguageModel = (*GeminiClient)(nil)
	_ ports.Embedder      = (*GeminiClient)(nil)
)

// NewGeminiClient opens a Gemini API client; dimensions fixes the embedding size.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, temperature float64, dimensions int) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		chatModel:   cfg.ChatModel,
		embedModel:  cfg.EmbedModel,
		dimensions:  int32(dimensions),
		temperature: float32(temperature),
		limiter:     newLimiter(cfg.RatePerSecond),
	}, nil
}

// Complete asks Gemini for a JSON answer to the prompt pair.
func (g *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	temperature := g.temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.chatModel, genai.Text(userPrompt), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

// Embed returns the embedding of text with the configured dimensionality.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	cfg := &genai.EmbedContentConfig{}
	if g.dimensions > 0 {
		dims := g.dimensions
		cfg.OutputDimensionality = &dims
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, retry.Fatal(fmt.Errorf("gemini returned no embeddings"))
	}
	return resp.Embeddings[0].Values, nil
}
