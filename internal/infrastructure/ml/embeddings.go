package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"PrismPipeline/internal/config"
	"PrismPipeline/internal/ports"
	"PrismPipeline/internal/retry"
)

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbeddingClient calls an OpenAI-compatible /embeddings endpoint.
type EmbeddingClient struct {
	endpoint   string
	apiKey     string
	model      string
	dimensions int
	limiter    *rate.Limiter
	http       *http.Client
}

var _ ports.Embedder = (*EmbeddingClient)(nil)

// NewEmbeddingClient builds a client from the embedding configuration.
func NewEmbeddingClient(cfg config.EmbeddingConfig) *EmbeddingClient {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &EmbeddingClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		limiter:    limiter,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Embed returns the vector for a single text.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.apiKey == "" || c.endpoint == "" {
		return nil, retry.Fatal(fmt.Errorf("embedding client misconfigured"))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	reqBody, err := json.Marshal(embeddingRequest{Model: c.model, Input: []string{text}, Dimensions: c.dimensions})
	if err != nil {
		return nil, retry.Fatal(fmt.Errorf("marshal: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, retry.Fatal(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<20))

	if resp.StatusCode != http.StatusOK {
		return nil, retry.FromStatus(resp.StatusCode,
			fmt.Errorf("embedding API %d: %s", resp.StatusCode, string(body)))
	}

	var result embeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("embedding API returned no data")
	}
	return result.Data[0].Embedding, nil
}
