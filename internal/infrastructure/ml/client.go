package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"PrismPipeline/internal/ports"
	"PrismPipeline/internal/retry"
)

// Client talks to an external NLP inference service for entity recognition.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.EntityRecognizer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Recognize sends bounded text to the service and returns its raw entity hits.
func (c *Client) Recognize(ctx context.Context, text string) ([]ports.RecognizedEntity, error) {
	payload := map[string]any{"text": text}

	var resp struct {
		Entities []ports.RecognizedEntity `json:"entities"`
	}
	if err := c.post(ctx, "/entities", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return retry.FromStatus(resp.StatusCode,
			fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg))))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
