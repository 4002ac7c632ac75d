package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"PrismPipeline/internal/config"
	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

const (
	// KindTranscripts fetches YouTube transcripts through youtube-transcript.io.
	KindTranscripts = "transcripts"

	defaultTranscriptsURL = "https://www.youtube-transcript.io/api/transcripts"
	maxTranscriptIDs      = 50
)

type transcriptsResponse struct {
	Results []struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Transcript []struct {
			Start float64 `json:"start"`
			Text  string  `json:"text"`
		} `json:"transcript"`
	} `json:"results"`
}

// Transcripts pulls transcripts for a fixed list of government video ids.
type Transcripts struct {
	name    string
	url     string
	token   string
	ids     []string
	country string
	topic   string
	client  *http.Client
}

var _ ports.Fetcher = (*Transcripts)(nil)

// NewTranscripts builds the fetcher from source config; ids beyond the API batch limit are dropped.
func NewTranscripts(cfg config.SourceConfig, client *http.Client) (*Transcripts, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("transcripts: token is required")
	}
	if len(cfg.IDs) == 0 {
		return nil, fmt.Errorf("transcripts: at least one video id is required")
	}
	if client == nil {
		client = NewHTTPClient()
	}
	ids := cfg.IDs
	if len(ids) > maxTranscriptIDs {
		ids = ids[:maxTranscriptIDs]
	}
	return &Transcripts{
		name:    cfg.Name,
		url:     orDefault(cfg.URL, defaultTranscriptsURL),
		token:   cfg.Token,
		ids:     ids,
		country: cfg.Country,
		topic:   cfg.Topic,
		client:  client,
	}, nil
}

// Name identifies the source in logs and summaries.
func (t *Transcripts) Name() string {
	return t.name
}

// Fetch requests all configured ids in one batch.
func (t *Transcripts) Fetch(ctx context.Context) ([]domain.RawItem, error) {
	var resp transcriptsResponse
	headers := map[string]string{"Authorization": "Basic " + t.token}
	if err := doJSON(ctx, t.client, http.MethodPost, t.url, headers, map[string]any{"ids": t.ids}, &resp); err != nil {
		return nil, err
	}

	items := make([]domain.RawItem, 0, len(resp.Results))
	for _, result := range resp.Results {
		if strings.TrimSpace(result.ID) == "" {
			continue
		}
		chunks := make([]domain.TranscriptChunk, 0, len(result.Transcript))
		for _, c := range result.Transcript {
			chunks = append(chunks, domain.TranscriptChunk{Start: c.Start, Text: c.Text})
		}
		items = append(items, domain.RawItem{
			ID:         "yt_" + result.ID,
			Title:      orDefault(result.Title, "Gov Hearing"),
			Transcript: chunks,
			Type:       "youtube_gov",
			Country:    t.country,
			Topic:      t.topic,
			URL:        "https://youtube.com/watch?v=" + result.ID,
		})
	}
	return items, nil
}
