package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
	"PrismPipeline/internal/retry"
)

const (
	// MaxContentChars bounds Signal.Content.
	MaxContentChars = 50000
	// ExcerptChars bounds Signal.Metadata.Excerpt.
	ExcerptChars = 500

	minEmbedChars = 2000
	maxEmbedChars = 8000
)

// Config holds the engine's fixed parameters.
type Config struct {
	// Dimensions is the embedding length the store was created with.
	Dimensions int
	// EmbedMaxChars is the provider-dependent input cap, clamped to [2000, 8000].
	EmbedMaxChars int
	Retry         retry.Policy
}

// Deps are the engine's external collaborators.
type Deps struct {
	Recognizer ports.EntityRecognizer
	Sentiment  ports.SentimentScorer
	Embedder   ports.Embedder
	Logger     *slog.Logger
	Now        func() time.Time
}

// Engine turns RawDocuments into Signals. It never persists anything.
type Engine struct {
	recognizer ports.EntityRecognizer
	sentiment  ports.SentimentScorer
	embedder   ports.Embedder
	logger     *slog.Logger
	now        func() time.Time
	cfg        Config
}

// NewEngine wires collaborators; zero config values fall back to defaults.
func NewEngine(deps Deps, cfg Config) *Engine {
	if cfg.EmbedMaxChars < minEmbedChars {
		cfg.EmbedMaxChars = minEmbedChars
	}
	if cfg.EmbedMaxChars > maxEmbedChars {
		cfg.EmbedMaxChars = maxEmbedChars
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		recognizer: deps.Recognizer,
		sentiment:  deps.Sentiment,
		embedder:   deps.Embedder,
		logger:     logger,
		now:        now,
		cfg:        cfg,
	}
}

// Enrich computes entities, embedding and urgency for doc.
// Failures wrap domain.ErrEnrichment; no partial Signal is returned.
func (e *Engine) Enrich(ctx context.Context, doc domain.RawDocument) (domain.Signal, error) {
	if strings.TrimSpace(doc.RawText) == "" {
		return domain.Signal{}, fmt.Errorf("%w: %s: empty text", domain.ErrEnrichment, doc.ID)
	}
	if e.embedder == nil {
		return domain.Signal{}, fmt.Errorf("%w: %s: no embedding provider", domain.ErrEnrichment, doc.ID)
	}

	entities, err := e.entities(ctx, doc.RawText)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("%w: %s: entities: %v", domain.ErrEnrichment, doc.ID, err)
	}

	vector, err := e.embed(ctx, doc.RawText)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("%w: %s: embedding: %w", domain.ErrEnrichment, doc.ID, err)
	}

	var compound float64
	if e.sentiment != nil {
		compound = e.sentiment.Score(doc.RawText)
	}

	content := domain.Truncate(strings.Join(strings.Fields(doc.RawText), " "), MaxContentChars)
	now := e.now().UTC()

	return domain.Signal{
		ID:        doc.ID,
		Type:      doc.SourceType,
		Country:   InferCountry(doc.Title, doc.RawText, doc.CountryHint),
		Topic:     InferTopic(doc.Title, doc.RawText, doc.TopicHint),
		Content:   content,
		Entities:  entities,
		Embedding: vector,
		Urgency:   Urgency(compound, doc.RawText),
		Metadata: domain.SignalMetadata{
			URL:     doc.URL,
			Title:   doc.Title,
			Date:    documentDate(doc).Format(time.RFC3339),
			Excerpt: domain.Truncate(content, ExcerptChars),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (e *Engine) entities(ctx context.Context, text string) ([]domain.Entity, error) {
	if e.recognizer == nil {
		return []domain.Entity{}, nil
	}
	found, err := e.recognizer.Recognize(ctx, domain.Truncate(text, EntityInputChars))
	if err != nil {
		return nil, err
	}
	return MergeEntities(found), nil
}

func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	input := domain.Truncate(text, e.cfg.EmbedMaxChars)
	return retry.Do(ctx, e.cfg.Retry, e.logger, "embed", func(callCtx context.Context) ([]float32, error) {
		vector, err := e.embedder.Embed(callCtx, input)
		if err != nil {
			return nil, err
		}
		if e.cfg.Dimensions > 0 && len(vector) != e.cfg.Dimensions {
			return nil, retry.Fatal(fmt.Errorf("embedding has %d dimensions, store expects %d", len(vector), e.cfg.Dimensions))
		}
		return vector, nil
	})
}

// documentDate prefers the publication time and falls back to fetch time.
func documentDate(doc domain.RawDocument) time.Time {
	if !doc.PublishedAt.IsZero() {
		return doc.PublishedAt.UTC()
	}
	return doc.FetchedAt.UTC()
}
