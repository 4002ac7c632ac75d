package ports

import (
	"context"
	"time"

	"PrismPipeline/internal/domain"
)

// Fetcher pulls raw items from one upstream source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.RawItem, error)
}

// RecognizedEntity is a raw NER hit before kind filtering.
type RecognizedEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// EntityRecognizer runs named-entity recognition over bounded text.
type EntityRecognizer interface {
	Recognize(ctx context.Context, text string) ([]RecognizedEntity, error)
}

// SentimentScorer returns a compound polarity score in [-1, 1].
type SentimentScorer interface {
	Score(text string) float64
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LanguageModel completes a single system/user prompt pair.
type LanguageModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// SignalStore persists signals keyed by id with last-write-wins semantics.
type SignalStore interface {
	UpsertSignal(ctx context.Context, signal domain.Signal) error
}

// CardStore persists crisis cards keyed by id with last-write-wins semantics.
type CardStore interface {
	UpsertCard(ctx context.Context, card domain.CrisisCard) error
}

// CardPublisher fans generated cards out to downstream consumers.
type CardPublisher interface {
	PublishCard(ctx context.Context, card domain.CrisisCard) error
}

// Notifier delivers a run digest to Telegram, email or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// RunObserver receives the summary of every finished run.
type RunObserver interface {
	ObserveRun(summary domain.RunSummary)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
