package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PrismPipeline/internal/cards"
	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/enrich"
	"PrismPipeline/internal/infrastructure/storage"
	"PrismPipeline/internal/normalize"
	"PrismPipeline/internal/ports"
	"PrismPipeline/internal/retry"
)

var fixedNow = time.Date(2025, time.September, 16, 12, 0, 0, 0, time.UTC)

type staticFetcher struct {
	name  string
	items []domain.RawItem
	err   error
	hook  func()
}

func (f *staticFetcher) Name() string { return f.name }

func (f *staticFetcher) Fetch(context.Context) ([]domain.RawItem, error) {
	if f.hook != nil {
		f.hook()
	}
	return f.items, f.err
}

type noEntities struct{}

func (noEntities) Recognize(context.Context, string) ([]ports.RecognizedEntity, error) {
	return nil, nil
}

type fixedSentiment float64

func (s fixedSentiment) Score(string) float64 { return float64(s) }

// poisonEmbedder fails for any text containing "poison".
type poisonEmbedder struct{ calls int }

func (e *poisonEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if strings.Contains(text, "poison") {
		return nil, errors.New("embedding service unavailable")
	}
	return []float32{0.1, 0.2, 0.3, 0.4}, nil
}

// stubModel returns a valid card unless the prompt mentions "garbled".
type stubModel struct{}

func (stubModel) Complete(_ context.Context, _, user string) (string, error) {
	if strings.Contains(user, "garbled") {
		return "I cannot answer that", nil
	}
	return `{"signal":"Grid reform advances","why_it_matters":"Power prices move","platform_pitch":"Track it on PRISM"}`, nil
}

type failingSignals struct{}

func (failingSignals) UpsertSignal(context.Context, domain.Signal) error {
	return errors.New("connection refused")
}

type recordingNotifier struct {
	digests []string
	err     error
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.digests = append(n.digests, digest)
	return n.err
}

type recordingObserver struct{ summaries []domain.RunSummary }

func (o *recordingObserver) ObserveRun(s domain.RunSummary) { o.summaries = append(o.summaries, s) }

type recordingPublisher struct{ ids []string }

func (p *recordingPublisher) PublishCard(_ context.Context, card domain.CrisisCard) error {
	p.ids = append(p.ids, card.ID)
	return errors.New("broker down")
}

func fastPolicy() retry.Policy {
	return retry.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func sampleItems() []domain.RawItem {
	return []domain.RawItem{
		{
			ID:      "fr_1",
			Title:   "Federal Register notice on grid",
			Content: "An energy crisis looms over the grid.",
			Type:    "register",
		},
		{
			ID:      "x_2",
			Title:   "X post",
			Content: "Mining lithium talk in Ontario.",
			Type:    "x",
		},
	}
}

type fixture struct {
	store     *storage.MemoryRepository
	embedder  *poisonEmbedder
	notifier  *recordingNotifier
	observer  *recordingObserver
	publisher *recordingPublisher
	deps      PipelineDeps
}

func newFixture(fetchers ...ports.Fetcher) *fixture {
	f := &fixture{
		store:     storage.NewMemoryRepository(),
		embedder:  &poisonEmbedder{},
		notifier:  &recordingNotifier{},
		observer:  &recordingObserver{},
		publisher: &recordingPublisher{},
	}
	clock := func() time.Time { return fixedNow }
	engine := enrich.NewEngine(enrich.Deps{
		Recognizer: noEntities{},
		Sentiment:  fixedSentiment(-0.5),
		Embedder:   f.embedder,
		Now:        clock,
	}, enrich.Config{Dimensions: 4, Retry: fastPolicy()})

	f.deps = PipelineDeps{
		Fetchers:   fetchers,
		Normalizer: normalize.NewWithClock(clock),
		Enricher:   engine,
		Signals:    f.store,
		Cards:      f.store,
		Generator:  cards.NewGenerator(stubModel{}, fastPolicy(), nil).WithClock(clock),
		Publisher:  f.publisher,
		Notifier:   f.notifier,
		Observer:   f.observer,
		Now:        clock,
		NewRunID:   func() string { return "run-1" },
	}
	return f
}

func TestRunIsolatesFailingFetcher(t *testing.T) {
	t.Parallel()

	f := newFixture(
		&staticFetcher{name: "register", items: sampleItems()},
		&staticFetcher{name: "broken", err: domain.ErrFetch},
	)

	summary, err := NewPipeline(f.deps).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, domain.StageDone, summary.Stage)
	assert.Equal(t, map[string]int{"broken": 1}, summary.FetchErrors)
	assert.Equal(t, 2, summary.Fetched)
	assert.Equal(t, 2, summary.SignalsStored)
	assert.Equal(t, 2, summary.CardsGenerated)

	signals, storedCards := f.store.Counts()
	assert.Equal(t, 2, signals)
	assert.Equal(t, 2, storedCards)
}

func TestRunSummaryStatistics(t *testing.T) {
	t.Parallel()

	f := newFixture(&staticFetcher{name: "mixed", items: sampleItems()})

	summary, err := NewPipeline(f.deps).Run(context.Background())
	require.NoError(t, err)

	// crisis doubles 0.5 to 1.0, "reform" in the card boosts by 1.5
	assert.InDelta(t, (1.5+0.75)/2, summary.AverageUrgency, 1e-9)
	require.NotNil(t, summary.TopCard)
	assert.Equal(t, "card_fr_1", summary.TopCard.ID)
	assert.Equal(t, map[string]int{"fr": 1, "x": 1}, summary.CardsBySource)
	assert.Equal(t, fixedNow, summary.FinishedAt)

	card, ok := f.store.Card("card_x_2")
	require.True(t, ok)
	assert.Equal(t, []string{"x_2"}, card.Refs)
	assert.Equal(t, "Canada", card.Country)

	require.Len(t, f.observer.summaries, 1)
	require.Len(t, f.notifier.digests, 1)
	assert.Contains(t, f.notifier.digests[0], "Grid reform advances")
	assert.Equal(t, []string{"card_fr_1", "card_x_2"}, f.publisher.ids)
}

func TestRunEmbeddingExhaustedSkipsDocument(t *testing.T) {
	t.Parallel()

	items := append(sampleItems(), domain.RawItem{
		ID:      "x_3",
		Title:   "X post",
		Content: "poison pill text",
		Type:    "x",
	})
	f := newFixture(&staticFetcher{name: "x", items: items})

	summary, err := NewPipeline(f.deps).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.EnrichFailures)
	assert.Equal(t, 2, summary.SignalsStored)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "x_3", summary.Failures[0].DocumentID)
	assert.Equal(t, domain.StageEnriching, summary.Failures[0].Stage)

	_, found := f.store.Signal("x_3")
	assert.False(t, found)
	assert.Equal(t, 2+3, f.embedder.calls)
}

func TestRunCardFailureKeepsSignal(t *testing.T) {
	t.Parallel()

	items := []domain.RawItem{{ID: "x_9", Title: "garbled post", Content: "Budget talk", Type: "x"}}
	f := newFixture(&staticFetcher{name: "x", items: items})

	summary, err := NewPipeline(f.deps).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SignalsStored)
	assert.Equal(t, 1, summary.CardFailures)
	assert.Equal(t, 0, summary.CardsGenerated)
	_, found := f.store.Signal("x_9")
	assert.True(t, found)
	_, found = f.store.Card("card_x_9")
	assert.False(t, found)
	assert.Empty(t, f.notifier.digests)
}

func TestRunSignalStoreFailureSkipsCard(t *testing.T) {
	t.Parallel()

	f := newFixture(&staticFetcher{name: "x", items: sampleItems()})
	f.deps.Signals = failingSignals{}

	summary, err := NewPipeline(f.deps).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.StoreErrors)
	assert.Equal(t, 0, summary.SignalsStored)
	assert.Equal(t, 0, summary.CardsGenerated)
	_, storedCards := f.store.Counts()
	assert.Equal(t, 0, storedCards)
}

func TestRunRejectsAndDeduplicates(t *testing.T) {
	t.Parallel()

	items := append(sampleItems(),
		domain.RawItem{ID: "x_4", Title: "empty", Type: "x"},
		domain.RawItem{ID: "fr_1", Title: "again", Content: "same id", Type: "register"},
	)
	f := newFixture(&staticFetcher{name: "x", items: items})

	summary, err := NewPipeline(f.deps).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Fetched)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 2, summary.SignalsStored)
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(&staticFetcher{name: "x", items: sampleItems()})
	p := NewPipeline(f.deps)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	firstSignal, ok := f.store.Signal("fr_1")
	require.True(t, ok)
	firstCard, ok := f.store.Card("card_fr_1")
	require.True(t, ok)

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	signals, storedCards := f.store.Counts()
	assert.Equal(t, 2, signals)
	assert.Equal(t, 2, storedCards)

	secondSignal, ok := f.store.Signal("fr_1")
	require.True(t, ok)
	assert.Equal(t, firstSignal, secondSignal)

	secondCard, ok := f.store.Card("card_fr_1")
	require.True(t, ok)
	assert.Equal(t, firstCard, secondCard)
}

func TestRunFatalConditions(t *testing.T) {
	t.Parallel()

	f := newFixture()
	summary, err := NewPipeline(f.deps).Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSources)
	assert.Equal(t, "run-1", summary.RunID)

	f = newFixture(
		&staticFetcher{name: "a", err: domain.ErrFetch},
		&staticFetcher{name: "b", err: domain.ErrFetch},
	)
	summary, err = NewPipeline(f.deps).Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrAllSourcesFailed)
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, summary.FetchErrors)
	require.Len(t, f.observer.summaries, 1)
	assert.Empty(t, f.notifier.digests)
}

func TestRunCancelledReturnsPartialSummary(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(&staticFetcher{name: "x", items: sampleItems(), hook: cancel})

	summary, err := NewPipeline(f.deps).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, summary.Fetched)
	assert.Equal(t, 0, summary.SignalsStored)
}

func TestRunNotifierFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(&staticFetcher{name: "x", items: sampleItems()})
	f.notifier.err = errors.New("telegram down")

	summary, err := NewPipeline(f.deps).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.CardsGenerated)
	assert.Len(t, f.notifier.digests, 1)
}
