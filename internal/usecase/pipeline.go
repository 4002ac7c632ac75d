package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

// Normalizer turns fetched items into documents.
type Normalizer interface {
	Normalize(item domain.RawItem) (domain.RawDocument, error)
}

// Enricher turns documents into signals.
type Enricher interface {
	Enrich(ctx context.Context, doc domain.RawDocument) (domain.Signal, error)
}

// CardGenerator derives a crisis card from a stored signal.
type CardGenerator interface {
	Generate(ctx context.Context, signal domain.Signal) (domain.CrisisCard, error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Fetchers   []ports.Fetcher
	Normalizer Normalizer
	Enricher   Enricher
	Signals    ports.SignalStore
	Cards      ports.CardStore
	Generator  CardGenerator
	Publisher  ports.CardPublisher
	Notifier   ports.Notifier
	Observer   ports.RunObserver
	Logger     *slog.Logger
	// DigestSize is the number of top cards in the notifier digest.
	DigestSize int
	Now        func() time.Time
	NewRunID   func() string
}

// Pipeline implements the fetch → signal → card workflow.
type Pipeline struct {
	fetchers   []ports.Fetcher
	normalizer Normalizer
	enricher   Enricher
	signals    ports.SignalStore
	cards      ports.CardStore
	generator  CardGenerator
	publisher  ports.CardPublisher
	notifier   ports.Notifier
	observer   ports.RunObserver
	logger     *slog.Logger
	digestSize int
	now        func() time.Time
	newRunID   func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		fetchers:   deps.Fetchers,
		normalizer: deps.Normalizer,
		enricher:   deps.Enricher,
		signals:    deps.Signals,
		cards:      deps.Cards,
		generator:  deps.Generator,
		publisher:  deps.Publisher,
		notifier:   deps.Notifier,
		observer:   deps.Observer,
		logger:     deps.Logger,
		digestSize: deps.DigestSize,
		now:        deps.Now,
		newRunID:   deps.NewRunID,
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newRunID == nil {
		p.newRunID = uuid.NewString
	}
	if p.digestSize <= 0 {
		p.digestSize = 3
	}
	return p
}

// run carries the mutable state of a single Run call.
type run struct {
	summary domain.RunSummary
	cards   []domain.CrisisCard
	logger  *slog.Logger
}

func (r *run) setStage(stage domain.Stage) {
	if r.summary.Stage == stage {
		return
	}
	r.summary.Stage = stage
	r.logger.Debug("stage", "stage", string(stage))
}

func (r *run) fail(id string, stage domain.Stage, err error) {
	r.summary.Failures = append(r.summary.Failures, domain.DocumentFailure{
		DocumentID: id,
		Stage:      stage,
		Err:        err.Error(),
	})
	r.logger.Warn("document failed", "document_id", id, "stage", string(stage), "error", err)
}

// Run executes one pass over every fetcher. Per-document failures are
// counted in the summary; only ErrNoSources, ErrAllSourcesFailed and context
// cancellation are returned as errors, always alongside the partial summary.
func (p *Pipeline) Run(ctx context.Context) (domain.RunSummary, error) {
	runID := p.newRunID()
	r := &run{
		summary: domain.NewRunSummary(runID, p.now()),
		logger:  p.logger.With("run_id", runID),
	}
	r.logger.Info("run started", "sources", len(p.fetchers))

	if len(p.fetchers) == 0 {
		return p.finish(ctx, r, domain.ErrNoSources)
	}

	items, failedSources := p.fetch(ctx, r)
	if err := ctx.Err(); err != nil {
		return p.finish(ctx, r, err)
	}
	if failedSources == len(p.fetchers) {
		return p.finish(ctx, r, domain.ErrAllSourcesFailed)
	}

	docs := p.normalize(r, items)

	r.setStage(domain.StageEnriching)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return p.finish(ctx, r, err)
		}
		p.process(ctx, r, doc)
	}

	return p.finish(ctx, r, nil)
}

func (p *Pipeline) fetch(ctx context.Context, r *run) ([]domain.RawItem, int) {
	r.setStage(domain.StageFetching)

	var (
		items  []domain.RawItem
		failed int
	)
	for _, f := range p.fetchers {
		if ctx.Err() != nil {
			break
		}
		fetched, err := f.Fetch(ctx)
		if err != nil {
			failed++
			r.summary.FetchErrors[f.Name()]++
			r.logger.Warn("fetch failed", "source", f.Name(), "error", err)
			continue
		}
		r.logger.Info("fetched", "source", f.Name(), "count", len(fetched))
		items = append(items, fetched...)
	}
	r.summary.Fetched = len(items)
	return items, failed
}

func (p *Pipeline) normalize(r *run, items []domain.RawItem) []domain.RawDocument {
	r.setStage(domain.StageNormalizing)

	docs := make([]domain.RawDocument, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		doc, err := p.normalizer.Normalize(item)
		if err != nil {
			r.summary.Rejected++
			r.logger.Warn("document rejected", "document_id", item.ID, "error", err)
			continue
		}
		if _, dup := seen[doc.ID]; dup {
			r.logger.Debug("duplicate document skipped", "document_id", doc.ID)
			continue
		}
		seen[doc.ID] = struct{}{}
		docs = append(docs, doc)
	}
	return docs
}

// process carries one document through enrichment, storage and card generation.
func (p *Pipeline) process(ctx context.Context, r *run, doc domain.RawDocument) {
	signal, err := p.enricher.Enrich(ctx, doc)
	if err != nil {
		r.summary.EnrichFailures++
		r.fail(doc.ID, domain.StageEnriching, err)
		return
	}

	if err := p.signals.UpsertSignal(ctx, signal); err != nil {
		r.summary.StoreErrors++
		r.fail(doc.ID, domain.StageEnriching, err)
		return
	}
	r.summary.SignalsStored++

	if p.generator == nil {
		return
	}

	r.setStage(domain.StageCardGenerating)
	defer r.setStage(domain.StageEnriching)

	card, err := p.generator.Generate(ctx, signal)
	if err != nil {
		r.summary.CardFailures++
		r.fail(doc.ID, domain.StageCardGenerating, err)
		return
	}

	if p.cards != nil {
		if err := p.cards.UpsertCard(ctx, card); err != nil {
			r.summary.StoreErrors++
			r.fail(doc.ID, domain.StageCardGenerating, err)
			return
		}
	}
	r.summary.CardsGenerated++
	r.cards = append(r.cards, card)
	r.logger.Info("card generated", "document_id", doc.ID, "card_id", card.ID, "urgency", card.Urgency)

	if p.publisher != nil {
		if err := p.publisher.PublishCard(ctx, card); err != nil {
			r.logger.Warn("publish card failed", "card_id", card.ID, "error", err)
		}
	}
}

func (p *Pipeline) finish(ctx context.Context, r *run, runErr error) (domain.RunSummary, error) {
	r.setStage(domain.StageSummarizing)
	r.summary.Summarize(r.cards)
	r.summary.FinishedAt = p.now()

	if p.observer != nil {
		p.observer.ObserveRun(r.summary)
	}

	if runErr == nil && p.notifier != nil && len(r.cards) > 0 {
		digest := BuildDigest(r.summary, r.cards, p.digestSize)
		if err := p.notifier.PublishDigest(ctx, digest); err != nil {
			r.logger.Warn("publish digest failed", "error", err)
		}
	}

	r.setStage(domain.StageDone)

	attrs := []any{
		"fetched", r.summary.Fetched,
		"rejected", r.summary.Rejected,
		"signals", r.summary.SignalsStored,
		"cards", r.summary.CardsGenerated,
		"enrich_failures", r.summary.EnrichFailures,
		"card_failures", r.summary.CardFailures,
		"store_errors", r.summary.StoreErrors,
		"avg_urgency", fmt.Sprintf("%.2f", r.summary.AverageUrgency),
		"duration", r.summary.FinishedAt.Sub(r.summary.StartedAt),
	}
	switch {
	case runErr == nil:
		r.logger.Info("run finished", attrs...)
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		r.logger.Warn("run interrupted", append(attrs, "error", runErr)...)
	default:
		r.logger.Error("run failed", append(attrs, "error", runErr)...)
	}

	return r.summary, runErr
}
