package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"PrismPipeline/internal/cards"
	"PrismPipeline/internal/config"
	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/enrich"
	"PrismPipeline/internal/infrastructure/broker"
	"PrismPipeline/internal/infrastructure/fetcher"
	"PrismPipeline/internal/infrastructure/llm"
	"PrismPipeline/internal/infrastructure/ml"
	"PrismPipeline/internal/infrastructure/notify"
	"PrismPipeline/internal/infrastructure/scheduler"
	"PrismPipeline/internal/infrastructure/sentiment"
	"PrismPipeline/internal/infrastructure/storage"
	"PrismPipeline/internal/logging"
	"PrismPipeline/internal/metrics"
	"PrismPipeline/internal/normalize"
	"PrismPipeline/internal/ports"
	"PrismPipeline/internal/source"
	"PrismPipeline/internal/usecase"
)

// Options tweak how the application is assembled.
type Options struct {
	// DryRun keeps signals and cards in memory and skips delivery.
	DryRun bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	recorder *metrics.Recorder
	closers  []func(context.Context) error
}

type stores struct {
	signals ports.SignalStore
	cards   ports.CardStore
}

// New builds a runnable application instance from cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if opts.DryRun {
		cfg.Database.Driver = config.DriverMemory
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &Application{cfg: cfg, logger: baseLogger, recorder: metrics.NewRecorder()}

	registry := source.NewRegistry()
	fetcher.Register(registry, fetcher.NewHTTPClient())
	fetchers, err := registry.Build(cfg.Sources)
	if err != nil {
		return nil, err
	}

	st, err := a.openStores(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	embedder, model, err := a.providers(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	engine := enrich.NewEngine(enrich.Deps{
		Recognizer: ml.NewClient(cfg.ML.InferenceURL, cfg.ML.APIKey),
		Sentiment:  sentiment.NewVaderScorer(),
		Embedder:   embedder,
		Logger:     logging.Component(baseLogger, "enrich"),
	}, enrich.Config{
		Dimensions:    cfg.Embedding.Dimensions,
		EmbedMaxChars: cfg.Embedding.MaxChars,
		Retry:         cfg.Retry.Policy(),
	})

	generator := cards.NewGenerator(model, cfg.Retry.Policy(), logging.Component(baseLogger, "cards"))

	deps := usecase.PipelineDeps{
		Fetchers:   fetchers,
		Normalizer: normalize.New(),
		Enricher:   engine,
		Signals:    st.signals,
		Cards:      st.cards,
		Generator:  generator,
		Observer:   a.recorder,
		Logger:     logging.Component(baseLogger, "pipeline"),
		DigestSize: cfg.Notifications.TopCards,
	}
	if !opts.DryRun {
		if deps.Publisher, err = a.publisher(); err != nil {
			a.Close(ctx)
			return nil, err
		}
		deps.Notifier = a.notifier()
	}

	a.pipeline = usecase.NewPipeline(deps)
	return a, nil
}

func (a *Application) openStores(ctx context.Context) (stores, error) {
	switch a.cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := sql.Open("postgres", a.cfg.Database.DSN)
		if err != nil {
			return stores{}, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		if err := db.PingContext(ctx); err != nil {
			return stores{}, fmt.Errorf("ping postgres: %w", err)
		}
		repo := storage.NewPostgresRepository(db, a.cfg.Embedding.Dimensions)
		if err := repo.EnsureSchema(ctx); err != nil {
			return stores{}, err
		}
		return stores{signals: repo, cards: repo}, nil

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.cfg.Database.DSN))
		if err != nil {
			return stores{}, fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, client.Disconnect)
		repo := storage.NewMongoRepository(client.Database(a.cfg.Database.MongoDatabase))
		return stores{signals: repo, cards: repo}, nil

	default:
		repo := storage.NewMemoryRepository()
		return stores{signals: repo, cards: repo}, nil
	}
}

// providers returns the embedder and language model; a single Gemini client
// serves both roles when both select it.
func (a *Application) providers(ctx context.Context) (ports.Embedder, ports.LanguageModel, error) {
	var gemini *llm.GeminiClient
	geminiClient := func() (*llm.GeminiClient, error) {
		if gemini != nil {
			return gemini, nil
		}
		c, err := llm.NewGeminiClient(ctx, a.cfg.Gemini, a.cfg.LLM.Temperature, a.cfg.Embedding.Dimensions)
		if err != nil {
			return nil, err
		}
		gemini = c
		return c, nil
	}

	var embedder ports.Embedder
	switch a.cfg.Embedding.Provider {
	case config.ProviderGemini:
		c, err := geminiClient()
		if err != nil {
			return nil, nil, err
		}
		embedder = c
	default:
		embedder = ml.NewEmbeddingClient(a.cfg.Embedding)
	}

	var model ports.LanguageModel
	switch a.cfg.LLM.Provider {
	case config.ProviderGemini:
		c, err := geminiClient()
		if err != nil {
			return nil, nil, err
		}
		model = c
	default:
		model = llm.NewChatGPTClient(a.cfg.ChatGPT)
	}

	return embedder, model, nil
}

func (a *Application) publisher() (ports.CardPublisher, error) {
	if a.cfg.NATS.URL == "" {
		return nil, nil
	}
	p, err := broker.Connect(a.cfg.NATS.URL, a.cfg.NATS.Subject)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error {
		p.Close()
		return nil
	})
	return p, nil
}

func (a *Application) notifier() ports.Notifier {
	var channels notify.Multi
	if tg := a.cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		channels = append(channels, notify.NewTelegram(tg.BotToken, tg.ChatID))
	}
	if email := a.cfg.Notifications.Email; email.Enabled() {
		channels = append(channels, notify.NewEmail(email))
	}
	if len(channels) == 0 {
		return nil
	}
	return channels
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (domain.RunSummary, error) {
	return a.pipeline.Run(ctx)
}

// Serve runs the pipeline on the configured cron schedule and exposes
// /metrics until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	driver, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(),
		logging.Component(a.logger, "scheduler"))
	if err != nil {
		return err
	}
	sched := usecase.NewScheduler(driver, a.pipeline, logging.Component(a.logger, "scheduler"))

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.recorder.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("metrics listening", "addr", a.cfg.Metrics.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if err := sched.Start(ctx); err != nil {
		_ = server.Close()
		return err
	}

	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			_ = sched.Stop(context.Background())
			return fmt.Errorf("metrics server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	return server.Shutdown(shutdownCtx)
}

// Close releases database and broker connections.
func (a *Application) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
	a.closers = nil
}
