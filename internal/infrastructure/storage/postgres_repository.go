package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

const (
	signalsTable = "signals"
	cardsTable   = "crisis_cards"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var signalColumns = []string{
	"id", "type", "country", "topic", "content", "entities",
	"embedding", "urgency", "metadata", "created_at", "updated_at",
}

var cardColumns = []string{
	"id", "signal", "why_it_matters", "platform_pitch", "country",
	"tags", "urgency", "refs", "timestamp",
}

// PostgresRepository persists signals and crisis cards into Postgres with pgvector.
type PostgresRepository struct {
	db         *sql.DB
	dimensions int
}

var (
	_ ports.SignalStore = (*PostgresRepository)(nil)
	_ ports.CardStore   = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB opened with the "postgres" driver.
// dimensions fixes the embedding column width for EnsureSchema.
func NewPostgresRepository(db *sql.DB, dimensions int) *PostgresRepository {
	return &PostgresRepository{db: db, dimensions: dimensions}
}

// EnsureSchema creates the vector extension and both tables when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("%w: postgres repository has no database", domain.ErrStore)
	}
	for _, stmt := range schemaStatements(r.dimensions) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure schema: %w", domain.ErrStore, err)
		}
	}
	return nil
}

// UpsertSignal inserts the signal or replaces every mutable column on conflict.
func (r *PostgresRepository) UpsertSignal(ctx context.Context, signal domain.Signal) error {
	if r.db == nil {
		return fmt.Errorf("%w: postgres repository has no database", domain.ErrStore)
	}

	query, args, err := buildSignalUpsert(signal)
	if err != nil {
		return fmt.Errorf("%w: build signal upsert %s: %w", domain.ErrStore, signal.ID, err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: upsert signal %s: %w", domain.ErrStore, signal.ID, err)
	}
	return nil
}

// UpsertCard inserts the card or replaces it on conflict.
func (r *PostgresRepository) UpsertCard(ctx context.Context, card domain.CrisisCard) error {
	if r.db == nil {
		return fmt.Errorf("%w: postgres repository has no database", domain.ErrStore)
	}

	query, args, err := buildCardUpsert(card)
	if err != nil {
		return fmt.Errorf("%w: build card upsert %s: %w", domain.ErrStore, card.ID, err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: upsert card %s: %w", domain.ErrStore, card.ID, err)
	}
	return nil
}

func buildSignalUpsert(signal domain.Signal) (string, []interface{}, error) {
	entities := signal.Entities
	if entities == nil {
		entities = []domain.Entity{}
	}
	entitiesJSON, err := json.Marshal(entities)
	if err != nil {
		return "", nil, fmt.Errorf("marshal entities: %w", err)
	}
	metadataJSON, err := json.Marshal(signal.Metadata)
	if err != nil {
		return "", nil, fmt.Errorf("marshal metadata: %w", err)
	}

	return psql.Insert(signalsTable).
		Columns(signalColumns...).
		Values(
			signal.ID,
			string(signal.Type),
			signal.Country,
			signal.Topic,
			signal.Content,
			string(entitiesJSON),
			pgvector.NewVector(signal.Embedding),
			signal.Urgency,
			string(metadataJSON),
			signal.CreatedAt,
			signal.UpdatedAt,
		).
		Suffix(conflictClause(signalColumns, "created_at")).
		ToSql()
}

func buildCardUpsert(card domain.CrisisCard) (string, []interface{}, error) {
	return psql.Insert(cardsTable).
		Columns(cardColumns...).
		Values(
			card.ID,
			card.Signal,
			card.WhyItMatters,
			card.PlatformPitch,
			card.Country,
			pq.StringArray(nonNil(card.Tags)),
			card.Urgency,
			pq.StringArray(nonNil(card.Refs)),
			card.Timestamp,
		).
		Suffix(conflictClause(cardColumns)).
		ToSql()
}

// conflictClause overwrites every column except the key and the kept ones.
func conflictClause(columns []string, keep ...string) string {
	skip := map[string]bool{"id": true}
	for _, k := range keep {
		skip[k] = true
	}

	sets := make([]string, 0, len(columns))
	for _, col := range columns {
		if skip[col] {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	return "ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func schemaStatements(dimensions int) []string {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			country     TEXT NOT NULL,
			topic       TEXT NOT NULL,
			content     TEXT NOT NULL,
			entities    JSONB NOT NULL DEFAULT '[]',
			embedding   vector(%d) NOT NULL,
			urgency     DOUBLE PRECISION NOT NULL CHECK (urgency >= 0),
			metadata    JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, signalsTable, dimensions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id              TEXT PRIMARY KEY,
			signal          TEXT NOT NULL,
			why_it_matters  TEXT NOT NULL DEFAULT '',
			platform_pitch  TEXT NOT NULL DEFAULT '',
			country         TEXT NOT NULL,
			tags            TEXT[] NOT NULL DEFAULT '{}',
			urgency         DOUBLE PRECISION NOT NULL CHECK (urgency >= 0),
			refs            TEXT[] NOT NULL DEFAULT '{}',
			timestamp       TIMESTAMPTZ NOT NULL
		)`, cardsTable),
	}
}
