package storage

import (
	"context"
	"slices"
	"sync"

	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

// MemoryRepository keeps signals and cards in process memory.
// It backs dry runs and tests; upsert semantics match the database adapters.
type MemoryRepository struct {
	mu      sync.RWMutex
	signals map[string]domain.Signal
	cards   map[string]domain.CrisisCard
}

var (
	_ ports.SignalStore = (*MemoryRepository)(nil)
	_ ports.CardStore   = (*MemoryRepository)(nil)
)

// NewMemoryRepository builds an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		signals: map[string]domain.Signal{},
		cards:   map[string]domain.CrisisCard{},
	}
}

// UpsertSignal replaces every mutable field; CreatedAt survives from the first insert.
func (r *MemoryRepository) UpsertSignal(ctx context.Context, signal domain.Signal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneSignal(signal)
	if prev, ok := r.signals[signal.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
	}
	r.signals[signal.ID] = stored
	return nil
}

// UpsertCard replaces the card stored under the same id.
func (r *MemoryRepository) UpsertCard(ctx context.Context, card domain.CrisisCard) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	card.Tags = slices.Clone(card.Tags)
	card.Refs = slices.Clone(card.Refs)
	r.cards[card.ID] = card
	return nil
}

// Signal returns a copy of the stored signal.
func (r *MemoryRepository) Signal(id string) (domain.Signal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.signals[id]
	if !ok {
		return domain.Signal{}, false
	}
	return cloneSignal(s), true
}

// Card returns a copy of the stored card.
func (r *MemoryRepository) Card(id string) (domain.CrisisCard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cards[id]
	if !ok {
		return domain.CrisisCard{}, false
	}
	c.Tags = slices.Clone(c.Tags)
	c.Refs = slices.Clone(c.Refs)
	return c, true
}

// Counts reports how many signals and cards are stored.
func (r *MemoryRepository) Counts() (signals, cards int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.signals), len(r.cards)
}

func cloneSignal(s domain.Signal) domain.Signal {
	s.Entities = slices.Clone(s.Entities)
	s.Embedding = slices.Clone(s.Embedding)
	return s
}
