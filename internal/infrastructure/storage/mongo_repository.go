package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"PrismPipeline/internal/domain"
	"PrismPipeline/internal/ports"
)

const (
	// MongoSignalsCollection holds signals; the vector search index targets its "vector" field.
	MongoSignalsCollection = "vectors"
	// MongoCardsCollection holds crisis cards.
	MongoCardsCollection = "crisis_cards"
)

// MongoRepository persists signals and cards as MongoDB documents keyed by _id.
type MongoRepository struct {
	signals *mongo.Collection
	cards   *mongo.Collection
}

var (
	_ ports.SignalStore = (*MongoRepository)(nil)
	_ ports.CardStore   = (*MongoRepository)(nil)
)

// NewMongoRepository binds the two collections of db.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		signals: db.Collection(MongoSignalsCollection),
		cards:   db.Collection(MongoCardsCollection),
	}
}

// UpsertSignal $sets every mutable field; created_at is only written on insert.
func (r *MongoRepository) UpsertSignal(ctx context.Context, signal domain.Signal) error {
	update := bson.D{
		{Key: "$set", Value: signalDocument(signal)},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: signal.CreatedAt}}},
	}
	_, err := r.signals.UpdateOne(ctx, bson.D{{Key: "_id", Value: signal.ID}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: upsert signal %s: %w", domain.ErrStore, signal.ID, err)
	}
	return nil
}

// UpsertCard $sets the whole card under its id.
func (r *MongoRepository) UpsertCard(ctx context.Context, card domain.CrisisCard) error {
	update := bson.D{{Key: "$set", Value: cardDocument(card)}}
	_, err := r.cards.UpdateOne(ctx, bson.D{{Key: "_id", Value: card.ID}}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: upsert card %s: %w", domain.ErrStore, card.ID, err)
	}
	return nil
}

func signalDocument(s domain.Signal) bson.D {
	entities := s.Entities
	if entities == nil {
		entities = []domain.Entity{}
	}
	return bson.D{
		{Key: "type", Value: string(s.Type)},
		{Key: "country", Value: s.Country},
		{Key: "topic", Value: s.Topic},
		{Key: "content", Value: s.Content},
		{Key: "entities", Value: entities},
		{Key: "vector", Value: s.Embedding},
		{Key: "urgency", Value: s.Urgency},
		{Key: "metadata", Value: s.Metadata},
		{Key: "updated_at", Value: s.UpdatedAt},
	}
}

func cardDocument(c domain.CrisisCard) bson.D {
	return bson.D{
		{Key: "signal", Value: c.Signal},
		{Key: "why_it_matters", Value: c.WhyItMatters},
		{Key: "platform_pitch", Value: c.PlatformPitch},
		{Key: "country", Value: c.Country},
		{Key: "tags", Value: nonNil(c.Tags)},
		{Key: "urgency", Value: c.Urgency},
		{Key: "refs", Value: nonNil(c.Refs)},
		{Key: "timestamp", Value: c.Timestamp},
	}
}
