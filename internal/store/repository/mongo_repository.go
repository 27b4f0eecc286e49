package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/snapeat/internal/store/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// sessionTTL is how long an untouched session document survives.
const sessionTTL = 90 * 24 * time.Hour

type sessionDocument struct {
	SessionID       string `bson:"session_id"`
	domain.Snapshot `bson:",inline"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) SessionRepository {
	return &mongoRepository{
		collection: db.Collection("sessions"),
	}
}

func (m *mongoRepository) GetSnapshot(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	var doc sessionDocument

	err := m.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Snapshot{}, ErrSessionNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("failed to get session: %w", err)
	}

	return doc.Snapshot.Normalize(), nil
}

func (m *mongoRepository) SaveSnapshot(ctx context.Context, sessionID string, snap domain.Snapshot) error {
	snap = snap.Normalize()
	now := time.Now()

	filter := bson.M{"session_id": sessionID}
	update := bson.M{
		"$set": bson.M{
			"cart_product":     snap.CartProduct,
			"favorite_product": snap.FavoriteProduct,
			"compare_products": snap.CompareProducts,
			"updated_at":       now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

func (m *mongoRepository) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(sessionTTL.Seconds())),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// EnsureIndexes creates the session indexes when repo is the mongo implementation.
func EnsureIndexes(ctx context.Context, repo SessionRepository) error {
	if m, ok := repo.(*mongoRepository); ok {
		return m.CreateIndexes(ctx)
	}
	return nil
}
