package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/snapeat/internal/users/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository interface {
	GetUser(ctx context.Context, uid string) (*domain.User, error)
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) UserRepository {
	return &mongoRepository{
		collection: db.Collection("users"),
	}
}

func (m *mongoRepository) GetUser(ctx context.Context, uid string) (*domain.User, error) {
	var user domain.User

	err := m.collection.FindOne(ctx, bson.M{"_id": uid}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}
