package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/raffleworks/raffle-backend/internal/models"
	"github.com/raffleworks/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GlobalStateRepository implements repositories.GlobalStateRepository
type GlobalStateRepository struct {
	collection *mongo.Collection
}

// NewGlobalStateRepository creates a new GlobalStateRepository
func NewGlobalStateRepository(db *mongo.Database) repositories.GlobalStateRepository {
	return &GlobalStateRepository{
		collection: db.Collection("global_state"),
	}
}

// Get returns the singleton registry record
func (r *GlobalStateRepository) Get(ctx context.Context) (*models.GlobalState, error) {
	var state models.GlobalState
	err := r.collection.FindOne(ctx, bson.M{}).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &state, nil
}

// Init writes the registry record once
func (r *GlobalStateRepository) Init(ctx context.Context, state *models.GlobalState) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("registry already initialized")
	}
	state.CreatedAt = time.Now()
	state.UpdatedAt = time.Now()
	_, err = r.collection.InsertOne(ctx, state)
	return err
}

// NextGameID atomically increments the game counter and returns the new value
func (r *GlobalStateRepository) NextGameID(ctx context.Context) (uint64, error) {
	update := bson.M{
		"$inc": bson.M{"gameCount": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var state models.GlobalState
	err := r.collection.FindOneAndUpdate(ctx, bson.M{}, update, opts).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, repositories.ErrNotFound
		}
		return 0, err
	}
	return state.GameCount, nil
}
