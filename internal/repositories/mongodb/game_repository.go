package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/raffleworks/raffle-backend/internal/models"
	"github.com/raffleworks/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GameRepository implements repositories.GameRepository
type GameRepository struct {
	collection *mongo.Collection
}

// NewGameRepository creates a new GameRepository and ensures the unique
// index on gameId.
func NewGameRepository(db *mongo.Database) repositories.GameRepository {
	collection := db.Collection("games")
	_, _ = collection.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "gameId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return &GameRepository{collection: collection}
}

// Create creates a new game
func (r *GameRepository) Create(ctx context.Context, game *models.Game) error {
	game.SchemaVersion = models.GameSchemaVersion
	game.CreatedAt = time.Now()
	game.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, game)
	if err != nil {
		return err
	}
	game.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByGameID finds a game by its registry-assigned id. Documents written
// by incompatible schema iterations are rejected here rather than decoded
// into the wrong shape.
func (r *GameRepository) FindByGameID(ctx context.Context, gameID uint64) (*models.Game, error) {
	var game models.Game
	err := r.collection.FindOne(ctx, bson.M{"gameId": gameID}).Decode(&game)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	if err := game.Validate(); err != nil {
		return nil, err
	}
	return &game, nil
}

// Update updates a game
func (r *GameRepository) Update(ctx context.Context, game *models.Game) error {
	game.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"gameId": game.GameID}, game)
	return err
}

// FindAll finds all games, oldest first
func (r *GameRepository) FindAll(ctx context.Context) ([]*models.Game, error) {
	return r.find(ctx, bson.M{})
}

// FindByStatus finds games by raffle status
func (r *GameRepository) FindByStatus(ctx context.Context, status models.RaffleStatus) ([]*models.Game, error) {
	return r.find(ctx, bson.M{"raffleStatus": status})
}

func (r *GameRepository) find(ctx context.Context, filter bson.M) ([]*models.Game, error) {
	opts := options.Find().SetSort(bson.M{"gameId": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var games []*models.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, err
	}
	if games == nil {
		games = []*models.Game{}
	}
	return games, nil
}
