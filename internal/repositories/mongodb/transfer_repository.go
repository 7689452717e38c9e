package mongodb

import (
	"context"
	"time"

	"github.com/raffleworks/raffle-backend/internal/models"
	"github.com/raffleworks/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TransferRepository implements repositories.TransferRepository
type TransferRepository struct {
	collection *mongo.Collection
}

// NewTransferRepository creates a new TransferRepository
func NewTransferRepository(db *mongo.Database) repositories.TransferRepository {
	return &TransferRepository{
		collection: db.Collection("transfers"),
	}
}

// Create appends a transfer record
func (r *TransferRepository) Create(ctx context.Context, transfer *models.Transfer) error {
	transfer.CreatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, transfer)
	if err != nil {
		return err
	}
	transfer.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByGameID finds transfers for a game, oldest first
func (r *TransferRepository) FindByGameID(ctx context.Context, gameID uint64) ([]*models.Transfer, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"gameId": gameID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var transfers []*models.Transfer
	if err := cursor.All(ctx, &transfers); err != nil {
		return nil, err
	}
	if transfers == nil {
		transfers = []*models.Transfer{}
	}
	return transfers, nil
}
