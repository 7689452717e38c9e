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

// TicketRepository implements repositories.TicketRepository
type TicketRepository struct {
	tickets       *mongo.Collection
	walletTickets *mongo.Collection
}

// NewTicketRepository creates a new TicketRepository and ensures the unique
// (gameId, ticketIndex) index that backs the no-double-allocation invariant.
func NewTicketRepository(db *mongo.Database) repositories.TicketRepository {
	tickets := db.Collection("tickets")
	_, _ = tickets.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "gameId", Value: 1}, {Key: "ticketIndex", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	walletTickets := db.Collection("wallet_tickets")
	_, _ = walletTickets.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "gameId", Value: 1}, {Key: "wallet", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return &TicketRepository{tickets: tickets, walletTickets: walletTickets}
}

// CreateMany inserts ticket rows for one purchase
func (r *TicketRepository) CreateMany(ctx context.Context, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(tickets))
	now := time.Now()
	for _, ticket := range tickets {
		ticket.CreatedAt = now
		docs = append(docs, ticket)
	}
	// Ordered inserts: a duplicate index aborts the batch instead of
	// skipping over it silently.
	_, err := r.tickets.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return err
}

// FindByIndex resolves a zero-based ticket index
func (r *TicketRepository) FindByIndex(ctx context.Context, gameID, ticketIndex uint64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.tickets.FindOne(ctx, bson.M{"gameId": gameID, "ticketIndex": ticketIndex}).Decode(&ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// AppendWalletTickets appends one-based ticket numbers to the wallet's list
func (r *TicketRepository) AppendWalletTickets(ctx context.Context, gameID uint64, wallet string, numbers []uint64) error {
	if len(numbers) == 0 {
		return nil
	}
	filter := bson.M{"gameId": gameID, "wallet": wallet}
	update := bson.M{
		"$push": bson.M{"tickets": bson.M{"$each": numbers}},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	_, err := r.walletTickets.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// FindWalletTickets returns the wallet's one-based ticket numbers for a game
func (r *TicketRepository) FindWalletTickets(ctx context.Context, gameID uint64, wallet string) ([]uint64, error) {
	var doc models.WalletTickets
	err := r.walletTickets.FindOne(ctx, bson.M{"gameId": gameID, "wallet": wallet}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []uint64{}, nil
		}
		return nil, err
	}
	if doc.Tickets == nil {
		doc.Tickets = []uint64{}
	}
	return doc.Tickets, nil
}
