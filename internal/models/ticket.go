package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ticket maps one zero-based ticket index in a game to the wallet that
// bought it. Indices are assigned contiguously and exactly once; a unique
// index on (gameId, ticketIndex) enforces the latter at the database level.
type Ticket struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	GameID      uint64             `bson:"gameId" json:"gameId"`
	TicketIndex uint64             `bson:"ticketIndex" json:"ticketIndex"`
	Wallet      string             `bson:"wallet" json:"wallet"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// WalletTickets is the derived secondary index: the ordered one-based ticket
// numbers a wallet holds in a game (number = index + 1). It is appended in
// the same purchase path that writes Ticket rows and must never be treated
// as the source of truth.
type WalletTickets struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	GameID    uint64             `bson:"gameId" json:"gameId"`
	Wallet    string             `bson:"wallet" json:"wallet"`
	Tickets   []uint64           `bson:"tickets" json:"tickets"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
