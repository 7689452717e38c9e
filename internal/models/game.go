package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaffleStatus is the stored lifecycle state of a game.
// The contract the backend mirrors encodes Active as 1 and Ended as 0.
type RaffleStatus uint8

const (
	RaffleStatusEnded  RaffleStatus = 0
	RaffleStatusActive RaffleStatus = 1
)

// GameSchemaVersion is the current games document schema. Older single-game
// documents (no gameId, narrower counters) are not silently reinterpreted;
// loading rejects unknown versions.
const GameSchemaVersion = 2

// GlobalState is the singleton raffle registry record: the next game id
// counter and the wallet authorized to open games and sweep funds.
type GlobalState struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	GameCount uint64             `bson:"gameCount" json:"gameCount"`
	Owner     string             `bson:"owner" json:"owner"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Game is one raffle: immutable configuration plus the mutable sold count
// and status. Games are never deleted; an Ended game stays as history.
type Game struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	GameID           uint64             `bson:"gameId" json:"gameId"`
	TicketPrice      uint64             `bson:"ticketPrice" json:"ticketPrice"`
	SoldTicketCount  uint64             `bson:"soldTicketCount" json:"soldTicketCount"`
	TotalTicketCount uint64             `bson:"totalTicketCount" json:"totalTicketCount"`
	RaffleStatus     RaffleStatus       `bson:"raffleStatus" json:"raffleStatus"`
	// NFTContractAddr is nullable: historical contract variants attached the
	// prize collection after the game was opened via a receive notification.
	NFTContractAddr  *string            `bson:"nftContractAddr" json:"nftContractAddr"`
	NFTTokenID       string             `bson:"nftTokenId" json:"nftTokenId"`
	Owner            string             `bson:"owner" json:"owner"`
	CollectionWallet string             `bson:"collectionWallet" json:"collectionWallet"`
	EndTime          uint64             `bson:"endTime" json:"endTime"` // ms since epoch
	SchemaVersion    int                `bson:"schemaVersion" json:"-"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

var (
	ErrUnknownSchemaVersion = errors.New("game document has an unknown schema version")
	ErrInvalidRaffleStatus  = errors.New("game document has an invalid raffle status")
)

// Validate checks a loaded game document before it is used. Documents
// written by incompatible contract iterations fail here instead of being
// reinterpreted.
func (g *Game) Validate() error {
	if g.SchemaVersion != GameSchemaVersion {
		return ErrUnknownSchemaVersion
	}
	if g.RaffleStatus != RaffleStatusActive && g.RaffleStatus != RaffleStatusEnded {
		return ErrInvalidRaffleStatus
	}
	return nil
}

// HasPrizeRef reports whether the prize collection address is attached.
func (g *Game) HasPrizeRef() bool {
	return g.NFTContractAddr != nil && *g.NFTContractAddr != ""
}
