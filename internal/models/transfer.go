package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransferKind distinguishes fungible sends from NFT transfers.
type TransferKind string

const (
	TransferKindBank TransferKind = "BANK_SEND"
	TransferKindNFT  TransferKind = "NFT_TRANSFER"
)

// TransferReason records why an outbound instruction was emitted.
type TransferReason string

const (
	TransferReasonRefund   TransferReason = "REFUND"
	TransferReasonPrize    TransferReason = "PRIZE"
	TransferReasonFallback TransferReason = "PRIZE_FALLBACK"
	TransferReasonSweep    TransferReason = "SWEEP"
)

// Transfer is the append-only audit record of every outbound instruction the
// service emits: ticket refunds, the prize transfer at settlement (to the
// winner or to the collection wallet), and operator fund sweeps.
type Transfer struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Ref             string             `bson:"ref" json:"ref"`
	Kind            TransferKind       `bson:"kind" json:"kind"`
	Reason          TransferReason     `bson:"reason" json:"reason"`
	GameID          uint64             `bson:"gameId,omitempty" json:"gameId,omitempty"`
	Recipient       string             `bson:"recipient" json:"recipient"`
	Amount          uint64             `bson:"amount,omitempty" json:"amount,omitempty"`
	Denom           string             `bson:"denom,omitempty" json:"denom,omitempty"`
	NFTContractAddr string             `bson:"nftContractAddr,omitempty" json:"nftContractAddr,omitempty"`
	NFTTokenID      string             `bson:"nftTokenId,omitempty" json:"nftTokenId,omitempty"`
	TxRef           string             `bson:"txRef,omitempty" json:"txRef,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
