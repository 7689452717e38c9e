package repositories

import (
	"context"

	"github.com/raffleworks/raffle-backend/internal/models"
)

// GlobalStateRepository manages the singleton registry record.
type GlobalStateRepository interface {
	// Get returns the registry record, or ErrNotFound when the registry has
	// never been initialized.
	Get(ctx context.Context) (*models.GlobalState, error)
	// Init writes the registry record once; it must not overwrite an
	// existing one.
	Init(ctx context.Context, state *models.GlobalState) error
	// NextGameID atomically increments the game counter and returns the new
	// value, which is the id of the game being opened.
	NextGameID(ctx context.Context) (uint64, error)
}

// GameRepository manages per-game raffle state.
type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	FindByGameID(ctx context.Context, gameID uint64) (*models.Game, error)
	Update(ctx context.Context, game *models.Game) error
	FindAll(ctx context.Context) ([]*models.Game, error)
	FindByStatus(ctx context.Context, status models.RaffleStatus) ([]*models.Game, error)
}

// TicketRepository manages ticket ownership rows and the derived
// wallet-tickets index.
type TicketRepository interface {
	// CreateMany inserts ticket rows for a purchase. The unique
	// (gameId, ticketIndex) constraint makes double allocation an error.
	CreateMany(ctx context.Context, tickets []*models.Ticket) error
	// FindByIndex resolves a zero-based ticket index to its row, or
	// ErrNotFound when the index was never sold.
	FindByIndex(ctx context.Context, gameID, ticketIndex uint64) (*models.Ticket, error)
	// AppendWalletTickets appends one-based ticket numbers to the wallet's
	// list for the game, creating the list on first purchase.
	AppendWalletTickets(ctx context.Context, gameID uint64, wallet string, numbers []uint64) error
	// FindWalletTickets returns the wallet's one-based ticket numbers for a
	// game; an empty slice when the wallet holds none.
	FindWalletTickets(ctx context.Context, gameID uint64, wallet string) ([]uint64, error)
}

// TransferRepository records outbound transfer instructions.
type TransferRepository interface {
	Create(ctx context.Context, transfer *models.Transfer) error
	FindByGameID(ctx context.Context, gameID uint64) ([]*models.Transfer, error)
}

// AdminUserRepository manages operator accounts.
type AdminUserRepository interface {
	Create(ctx context.Context, user *models.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Count(ctx context.Context) (int64, error)
}
