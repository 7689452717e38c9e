// Package memory provides in-memory repository implementations used by the
// test suites. They honor the same contracts as the MongoDB implementations,
// including ErrNotFound and the unique (gameId, ticketIndex) constraint.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/raffleworks/raffle-backend/internal/models"
	"github.com/raffleworks/raffle-backend/internal/repositories"
)

// GlobalStateRepository is an in-memory repositories.GlobalStateRepository.
type GlobalStateRepository struct {
	mu    sync.Mutex
	state *models.GlobalState
}

func NewGlobalStateRepository() *GlobalStateRepository {
	return &GlobalStateRepository{}
}

func (r *GlobalStateRepository) Get(ctx context.Context) (*models.GlobalState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil, repositories.ErrNotFound
	}
	copied := *r.state
	return &copied, nil
}

func (r *GlobalStateRepository) Init(ctx context.Context, state *models.GlobalState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != nil {
		return errors.New("registry already initialized")
	}
	state.CreatedAt = time.Now()
	state.UpdatedAt = time.Now()
	copied := *state
	r.state = &copied
	return nil
}

func (r *GlobalStateRepository) NextGameID(ctx context.Context) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return 0, repositories.ErrNotFound
	}
	r.state.GameCount++
	r.state.UpdatedAt = time.Now()
	return r.state.GameCount, nil
}

// GameRepository is an in-memory repositories.GameRepository.
type GameRepository struct {
	mu    sync.Mutex
	games map[uint64]*models.Game
}

func NewGameRepository() *GameRepository {
	return &GameRepository{games: make(map[uint64]*models.Game)}
}

func (r *GameRepository) Create(ctx context.Context, game *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[game.GameID]; ok {
		return errors.New("duplicate game id")
	}
	game.SchemaVersion = models.GameSchemaVersion
	game.CreatedAt = time.Now()
	game.UpdatedAt = time.Now()
	copied := *game
	r.games[game.GameID] = &copied
	return nil
}

func (r *GameRepository) FindByGameID(ctx context.Context, gameID uint64) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[gameID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if err := game.Validate(); err != nil {
		return nil, err
	}
	copied := *game
	return &copied, nil
}

func (r *GameRepository) Update(ctx context.Context, game *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[game.GameID]; !ok {
		return repositories.ErrNotFound
	}
	game.UpdatedAt = time.Now()
	copied := *game
	r.games[game.GameID] = &copied
	return nil
}

func (r *GameRepository) FindAll(ctx context.Context) ([]*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	games := make([]*models.Game, 0, len(r.games))
	for _, game := range r.games {
		copied := *game
		games = append(games, &copied)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].GameID < games[j].GameID })
	return games, nil
}

func (r *GameRepository) FindByStatus(ctx context.Context, status models.RaffleStatus) ([]*models.Game, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	games := make([]*models.Game, 0, len(all))
	for _, game := range all {
		if game.RaffleStatus == status {
			games = append(games, game)
		}
	}
	return games, nil
}

type ticketKey struct {
	gameID uint64
	index  uint64
}

type walletKey struct {
	gameID uint64
	wallet string
}

// TicketRepository is an in-memory repositories.TicketRepository.
type TicketRepository struct {
	mu            sync.Mutex
	tickets       map[ticketKey]*models.Ticket
	walletTickets map[walletKey][]uint64
}

func NewTicketRepository() *TicketRepository {
	return &TicketRepository{
		tickets:       make(map[ticketKey]*models.Ticket),
		walletTickets: make(map[walletKey][]uint64),
	}
}

func (r *TicketRepository) CreateMany(ctx context.Context, tickets []*models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range tickets {
		key := ticketKey{ticket.GameID, ticket.TicketIndex}
		if _, ok := r.tickets[key]; ok {
			return errors.New("duplicate ticket index")
		}
	}
	now := time.Now()
	for _, ticket := range tickets {
		ticket.CreatedAt = now
		copied := *ticket
		r.tickets[ticketKey{ticket.GameID, ticket.TicketIndex}] = &copied
	}
	return nil
}

func (r *TicketRepository) FindByIndex(ctx context.Context, gameID, ticketIndex uint64) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[ticketKey{gameID, ticketIndex}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (r *TicketRepository) AppendWalletTickets(ctx context.Context, gameID uint64, wallet string, numbers []uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := walletKey{gameID, wallet}
	r.walletTickets[key] = append(r.walletTickets[key], numbers...)
	return nil
}

func (r *TicketRepository) FindWalletTickets(ctx context.Context, gameID uint64, wallet string) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	numbers := r.walletTickets[walletKey{gameID, wallet}]
	out := make([]uint64, len(numbers))
	copy(out, numbers)
	return out, nil
}

// TransferRepository is an in-memory repositories.TransferRepository.
type TransferRepository struct {
	mu        sync.Mutex
	transfers []*models.Transfer
}

func NewTransferRepository() *TransferRepository {
	return &TransferRepository{}
}

func (r *TransferRepository) Create(ctx context.Context, transfer *models.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	transfer.CreatedAt = time.Now()
	copied := *transfer
	r.transfers = append(r.transfers, &copied)
	return nil
}

func (r *TransferRepository) FindByGameID(ctx context.Context, gameID uint64) ([]*models.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	transfers := make([]*models.Transfer, 0)
	for _, transfer := range r.transfers {
		if transfer.GameID == gameID {
			copied := *transfer
			transfers = append(transfers, &copied)
		}
	}
	return transfers, nil
}

// AdminUserRepository is an in-memory repositories.AdminUserRepository.
type AdminUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.AdminUser
}

func NewAdminUserRepository() *AdminUserRepository {
	return &AdminUserRepository{users: make(map[string]*models.AdminUser)}
}

func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return errors.New("duplicate email")
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	copied := *user
	r.users[user.Email] = &copied
	return nil
}

func (r *AdminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *AdminUserRepository) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}
