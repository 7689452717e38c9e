package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"log/slog"

	"github.com/google/uuid"
	"github.com/raffleworks/raffle-backend/internal/models"
	"github.com/raffleworks/raffle-backend/internal/repositories"
	"github.com/raffleworks/raffle-backend/pkg/chain"
	"github.com/raffleworks/raffle-backend/pkg/custody"
)

// ChainClient is the value-transfer collaborator: bank sends, balances and
// block metadata. Implemented by pkg/chain.Client; tests supply fakes.
type ChainClient interface {
	LatestBlock(ctx context.Context) (chain.Block, error)
	Send(ctx context.Context, to string, amount uint64, denom string) (string, error)
	Balance(ctx context.Context, address, denom string) (uint64, error)
}

// CustodyClient is the NFT custody collaborator. Implemented by
// pkg/custody.Client; tests supply fakes.
type CustodyClient interface {
	OwnerOf(ctx context.Context, contractAddr, tokenID string) (custody.Ownership, error)
	TransferNFT(ctx context.Context, contractAddr, tokenID, recipient string) (string, error)
}

// EventPublisher receives per-game lifecycle events for live subscribers.
type EventPublisher interface {
	Publish(gameID uint64, event string, payload any)
}

// GameServiceConfig carries the registry-level settings the service needs.
type GameServiceConfig struct {
	// TreasuryAddress is the on-chain address this backend controls. The
	// prize must be owned by or approved to it before a game opens.
	TreasuryAddress string
	// Denom is the settlement denomination ticket deposits arrive in.
	Denom string
	// RestrictSettle requires the registry owner to trigger settlement. The
	// observed multi-game contract accepts settlement from anyone, so this
	// defaults to off; an earlier variant required the owner.
	RestrictSettle bool
}

// GameService implements the raffle lifecycle: opening games, ticket
// allocation, winner selection with settlement, and operator fund sweeps.
//
// The contract this service mirrors ran under a host that serialized all
// transactions. Outside that host the contiguous-ticket-numbering and
// one-shot-settlement invariants need explicit mutual exclusion, so every
// mutating operation holds a per-game-id lock for its full duration.
type GameService struct {
	globalRepo   repositories.GlobalStateRepository
	gameRepo     repositories.GameRepository
	ticketRepo   repositories.TicketRepository
	transferRepo repositories.TransferRepository
	chain        ChainClient
	custody      CustodyClient
	events       EventPublisher
	cfg          GameServiceConfig

	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

// NewGameService creates a new GameService
func NewGameService(
	globalRepo repositories.GlobalStateRepository,
	gameRepo repositories.GameRepository,
	ticketRepo repositories.TicketRepository,
	transferRepo repositories.TransferRepository,
	chainClient ChainClient,
	custodyClient CustodyClient,
	cfg GameServiceConfig,
) *GameService {
	return &GameService{
		globalRepo:   globalRepo,
		gameRepo:     gameRepo,
		ticketRepo:   ticketRepo,
		transferRepo: transferRepo,
		chain:        chainClient,
		custody:      custodyClient,
		cfg:          cfg,
		locks:        make(map[uint64]*sync.Mutex),
	}
}

// WithEvents sets the event publisher for live game feeds.
func (s *GameService) WithEvents(events EventPublisher) {
	s.events = events
}

// lockGame returns the mutex for a game id, creating it on first use.
// Game records are never deleted, so neither are their locks.
func (s *GameService) lockGame(gameID uint64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[gameID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[gameID] = lock
	}
	return lock
}

func (s *GameService) publish(gameID uint64, event string, payload any) {
	if s.events != nil {
		s.events.Publish(gameID, event, payload)
	}
}

// EnsureRegistry initializes the registry record on first startup. An
// existing registry is left untouched, including its owner.
func (s *GameService) EnsureRegistry(ctx context.Context, owner string) error {
	_, err := s.globalRepo.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("load registry: %w", err)
	}
	if owner == "" {
		return errors.New("registry owner is not configured")
	}
	if err := s.globalRepo.Init(ctx, &models.GlobalState{GameCount: 0, Owner: owner}); err != nil {
		return fmt.Errorf("init registry: %w", err)
	}
	slog.Info("raffle registry initialized", "owner", owner)
	return nil
}

// Registry returns the registry summary: game count and owner.
func (s *GameService) Registry(ctx context.Context) (*models.GlobalState, error) {
	state, err := s.globalRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return state, nil
}

// OpenGameParams carries the immutable configuration of a new game.
type OpenGameParams struct {
	TicketPrice      uint64
	TotalTicketCount uint64
	NFTContractAddr  string
	NFTTokenID       string
	CollectionWallet string
	EndTime          uint64 // ms since epoch
}

// OpenGame opens a new raffle. Only the registry owner may open games, and
// the prize must already be transferable by the treasury.
func (s *GameService) OpenGame(ctx context.Context, caller string, params OpenGameParams) (*models.Game, error) {
	state, err := s.globalRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if caller != state.Owner {
		return nil, ErrUnauthorized
	}
	if params.TicketPrice == 0 || params.TotalTicketCount == 0 {
		return nil, errors.New("ticket price and total ticket count must be positive")
	}
	if params.NFTContractAddr == "" {
		return nil, ErrMissingNftContractAddr
	}

	ownership, err := s.custody.OwnerOf(ctx, params.NFTContractAddr, params.NFTTokenID)
	if err != nil {
		return nil, fmt.Errorf("query prize ownership: %w", err)
	}
	if !ownership.CanTransfer(s.cfg.TreasuryAddress) {
		return nil, ErrCantAccessPrize
	}

	gameID, err := s.globalRepo.NextGameID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate game id: %w", err)
	}

	nftAddr := params.NFTContractAddr
	game := &models.Game{
		GameID:           gameID,
		TicketPrice:      params.TicketPrice,
		SoldTicketCount:  0,
		TotalTicketCount: params.TotalTicketCount,
		RaffleStatus:     models.RaffleStatusActive,
		NFTContractAddr:  &nftAddr,
		NFTTokenID:       params.NFTTokenID,
		Owner:            caller,
		CollectionWallet: params.CollectionWallet,
		EndTime:          params.EndTime,
	}
	if err := s.gameRepo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	slog.Info("game opened",
		"gameId", gameID,
		"ticketPrice", params.TicketPrice,
		"totalTickets", params.TotalTicketCount,
		"nftTokenId", params.NFTTokenID,
		"endTime", params.EndTime)
	s.publish(gameID, "game_opened", game)

	return game, nil
}

// EnterResult reports the outcome of a ticket purchase.
type EnterResult struct {
	GameID            uint64   `json:"gameId"`
	StartTicketNumber uint64   `json:"startTicketNumber"` // one-based
	TicketNumbers     []uint64 `json:"ticketNumbers"`     // one-based
	Refund            uint64   `json:"refund"`
	RefundTxRef       string   `json:"refundTxRef,omitempty"`
}

// EnterGame converts a deposit into tickets: floor(deposit / price) tickets,
// clamped to remaining capacity, with the exact remainder refunded. Ticket
// numbers are assigned contiguously in commit order.
func (s *GameService) EnterGame(ctx context.Context, gameID uint64, wallet string, deposit uint64) (*EnterResult, error) {
	lock := s.lockGame(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	block, err := s.chain.LatestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("query block: %w", err)
	}

	if game.RaffleStatus == models.RaffleStatusEnded {
		return nil, ErrRaffleEnded
	}
	if game.EndTime <= block.TimeMillis() {
		return nil, ErrRaffleTimeOver
	}
	if game.SoldTicketCount >= game.TotalTicketCount {
		return nil, ErrRaffleSoldOut
	}
	if deposit < game.TicketPrice {
		return nil, ErrIncorrectFunds
	}

	purchasable := deposit / game.TicketPrice
	remaining := game.TotalTicketCount - game.SoldTicketCount
	granted := purchasable
	if granted > remaining {
		granted = remaining
	}
	// Both checks above guarantee purchasable >= 1 and remaining >= 1, so
	// granted >= 1 here.

	start := game.SoldTicketCount
	tickets := make([]*models.Ticket, 0, granted)
	numbers := make([]uint64, 0, granted)
	for i := uint64(0); i < granted; i++ {
		tickets = append(tickets, &models.Ticket{
			GameID:      gameID,
			TicketIndex: start + i,
			Wallet:      wallet,
		})
		numbers = append(numbers, start+1+i)
	}

	if err := s.ticketRepo.CreateMany(ctx, tickets); err != nil {
		return nil, fmt.Errorf("record tickets: %w", err)
	}
	if err := s.ticketRepo.AppendWalletTickets(ctx, gameID, wallet, numbers); err != nil {
		return nil, fmt.Errorf("record wallet tickets: %w", err)
	}

	game.SoldTicketCount += granted
	if err := s.gameRepo.Update(ctx, game); err != nil {
		return nil, fmt.Errorf("update game: %w", err)
	}

	result := &EnterResult{
		GameID:            gameID,
		StartTicketNumber: start + 1,
		TicketNumbers:     numbers,
		Refund:            deposit - game.TicketPrice*granted,
	}

	if result.Refund > 0 {
		txRef, err := s.chain.Send(ctx, wallet, result.Refund, s.cfg.Denom)
		if err != nil {
			// State is committed; the refund is retried out of band from the
			// transfer record rather than unwinding the purchase.
			slog.Error("refund send failed", "gameId", gameID, "wallet", wallet, "refund", result.Refund, "error", err)
		}
		result.RefundTxRef = txRef
		transfer := &models.Transfer{
			Ref:       uuid.NewString(),
			Kind:      models.TransferKindBank,
			Reason:    models.TransferReasonRefund,
			GameID:    gameID,
			Recipient: wallet,
			Amount:    result.Refund,
			Denom:     s.cfg.Denom,
			TxRef:     txRef,
		}
		if err := s.transferRepo.Create(ctx, transfer); err != nil {
			slog.Error("failed to record refund transfer", "gameId", gameID, "error", err)
		}
	}

	slog.Info("tickets purchased",
		"gameId", gameID,
		"wallet", wallet,
		"startTicketNumber", result.StartTicketNumber,
		"count", granted,
		"refund", result.Refund)
	s.publish(gameID, "ticket_purchased", result)

	return result, nil
}

// SettlementResult reports the outcome of a settlement.
type SettlementResult struct {
	GameID       uint64 `json:"gameId"`
	WinnerTicket uint64 `json:"winnerTicket"` // one-based
	WinnerFound  bool   `json:"winnerFound"`
	Winner       string `json:"winner,omitempty"`
	Recipient    string `json:"recipient"`
	PrizeTxRef   string `json:"prizeTxRef,omitempty"`
}

// SettleGame draws the winning ticket for a game past its end time and
// transfers the prize: to the ticket owner when the drawn index was sold,
// otherwise to the game's collection wallet. The status flips to Ended in
// the same guarded step, so settlement happens at most once per game.
func (s *GameService) SettleGame(ctx context.Context, caller string, gameID uint64) (*SettlementResult, error) {
	lock := s.lockGame(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if s.cfg.RestrictSettle {
		state, err := s.globalRepo.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("load registry: %w", err)
		}
		if caller != state.Owner {
			return nil, ErrUnauthorized
		}
	}

	block, err := s.chain.LatestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("query block: %w", err)
	}

	if game.RaffleStatus == models.RaffleStatusEnded {
		return nil, ErrRaffleEnded
	}
	if game.EndTime > block.TimeMillis() {
		return nil, ErrCantFinishGame
	}
	if !game.HasPrizeRef() {
		return nil, ErrMissingNftContractAddr
	}

	winnerIndex := WinnerIndex(game.TotalTicketCount, game.SoldTicketCount, block)

	result := &SettlementResult{
		GameID:       gameID,
		WinnerTicket: winnerIndex + 1,
	}
	reason := models.TransferReasonFallback
	recipient := game.CollectionWallet

	ticket, err := s.ticketRepo.FindByIndex(ctx, gameID, winnerIndex)
	switch {
	case err == nil:
		result.WinnerFound = true
		result.Winner = ticket.Wallet
		recipient = ticket.Wallet
		reason = models.TransferReasonPrize
	case errors.Is(err, repositories.ErrNotFound):
		// Drawn index was never sold: the prize falls back to the
		// collection wallet.
	default:
		return nil, fmt.Errorf("resolve winner ticket: %w", err)
	}
	result.Recipient = recipient

	// Commit the terminal status before dispatching the transfer, matching
	// the host contract where messages execute after state commit. A failed
	// dispatch is retried from the transfer record, never by re-settling.
	game.RaffleStatus = models.RaffleStatusEnded
	if err := s.gameRepo.Update(ctx, game); err != nil {
		return nil, fmt.Errorf("end game: %w", err)
	}

	txRef, err := s.custody.TransferNFT(ctx, *game.NFTContractAddr, game.NFTTokenID, recipient)
	if err != nil {
		slog.Error("prize transfer failed", "gameId", gameID, "recipient", recipient, "error", err)
	}
	result.PrizeTxRef = txRef

	transfer := &models.Transfer{
		Ref:             uuid.NewString(),
		Kind:            models.TransferKindNFT,
		Reason:          reason,
		GameID:          gameID,
		Recipient:       recipient,
		NFTContractAddr: *game.NFTContractAddr,
		NFTTokenID:      game.NFTTokenID,
		TxRef:           txRef,
	}
	if err := s.transferRepo.Create(ctx, transfer); err != nil {
		slog.Error("failed to record prize transfer", "gameId", gameID, "error", err)
	}

	slog.Info("game settled",
		"gameId", gameID,
		"winnerTicket", result.WinnerTicket,
		"winnerFound", result.WinnerFound,
		"recipient", recipient)
	s.publish(gameID, "game_settled", result)

	return result, nil
}

// SettleExpired settles every active game whose end time has passed. Used by
// the auto-settlement scheduler; individual failures are logged and skipped.
func (s *GameService) SettleExpired(ctx context.Context, caller string) int {
	games, err := s.gameRepo.FindByStatus(ctx, models.RaffleStatusActive)
	if err != nil {
		slog.Error("failed to list active games", "error", err)
		return 0
	}

	settled := 0
	for _, game := range games {
		if _, err := s.SettleGame(ctx, caller, game.GameID); err != nil {
			if !errors.Is(err, ErrCantFinishGame) && !errors.Is(err, ErrRaffleEnded) {
				slog.Error("auto settlement failed", "gameId", game.GameID, "error", err)
			}
			continue
		}
		settled++
	}
	return settled
}

// SweepFunds sends an arbitrary amount to the given wallet. Owner-gated and
// otherwise stateless: the chain gateway, not this service, rejects sweeps
// beyond the treasury balance.
func (s *GameService) SweepFunds(ctx context.Context, caller, to, denom string, amount uint64) (*models.Transfer, error) {
	state, err := s.globalRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if caller != state.Owner {
		return nil, ErrUnauthorized
	}

	txRef, err := s.chain.Send(ctx, to, amount, denom)
	if err != nil {
		return nil, fmt.Errorf("send funds: %w", err)
	}

	transfer := &models.Transfer{
		Ref:       uuid.NewString(),
		Kind:      models.TransferKindBank,
		Reason:    models.TransferReasonSweep,
		Recipient: to,
		Amount:    amount,
		Denom:     denom,
		TxRef:     txRef,
	}
	if err := s.transferRepo.Create(ctx, transfer); err != nil {
		slog.Error("failed to record sweep transfer", "error", err)
	}

	slog.Info("funds swept", "to", to, "amount", amount, "denom", denom)
	return transfer, nil
}

// GetGame returns one game's full state.
func (s *GameService) GetGame(ctx context.Context, gameID uint64) (*models.Game, error) {
	return s.loadGame(ctx, gameID)
}

// ListGames returns all games, oldest first.
func (s *GameService) ListGames(ctx context.Context) ([]*models.Game, error) {
	return s.gameRepo.FindAll(ctx)
}

// WalletTickets returns the one-based ticket numbers a wallet holds in a
// game; an empty list when it holds none.
func (s *GameService) WalletTickets(ctx context.Context, gameID uint64, wallet string) ([]uint64, error) {
	return s.ticketRepo.FindWalletTickets(ctx, gameID, wallet)
}

// TreasuryBalance returns the treasury's settlement-denom balance.
func (s *GameService) TreasuryBalance(ctx context.Context) (uint64, string, error) {
	balance, err := s.chain.Balance(ctx, s.cfg.TreasuryAddress, s.cfg.Denom)
	if err != nil {
		return 0, "", fmt.Errorf("query balance: %w", err)
	}
	return balance, s.cfg.Denom, nil
}

func (s *GameService) loadGame(ctx context.Context, gameID uint64) (*models.Game, error) {
	game, err := s.gameRepo.FindByGameID(ctx, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrWrongGameID
		}
		return nil, fmt.Errorf("load game %d: %w", gameID, err)
	}
	return game, nil
}
