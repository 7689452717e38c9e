package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/raffleworks/raffle-backend/internal/middleware"
	"github.com/raffleworks/raffle-backend/internal/services"
)

// GameHandler handles raffle game HTTP requests
type GameHandler struct {
	gameService *services.GameService
}

// NewGameHandler creates a new GameHandler
func NewGameHandler(gameService *services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

// statusForError maps the service error taxonomy to HTTP statuses so
// clients can branch on cause.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrWrongGameID):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrRaffleEnded),
		errors.Is(err, services.ErrRaffleTimeOver),
		errors.Is(err, services.ErrRaffleSoldOut),
		errors.Is(err, services.ErrCantFinishGame):
		return http.StatusConflict
	case errors.Is(err, services.ErrIncorrectFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrCantAccessPrize),
		errors.Is(err, services.ErrMissingNftContractAddr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func parseGameID(c *gin.Context) (uint64, bool) {
	gameID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game id"})
		return 0, false
	}
	return gameID, true
}

// OpenGameRequest is the payload for POST /games
type OpenGameRequest struct {
	TicketPrice      uint64 `json:"ticketPrice" binding:"required,gt=0"`
	TotalTicketCount uint64 `json:"totalTicketCount" binding:"required,gt=0"`
	NFTContractAddr  string `json:"nftContractAddr" binding:"required"`
	NFTTokenID       string `json:"nftTokenId" binding:"required"`
	CollectionWallet string `json:"collectionWallet" binding:"required"`
	EndTime          uint64 `json:"endTime" binding:"required"` // ms since epoch
}

// OpenGame handles POST /games
func (h *GameHandler) OpenGame(c *gin.Context) {
	var request OpenGameRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.gameService.OpenGame(c.Request.Context(), middleware.CallerWallet(c), services.OpenGameParams{
		TicketPrice:      request.TicketPrice,
		TotalTicketCount: request.TotalTicketCount,
		NFTContractAddr:  request.NFTContractAddr,
		NFTTokenID:       request.NFTTokenID,
		CollectionWallet: request.CollectionWallet,
		EndTime:          request.EndTime,
	})
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, game)
}

// EnterGameRequest is the payload for POST /games/:id/enter
type EnterGameRequest struct {
	Wallet  string `json:"wallet" binding:"required"`
	Deposit uint64 `json:"deposit" binding:"required,gt=0"`
}

// EnterGame handles POST /games/:id/enter
func (h *GameHandler) EnterGame(c *gin.Context) {
	gameID, ok := parseGameID(c)
	if !ok {
		return
	}
	var request EnterGameRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.gameService.EnterGame(c.Request.Context(), gameID, request.Wallet, request.Deposit)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// SettleGame handles POST /games/:id/settle
func (h *GameHandler) SettleGame(c *gin.Context) {
	gameID, ok := parseGameID(c)
	if !ok {
		return
	}

	result, err := h.gameService.SettleGame(c.Request.Context(), middleware.CallerWallet(c), gameID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// SweepFundsRequest is the payload for POST /sweep
type SweepFundsRequest struct {
	Amount uint64 `json:"amount" binding:"required,gt=0"`
	Denom  string `json:"denom" binding:"required"`
	To     string `json:"to" binding:"required"`
}

// SweepFunds handles POST /sweep
func (h *GameHandler) SweepFunds(c *gin.Context) {
	var request SweepFundsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transfer, err := h.gameService.SweepFunds(c.Request.Context(), middleware.CallerWallet(c), request.To, request.Denom, request.Amount)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, transfer)
}

// PrizeReceivedRequest is the payload for POST /games/prize-received
type PrizeReceivedRequest struct {
	Sender  string `json:"sender"`
	TokenID string `json:"tokenId" binding:"required"`
}

// PrizeReceived handles POST /games/prize-received. In the multi-game form
// the notification is informational only: prize custody is verified when a
// game opens, not when the token arrives.
func (h *GameHandler) PrizeReceived(c *gin.Context) {
	var request PrizeReceivedRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": "receive_nft", "tokenId": request.TokenID})
}

// GetRegistry handles GET /registry
func (h *GameHandler) GetRegistry(c *gin.Context) {
	state, err := h.gameService.Registry(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"raffleCount": state.GameCount, "owner": state.Owner})
}

// GetGame handles GET /games/:id
func (h *GameHandler) GetGame(c *gin.Context) {
	gameID, ok := parseGameID(c)
	if !ok {
		return
	}
	game, err := h.gameService.GetGame(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, game)
}

// ListGames handles GET /games
func (h *GameHandler) ListGames(c *gin.Context) {
	games, err := h.gameService.ListGames(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// GetWalletTickets handles GET /games/:id/tickets/:wallet
func (h *GameHandler) GetWalletTickets(c *gin.Context) {
	gameID, ok := parseGameID(c)
	if !ok {
		return
	}
	tickets, err := h.gameService.WalletTickets(c.Request.Context(), gameID, c.Param("wallet"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// GetBalance handles GET /balance
func (h *GameHandler) GetBalance(c *gin.Context) {
	balance, denom, err := h.gameService.TreasuryBalance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": balance, "denom": denom})
}
