// Package ws broadcasts game lifecycle events to websocket subscribers.
package ws

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients subscribe cross-origin; auth is not required for the
	// public event feed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is one game lifecycle notification.
type Event struct {
	GameID  uint64    `json:"gameId"`
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sentAt"`
}

// Hub fans game events out to per-game subscriber sets.
type Hub struct {
	mu          sync.Mutex
	subscribers map[uint64]map[*websocket.Conn]struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{subscribers: make(map[uint64]map[*websocket.Conn]struct{})}
}

// Publish implements services.EventPublisher. Slow or dead subscribers are
// dropped rather than blocking the game pipeline.
func (h *Hub) Publish(gameID uint64, event string, payload any) {
	msg := Event{GameID: gameID, Type: event, Payload: payload, SentAt: time.Now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.subscribers[gameID] {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			delete(h.subscribers[gameID], conn)
		}
	}
}

// Subscribe handles GET /ws/games/:id and streams events for that game until
// the client disconnects.
func (h *Hub) Subscribe(c *gin.Context) {
	gameID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	if h.subscribers[gameID] == nil {
		h.subscribers[gameID] = make(map[*websocket.Conn]struct{})
	}
	h.subscribers[gameID][conn] = struct{}{}
	h.mu.Unlock()

	// Reader loop only detects disconnects; subscribers never send.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.subscribers[gameID], conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
