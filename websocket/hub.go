package websocket

import (
	"context"
	"sync"

	"github.com/anjiri1684/liquidity/utils"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	UserID uuid.UUID
	Conn   Conn
}

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`

	userID uuid.UUID
}

type WalletPayload struct {
	Balance string `json:"balance"`
	Reason  string `json:"reason"`
	Amount  string `json:"amount,omitempty"`
}

// Hub fans wallet events out to every open connection of a user. All map
// mutations happen on the Run goroutine.
type Hub struct {
	clients    map[uuid.UUID]map[Conn]struct{}
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[Conn]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		log:        log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[Conn]struct{})
			}
			h.clients[client.UserID][client.Conn] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("websocket client registered", zap.String("user_id", client.UserID.String()))
		case client := <-h.unregister:
			h.remove(client.UserID, client.Conn)
			h.log.Debug("websocket client unregistered", zap.String("user_id", client.UserID.String()))
		case event := <-h.broadcast:
			h.mu.RLock()
			conns := make([]Conn, 0, len(h.clients[event.userID]))
			for conn := range h.clients[event.userID] {
				conns = append(conns, conn)
			}
			h.mu.RUnlock()

			for _, conn := range conns {
				if err := conn.WriteJSON(event); err != nil {
					h.log.Warn("dropping websocket client", zap.String("user_id", event.userID.String()), zap.Error(err))
					_ = conn.Close()
					h.remove(event.userID, conn)
				}
			}
		}
	}
}

func (h *Hub) Register(c *Client)   { h.register <- c }
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

// Notify queues an event for userID. It never blocks; events are dropped when the queue is full.
func (h *Hub) Notify(userID uuid.UUID, eventType string, payload interface{}) {
	select {
	case h.broadcast <- Event{Type: eventType, Payload: payload, userID: userID}:
	default:
		h.log.Warn("websocket broadcast queue full, event dropped", zap.String("user_id", userID.String()))
	}
}

func (h *Hub) NotifyWallet(userID uuid.UUID, balance, amount decimal.Decimal, reason string) {
	payload := WalletPayload{Balance: balance.StringFixed(2), Reason: reason}
	if !amount.IsZero() {
		payload.Amount = amount.StringFixed(2)
	}
	h.Notify(userID, "wallet.updated", payload)
}

func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) remove(userID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.clients {
		for conn := range conns {
			_ = conn.Close()
		}
		delete(h.clients, userID)
	}
}

// Upgrade rejects plain HTTP requests on the websocket route.
func Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// WalletHandler authenticates with the token query parameter, since browsers
// cannot set headers on websocket requests, then holds the connection open.
func (h *Hub) WalletHandler(secret string) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		claims, err := utils.ParseToken(secret, c.Query("token"))
		if err != nil {
			_ = c.WriteJSON(fiber.Map{"type": "error", "payload": "unauthorized"})
			_ = c.Close()
			return
		}

		client := &Client{UserID: claims.UserID, Conn: c}
		h.Register(client)
		defer h.Unregister(client)

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	})
}
