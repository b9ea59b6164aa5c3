package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type message struct {
	Type string               `json:"type"`
	Data *models.Notification `json:"data"`
}

type client struct {
	id   string
	send chan []byte
}

// Hub fans notifications out to every open connection of an enrollee.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[string]*client
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]map[string]*client), log: log}
}

func (h *Hub) register(userID string) *client {
	c := &client{id: uuid.NewString(), send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[string]*client)
	}
	h.clients[userID][c.id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[userID]
	if !ok {
		return
	}
	if _, ok := conns[c.id]; ok {
		delete(conns, c.id)
		close(c.send)
	}
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
}

// Push queues n for every connection of recipient. Slow connections drop
// the message rather than block the caller.
func (h *Hub) Push(recipient string, n *models.Notification) {
	payload, err := json.Marshal(message{Type: "notification", Data: n})
	if err != nil {
		h.log.Error("marshal notification", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients[recipient] {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("ws send buffer full, dropping notification", zap.String("recipient", recipient), zap.String("conn", c.id))
		}
	}
}

func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Handle serves one upgraded connection. The caller's enrollee id must be
// in the "enrollee_id" local, set by the auth middleware before upgrade.
func (h *Hub) Handle(conn *websocket.Conn) {
	userID, _ := conn.Locals("enrollee_id").(string)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "no inbox"))
		_ = conn.Close()
		return
	}
	c := h.register(userID)
	h.log.Info("ws connected", zap.String("user", userID), zap.String("conn", c.id))

	done := make(chan struct{})
	go h.writePump(conn, c, done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(userID, c)
	<-done
	h.log.Info("ws disconnected", zap.String("user", userID), zap.String("conn", c.id))
}

func (h *Hub) writePump(conn *websocket.Conn, c *client, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
		close(done)
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
