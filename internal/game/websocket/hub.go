// Package websocket pushes change notifications to connected clients.
// Notifications carry identifiers and a version only; clients refetch
// the snapshot over HTTP when notified. Game actions never travel over
// the socket.
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	dbredis "github.com/maslul/backend/internal/db/redis"
	"github.com/maslul/backend/internal/notify"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	presenceTTL  = 90 * time.Second
	sendBuffer   = 256
)

// Hub tracks the websocket clients of this server instance, keyed by
// game and player, and fans incoming notifications out to them.
type Hub struct {
	ctx    context.Context
	redis  *dbredis.Client
	logger *zap.SugaredLogger

	mu      sync.RWMutex
	clients map[string]map[string]*Client // gameID -> playerID -> client
}

// Client is one player's connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	gameID   string
	playerID string
}

// NewHub creates a hub. The redis client may be nil in tests; presence
// updates are then skipped.
func NewHub(ctx context.Context, redis *dbredis.Client, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		ctx:     ctx,
		redis:   redis,
		logger:  logger,
		clients: make(map[string]map[string]*Client),
	}
}

// HandleNotification forwards one change notification to the clients
// of the affected game. Wired as the handler of notify.Listen so
// notifications published by any server instance reach the clients
// connected here.
func (h *Hub) HandleNotification(note notify.Notification) {
	payload, err := json.Marshal(note)
	if err != nil {
		h.logger.Errorf("Failed to marshal notification for game %s: %v", note.GameID, err)
		return
	}

	if note.Kind == notify.KindAchievements && note.PlayerID != "" {
		h.sendToPlayer(note.GameID, note.PlayerID, payload)
		return
	}
	h.broadcast(note.GameID, payload)
}

func (h *Hub) broadcast(gameID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for playerID, client := range h.clients[gameID] {
		select {
		case client.send <- payload:
		default:
			h.logger.Warnf("Dropping notification for slow client %s in game %s", playerID, gameID)
		}
	}
}

func (h *Hub) sendToPlayer(gameID, playerID string, payload []byte) {
	h.mu.RLock()
	client := h.clients[gameID][playerID]
	h.mu.RUnlock()
	if client == nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.Warnf("Dropping notification for slow client %s in game %s", playerID, gameID)
	}
}

// Serve registers a freshly upgraded connection and runs its pumps. A
// second connection for the same player replaces the first.
func (h *Hub) Serve(conn *websocket.Conn, gameID, playerID string) {
	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		gameID:   gameID,
		playerID: playerID,
	}

	h.mu.Lock()
	if h.clients[gameID] == nil {
		h.clients[gameID] = make(map[string]*Client)
	}
	if prev := h.clients[gameID][playerID]; prev != nil {
		close(prev.send)
		_ = prev.conn.Close()
	}
	h.clients[gameID][playerID] = client
	h.mu.Unlock()

	h.markOnline(gameID, playerID)
	h.logger.Infof("Client connected: game %s, player %s", gameID, playerID)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if h.clients[client.gameID][client.playerID] == client {
		delete(h.clients[client.gameID], client.playerID)
		if len(h.clients[client.gameID]) == 0 {
			delete(h.clients, client.gameID)
		}
	}
	h.mu.Unlock()

	h.markOffline(client.gameID, client.playerID)
	h.logger.Infof("Client disconnected: game %s, player %s", client.gameID, client.playerID)
}

// ConnectedPlayers lists the players of a game connected to this instance.
func (h *Hub) ConnectedPlayers(gameID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	players := make([]string, 0, len(h.clients[gameID]))
	for playerID := range h.clients[gameID] {
		players = append(players, playerID)
	}
	return players
}

func (h *Hub) markOnline(gameID, playerID string) {
	if h.redis == nil {
		return
	}
	if err := h.redis.SetPlayerPresence(h.ctx, gameID, playerID, presenceTTL); err != nil {
		h.logger.Warnf("Failed to mark player %s online: %v", playerID, err)
	}
}

func (h *Hub) markOffline(gameID, playerID string) {
	if h.redis == nil {
		return
	}
	if err := h.redis.ClearPlayerPresence(h.ctx, gameID, playerID); err != nil {
		h.logger.Warnf("Failed to clear presence for player %s: %v", playerID, err)
	}
}

// readPump drains the connection. Clients send nothing meaningful;
// reads exist to process pongs and detect closure. Pongs refresh the
// player's presence entry so it outlives the TTL while connected.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.hub.markOnline(c.gameID, c.playerID)
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warnf("Read error for player %s in game %s: %v", c.playerID, c.gameID, err)
			}
			return
		}
	}
}

// writePump forwards queued notifications and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.hub.logger.Warnf("Write error for player %s in game %s: %v", c.playerID, c.gameID, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
