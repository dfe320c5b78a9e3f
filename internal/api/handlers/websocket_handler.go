package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/api/middleware/auth"
	"github.com/maslul/backend/internal/game/manager"
	wshub "github.com/maslul/backend/internal/game/websocket"
)

// WebSocketHandler upgrades connections and hands them to the hub.
type WebSocketHandler struct {
	hub         *wshub.Hub
	coordinator *manager.Coordinator
	logger      *zap.SugaredLogger
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler creates a websocket handler.
func NewWebSocketHandler(hub *wshub.Hub, coordinator *manager.Coordinator, logger *zap.SugaredLogger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		coordinator: coordinator,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS layer on the HTTP routes;
			// the token requirement covers the socket.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades a client connection for one game. The
// game must exist; the player identity comes from the token.
func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	gameID := c.Param("gameId")
	playerID := auth.PlayerID(c)

	game, err := h.coordinator.Snapshot(gameID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "game not found")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warnf("Failed to upgrade connection for player %s: %v", playerID, err)
		return err
	}

	h.hub.Serve(conn, game.ID.Hex(), playerID)
	return nil
}
