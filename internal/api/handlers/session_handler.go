package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/api/middleware/auth"
	"github.com/maslul/backend/internal/config"
)

// SessionHandler issues guest player sessions. Players have no
// accounts; a session token is the whole identity.
type SessionHandler struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(cfg *config.Config, logger *zap.SugaredLogger) *SessionHandler {
	return &SessionHandler{cfg: cfg, logger: logger}
}

// CreateSessionRequest is the body of POST /session.
type CreateSessionRequest struct {
	Name string `json:"name" validate:"required,min=1,max=32"`
}

// CreateSession mints a player ID and a signed token for it.
func (h *SessionHandler) CreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	playerID := uuid.NewString()
	ttl := time.Duration(h.cfg.JWT.Expiration) * time.Hour
	token, err := auth.GenerateToken(playerID, req.Name, h.cfg.JWT.Secret, ttl)
	if err != nil {
		h.logger.Errorf("Failed to issue session token: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"playerId": playerID,
		"name":     req.Name,
		"token":    token,
	})
}
