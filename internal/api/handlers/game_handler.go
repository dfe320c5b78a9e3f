// Package handlers contains the HTTP handlers of the API server.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/api/middleware/auth"
	"github.com/maslul/backend/internal/db/mongodb"
	"github.com/maslul/backend/internal/game/ai"
	"github.com/maslul/backend/internal/game/engine"
	"github.com/maslul/backend/internal/game/manager"
)

// GameHandler serves the game lifecycle and action routes.
type GameHandler struct {
	coordinator *manager.Coordinator
	logger      *zap.SugaredLogger
}

// NewGameHandler creates a game handler.
func NewGameHandler(coordinator *manager.Coordinator, logger *zap.SugaredLogger) *GameHandler {
	return &GameHandler{coordinator: coordinator, logger: logger}
}

// CreateGameRequest is the body of POST /games.
type CreateGameRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers" validate:"omitempty,min=2,max=8"`
}

// CreateGame creates a new game hosted by the caller.
func (h *GameHandler) CreateGame(c echo.Context) error {
	var req CreateGameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	gameID, err := h.coordinator.CreateGame(auth.PlayerID(c), auth.PlayerName(c), req.Name, req.MaxPlayers)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"gameId": gameID})
}

// ListGames lists joinable games.
func (h *GameHandler) ListGames(c echo.Context) error {
	games, err := h.coordinator.ListWaitingGames()
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"games": games})
}

// GetSnapshot returns the authoritative state of a game. Accepts a hex
// game ID or a room code.
func (h *GameHandler) GetSnapshot(c echo.Context) error {
	game, err := h.coordinator.Snapshot(c.Param("gameId"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, game)
}

// JoinGame seats the caller in a waiting game.
func (h *GameHandler) JoinGame(c echo.Context) error {
	err := h.coordinator.JoinGame(c.Param("gameId"), auth.PlayerID(c), auth.PlayerName(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// AddAIRequest is the body of POST /games/:gameId/ai.
type AddAIRequest struct {
	Personality string `json:"personality"`
}

// AddAIPlayer seats an AI opponent. An empty or unknown personality
// picks the first from the catalog.
func (h *GameHandler) AddAIPlayer(c echo.Context) error {
	var req AddAIRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	profiles := ai.Personalities()
	profile := profiles[0]
	for _, p := range profiles {
		if strings.EqualFold(p.Name, req.Personality) {
			profile = p
			break
		}
	}

	if err := h.coordinator.AddAIPlayer(c.Param("gameId"), profile); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// StartGame starts a waiting game. Host only.
func (h *GameHandler) StartGame(c echo.Context) error {
	if err := h.coordinator.StartGame(c.Param("gameId"), auth.PlayerID(c)); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// CancelGame cancels a game. Host only.
func (h *GameHandler) CancelGame(c echo.Context) error {
	if err := h.coordinator.CancelGame(c.Param("gameId"), auth.PlayerID(c)); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// GetAchievements returns the caller's achievement records.
func (h *GameHandler) GetAchievements(c echo.Context) error {
	records, err := h.coordinator.Achievements(c.Param("gameId"), auth.PlayerID(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"achievements": records})
}

// Roll resolves the caller's dice roll.
func (h *GameHandler) Roll(c echo.Context) error {
	result, err := h.coordinator.Roll(c.Param("gameId"), auth.PlayerID(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// TileRequest is the body of tile-targeted actions.
type TileRequest struct {
	TileID int `json:"tileId" validate:"min=0"`
}

// BuyLand purchases the tile the caller targets.
func (h *GameHandler) BuyLand(c echo.Context) error {
	return h.tileAction(c, h.coordinator.BuyLand)
}

// BuildChurch adds a tier-1 construction.
func (h *GameHandler) BuildChurch(c echo.Context) error {
	return h.tileAction(c, h.coordinator.BuildChurch)
}

// BuildSynagogue adds a tier-2 construction.
func (h *GameHandler) BuildSynagogue(c echo.Context) error {
	return h.tileAction(c, h.coordinator.BuildSynagogue)
}

// PayRent pays rent on the targeted tile.
func (h *GameHandler) PayRent(c echo.Context) error {
	return h.tileAction(c, h.coordinator.PayRent)
}

func (h *GameHandler) tileAction(c echo.Context, action func(gameID, playerID string, tileID int) error) error {
	var req TileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := action(c.Param("gameId"), auth.PlayerID(c), req.TileID); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// AcknowledgeCard applies the caller's pending card.
func (h *GameHandler) AcknowledgeCard(c echo.Context) error {
	if err := h.coordinator.AcknowledgeCard(c.Param("gameId"), auth.PlayerID(c)); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// EndTurn completes the caller's turn.
func (h *GameHandler) EndTurn(c echo.Context) error {
	if err := h.coordinator.EndTurn(c.Param("gameId"), auth.PlayerID(c)); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// TradeRequest is the body of POST /actions/trade.
type TradeRequest struct {
	PlayerID string `json:"playerId" validate:"required"`
}

// ProposeTrade is the reserved trading surface.
func (h *GameHandler) ProposeTrade(c echo.Context) error {
	var req TradeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.coordinator.ProposeTrade(c.Param("gameId"), auth.PlayerID(c), req.PlayerID); err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
}

// mapError translates domain errors into HTTP status codes. Turn and
// phase violations are conflicts; rule violations are bad requests;
// failed commits are service unavailability the client may retry.
func (h *GameHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrTradingDisabled):
		return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
	case errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrGameNotActive),
		errors.Is(err, engine.ErrAlreadyRolled),
		errors.Is(err, engine.ErrRollInFlight),
		errors.Is(err, engine.ErrHasNotRolled),
		errors.Is(err, engine.ErrCardPending),
		errors.Is(err, engine.ErrNoCardPending),
		errors.Is(err, engine.ErrRentAlreadyPaid):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case engine.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, mongodb.ErrGameNotFound),
		strings.Contains(err.Error(), "not found"):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, manager.ErrPersistence):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Errorf("Unhandled error on %s: %v", c.Path(), err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
