package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/api/middleware/auth"
	"github.com/maslul/backend/internal/config"
	"github.com/maslul/backend/internal/game/manager"
	"github.com/maslul/backend/internal/game/models"
)

// stubStore is a minimal in-memory manager.GameStore for handler tests.
type stubStore struct {
	mu    sync.Mutex
	games map[string]*models.Game
}

func newStubStore() *stubStore {
	return &stubStore{games: make(map[string]*models.Game)}
}

func (s *stubStore) InsertGame(_ context.Context, g *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID.Hex()] = g.Clone()
	return nil
}

func (s *stubStore) SaveGame(_ context.Context, g *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID.Hex()] = g.Clone()
	return nil
}

func (s *stubStore) GetGame(_ context.Context, id string) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.games[id]; ok {
		return g.Clone(), nil
	}
	return nil, errors.New("game not found")
}

func (s *stubStore) GetGameByCode(_ context.Context, code string) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.games {
		if g.Code == code {
			return g.Clone(), nil
		}
	}
	return nil, errors.New("game not found")
}

func (s *stubStore) ListGames(_ context.Context, status models.GameStatus) ([]models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Game
	for _, g := range s.games {
		if g.Status == status {
			out = append(out, *g.Clone())
		}
	}
	return out, nil
}

func (s *stubStore) CountGamesByCode(_ context.Context, code string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, g := range s.games {
		if g.Code == code {
			n++
		}
	}
	return n, nil
}

func (s *stubStore) AppendLog(context.Context, string, []models.LogEntry) error { return nil }

func (s *stubStore) SaveAchievements(context.Context, string, []models.AchievementRecord) error {
	return nil
}

func (s *stubStore) LoadAchievements(context.Context, string) ([]models.AchievementRecord, error) {
	return nil, nil
}

type noopNotifier struct{}

func (noopNotifier) GameChanged(string, int64)          {}
func (noopNotifier) AchievementsChanged(string, string) {}

type testValidator struct{ v *validator.Validate }

func (tv *testValidator) Validate(i interface{}) error { return tv.v.Struct(i) }

func handlerConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", Expiration: 1},
		Game: config.GameConfig{
			MaxPlayers:            4,
			MinimumPlayersToStart: 2,
			InitialBalance:        1500,
			PassStartBonus:        200,
			TaxAmount:             100,
			JailMaxTurns:          3,
			ConstructionGoal:      10,
			RoundLimit:            20,
		},
	}
}

func newGameHandler(t *testing.T) (*GameHandler, *manager.Coordinator, *echo.Echo) {
	t.Helper()
	coord, err := manager.New(context.Background(), handlerConfig(), newStubStore(), noopNotifier{}, zap.NewNop().Sugar())
	require.NoError(t, err)

	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	return NewGameHandler(coord, zap.NewNop().Sugar()), coord, e
}

// invoke runs a handler directly with an authenticated context.
func invoke(e *echo.Echo, h echo.HandlerFunc, playerID, playerName, gameID, body string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(auth.ContextPlayerID, playerID)
	c.Set(auth.ContextPlayerName, playerName)
	if gameID != "" {
		c.SetParamNames("gameId")
		c.SetParamValues(gameID)
	}
	return rec, h(c)
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	return httpErr.Code
}

func setupStartedGame(t *testing.T, h *GameHandler, e *echo.Echo) string {
	t.Helper()
	rec, err := invoke(e, h.CreateGame, "host", "Hosty", "", `{"name":"Test","maxPlayers":4}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		GameID string `json:"gameId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	_, err = invoke(e, h.JoinGame, "guest", "Guesty", created.GameID, "")
	require.NoError(t, err)
	_, err = invoke(e, h.StartGame, "host", "Hosty", created.GameID, "")
	require.NoError(t, err)
	return created.GameID
}

func TestCreateGameEndpoint(t *testing.T) {
	h, _, e := newGameHandler(t)

	rec, err := invoke(e, h.CreateGame, "host", "Hosty", "", `{"name":"Friday Night","maxPlayers":3}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "gameId")
}

func TestCreateGameRejectsBadBody(t *testing.T) {
	h, _, e := newGameHandler(t)

	_, err := invoke(e, h.CreateGame, "host", "Hosty", "", `{"maxPlayers":1}`)
	assert.Error(t, err, "maxPlayers below 2 fails validation")

	_, err = invoke(e, h.CreateGame, "host", "Hosty", "", `{"maxPlayers":"lots"}`)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httpStatus(t, err))
}

func TestSnapshotEndpoint(t *testing.T) {
	h, _, e := newGameHandler(t)
	gameID := setupStartedGame(t, h, e)

	rec, err := invoke(e, h.GetSnapshot, "host", "Hosty", gameID, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var g models.Game
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Equal(t, models.GameStatusActive, g.Status)
	assert.Len(t, g.Players, 2)

	_, err = invoke(e, h.GetSnapshot, "host", "Hosty", "no-such-game", "")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httpStatus(t, err))
}

func TestTurnViolationsAreConflicts(t *testing.T) {
	h, coord, e := newGameHandler(t)
	gameID := setupStartedGame(t, h, e)

	g, err := coord.Snapshot(gameID)
	require.NoError(t, err)
	var waiting string
	for _, p := range g.Players {
		if p.ID != g.ActivePlayer().ID {
			waiting = p.ID
		}
	}

	_, err = invoke(e, h.Roll, waiting, "", gameID, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httpStatus(t, err))

	_, err = invoke(e, h.EndTurn, g.ActivePlayer().ID, "", gameID, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, httpStatus(t, err), "ending without rolling conflicts")
}

func TestRuleViolationsAreBadRequests(t *testing.T) {
	h, coord, e := newGameHandler(t)
	gameID := setupStartedGame(t, h, e)

	g, err := coord.Snapshot(gameID)
	require.NoError(t, err)
	active := g.ActivePlayer().ID

	// The start tile is not ownable.
	_, err = invoke(e, h.BuyLand, active, "", gameID, `{"tileId":0}`)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httpStatus(t, err))
}

func TestTradeIsNotImplemented(t *testing.T) {
	h, coord, e := newGameHandler(t)
	gameID := setupStartedGame(t, h, e)

	g, err := coord.Snapshot(gameID)
	require.NoError(t, err)

	_, err = invoke(e, h.ProposeTrade, g.ActivePlayer().ID, "", gameID, `{"playerId":"someone"}`)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotImplemented, httpStatus(t, err))
}

func TestRollEndpoint(t *testing.T) {
	h, coord, e := newGameHandler(t)
	gameID := setupStartedGame(t, h, e)

	g, err := coord.Snapshot(gameID)
	require.NoError(t, err)

	rec, err := invoke(e, h.Roll, g.ActivePlayer().ID, "", gameID, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Die1 int `json:"Die1"`
		Die2 int `json:"Die2"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.GreaterOrEqual(t, res.Die1, 1)
	assert.LessOrEqual(t, res.Die2, 6)
}

func TestAddAIPlayerEndpoint(t *testing.T) {
	h, coord, e := newGameHandler(t)

	rec, err := invoke(e, h.CreateGame, "host", "Hosty", "", `{"maxPlayers":4}`)
	require.NoError(t, err)
	var created struct {
		GameID string `json:"gameId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	_, err = invoke(e, h.AddAIPlayer, "host", "Hosty", created.GameID, `{"personality":"builder"}`)
	require.NoError(t, err)

	g, err := coord.Snapshot(created.GameID)
	require.NoError(t, err)
	require.Len(t, g.Players, 2)
	assert.True(t, g.Players[1].IsAI)
	assert.Equal(t, "Builder", g.Players[1].Name, "personality match is case-insensitive")
}

func TestGetAchievementsEndpoint(t *testing.T) {
	h, _, e := newGameHandler(t)
	gameID := setupStartedGame(t, h, e)

	rec, err := invoke(e, h.GetAchievements, "host", "Hosty", gameID, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "achievements")
}

func TestListGamesEndpoint(t *testing.T) {
	h, _, e := newGameHandler(t)

	_, err := invoke(e, h.CreateGame, "host", "Hosty", "", `{"name":"Open Lobby"}`)
	require.NoError(t, err)

	rec, err := invoke(e, h.ListGames, "host", "Hosty", "", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Open Lobby")
}

func TestCreateSessionEndpoint(t *testing.T) {
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	h := NewSessionHandler(handlerConfig(), zap.NewNop().Sugar())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Dana"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.CreateSession(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		PlayerID string `json:"playerId"`
		Name     string `json:"name"`
		Token    string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.PlayerID)
	assert.Equal(t, "Dana", resp.Name)
	assert.NotEmpty(t, resp.Token)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	assert.Error(t, h.CreateSession(e.NewContext(req, httptest.NewRecorder())))
}
