// Package api exposes the HTTP and websocket surface of the game
// server. State flows one way: actions arrive over HTTP, snapshots are
// fetched over HTTP, and the websocket only tells clients that
// something changed.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/api/handlers"
	"github.com/maslul/backend/internal/api/middleware/auth"
	"github.com/maslul/backend/internal/config"
	"github.com/maslul/backend/internal/db/mongodb"
	dbredis "github.com/maslul/backend/internal/db/redis"
	"github.com/maslul/backend/internal/game/manager"
	"github.com/maslul/backend/internal/game/websocket"
)

// CustomValidator is the request validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates a bound request body.
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Server is the API server.
type Server struct {
	echo        *echo.Echo
	cfg         *config.Config
	coordinator *manager.Coordinator
	wsHub       *websocket.Hub
	logger      *zap.SugaredLogger
	mongoClient *mongodb.Client
	redisClient *dbredis.Client
}

// NewServer wires the handlers, middleware, and routes.
func NewServer(cfg *config.Config, coordinator *manager.Coordinator, wsHub *websocket.Hub, mongoClient *mongodb.Client, redisClient *dbredis.Client, logger *zap.SugaredLogger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	s := &Server{
		echo:        e,
		cfg:         cfg,
		coordinator: coordinator,
		wsHub:       wsHub,
		logger:      logger,
		mongoClient: mongoClient,
		redisClient: redisClient,
	}

	s.configureMiddleware()
	s.configureRoutes()
	return s
}

func (s *Server) configureMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(middleware.RequestID())

	// Request-scoped structured logger.
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			requestLogger := s.logger.With(
				"requestID", requestID,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"clientIP", c.RealIP(),
			)
			c.Set("logger", requestLogger)
			return next(c)
		}
	})
}

func (s *Server) configureRoutes() {
	gameHandler := handlers.NewGameHandler(s.coordinator, s.logger)
	sessionHandler := handlers.NewSessionHandler(s.cfg, s.logger)
	wsHandler := handlers.NewWebSocketHandler(s.wsHub, s.coordinator, s.logger)
	healthHandler := handlers.NewHealthHandler(s.mongoClient, s.redisClient, s.logger)

	apiV1 := s.echo.Group("/api/v1")

	// Guest session issuance; no token required.
	apiV1.POST("/session", sessionHandler.CreateSession)

	jwtMiddleware := auth.Middleware(s.cfg.JWT.Secret)

	gameGroup := apiV1.Group("/games", jwtMiddleware)
	gameGroup.POST("", gameHandler.CreateGame)
	gameGroup.GET("", gameHandler.ListGames)
	gameGroup.GET("/:gameId", gameHandler.GetSnapshot)
	gameGroup.POST("/:gameId/join", gameHandler.JoinGame)
	gameGroup.POST("/:gameId/ai", gameHandler.AddAIPlayer)
	gameGroup.POST("/:gameId/start", gameHandler.StartGame)
	gameGroup.POST("/:gameId/cancel", gameHandler.CancelGame)
	gameGroup.GET("/:gameId/achievements", gameHandler.GetAchievements)

	actionGroup := apiV1.Group("/games/:gameId/actions", jwtMiddleware)
	actionGroup.POST("/roll", gameHandler.Roll)
	actionGroup.POST("/buy-land", gameHandler.BuyLand)
	actionGroup.POST("/build-church", gameHandler.BuildChurch)
	actionGroup.POST("/build-synagogue", gameHandler.BuildSynagogue)
	actionGroup.POST("/pay-rent", gameHandler.PayRent)
	actionGroup.POST("/acknowledge-card", gameHandler.AcknowledgeCard)
	actionGroup.POST("/end-turn", gameHandler.EndTurn)
	actionGroup.POST("/trade", gameHandler.ProposeTrade)

	s.echo.GET("/ws/:gameId", wsHandler.HandleConnection, jwtMiddleware)

	s.echo.GET("/health", healthHandler.Check)
	s.echo.GET("/health/detailed", healthHandler.DetailedCheck)
}

// Start starts the API server.
func (s *Server) Start() error {
	address := s.cfg.Server.Host + ":" + strconv.Itoa(s.cfg.Server.Port)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
