package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/db/mongodb"
	dbredis "github.com/maslul/backend/internal/db/redis"
)

// HealthHandler serves liveness and dependency health checks.
type HealthHandler struct {
	mongoClient *mongodb.Client
	redisClient *dbredis.Client
	logger      *zap.SugaredLogger
	startedAt   time.Time
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(mongoClient *mongodb.Client, redisClient *dbredis.Client, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{
		mongoClient: mongoClient,
		redisClient: redisClient,
		logger:      logger,
		startedAt:   time.Now(),
	}
}

// Check is the basic liveness probe.
func (h *HealthHandler) Check(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
	})
}

// DetailedCheck probes MongoDB and Redis. Returns 503 when the game
// store is unreachable; a Redis outage only degrades notifications and
// keeps the status at 200.
func (h *HealthHandler) DetailedCheck(c echo.Context) error {
	ctx := c.Request().Context()

	mongoOK := false
	if h.mongoClient != nil {
		mongoOK = h.mongoClient.Ping(ctx, readpref.Primary()) == nil
	}

	redisOK := false
	if h.redisClient != nil {
		redisOK = h.redisClient.Healthy(ctx)
	}

	status := http.StatusOK
	overall := "ok"
	if !mongoOK {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	} else if !redisOK {
		overall = "degraded"
	}

	return c.JSON(status, map[string]interface{}{
		"status": overall,
		"uptime": time.Since(h.startedAt).String(),
		"checks": map[string]bool{
			"mongodb": mongoOK,
			"redis":   redisOK,
		},
	})
}
