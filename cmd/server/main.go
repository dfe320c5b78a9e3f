package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/maslul/backend/internal/api"
	"github.com/maslul/backend/internal/config"
	"github.com/maslul/backend/internal/db/mongodb"
	"github.com/maslul/backend/internal/db/redis"
	"github.com/maslul/backend/internal/game/manager"
	"github.com/maslul/backend/internal/game/websocket"
	"github.com/maslul/backend/internal/notify"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, sugar)
	if err != nil {
		sugar.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(ctx); err != nil {
			sugar.Errorf("Failed to disconnect from MongoDB: %v", err)
		}
	}()
	sugar.Info("Connected to MongoDB")

	if err := mongodb.EnsureIndexes(ctx, mongoClient.Database(cfg.MongoDB.Database),
		cfg.MongoDB.GamesColl, cfg.MongoDB.LogColl, cfg.MongoDB.AchievementColl); err != nil {
		sugar.Fatalf("Failed to ensure indexes: %v", err)
	}

	rawRedis, err := redis.Connect(ctx, cfg.Redis.URI, cfg.Redis.Password, sugar)
	if err != nil {
		sugar.Fatalf("Failed to connect to Redis: %v", err)
	}
	redisClient := redis.NewClient(rawRedis, sugar)
	defer func() {
		if err := redisClient.Close(); err != nil {
			sugar.Errorf("Failed to close Redis connection: %v", err)
		}
	}()
	sugar.Info("Connected to Redis")

	store := mongodb.NewGameStore(mongoClient, cfg.MongoDB.Database,
		cfg.MongoDB.GamesColl, cfg.MongoDB.LogColl, cfg.MongoDB.AchievementColl, sugar)

	notifier := notify.NewRedisNotifier(ctx, redisClient, sugar)

	coordinator, err := manager.New(ctx, cfg, store, notifier, sugar)
	if err != nil {
		sugar.Fatalf("Failed to initialize session coordinator: %v", err)
	}
	sugar.Info("Session coordinator initialized")

	hub := websocket.NewHub(ctx, redisClient, sugar)
	go notify.Listen(ctx, redisClient, sugar, hub.HandleNotification)
	sugar.Info("WebSocket hub is running")

	server := api.NewServer(cfg, coordinator, hub, mongoClient, redisClient, sugar)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("Failed to start the server: %v", err)
		}
	}()
	sugar.Infof("Server started on port %d", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Fatalf("Server forced to shutdown: %v", err)
	}

	sugar.Info("Server exited properly")
}
