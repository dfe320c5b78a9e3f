// Package redis wraps the Redis client used for change notifications
// and player presence. Redis is a soft dependency: losing it degrades
// liveness of client refreshes, never game-state correctness.
package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/db/breaker"
)

// Connect establishes a Redis connection with exponential backoff and
// jitter, verifying it with a ping per attempt.
func Connect(ctx context.Context, addr, password string, logger *zap.SugaredLogger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	maxRetries := 5
	initialBackoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()

		if err == nil {
			logger.Infow("Successfully connected to Redis", "attempt", attempt+1)
			return client, nil
		}

		backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
		if backoff > float64(maxBackoff) {
			backoff = float64(maxBackoff)
		}
		// ±20% jitter
		jitter := 0.8 + 0.4*float64(time.Now().UnixNano()%1000)/1000.0
		wait := time.Duration(backoff * jitter)

		logger.Warnw("Failed to connect to Redis, retrying",
			"attempt", attempt+1,
			"maxRetries", maxRetries,
			"backoff", wait,
			"error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			_ = client.Close()
			return nil, fmt.Errorf("context cancelled while connecting to Redis: %w", ctx.Err())
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxRetries, err)
}

// Client wraps the raw client with circuit breaker protection for the
// operations the game server performs.
type Client struct {
	rdb     *redis.Client
	breaker *breaker.Breaker
	logger  *zap.SugaredLogger
}

// NewClient creates a protected client. The breaker opens after 5
// consecutive failures and probes again after 10 seconds.
func NewClient(rdb *redis.Client, logger *zap.SugaredLogger) *Client {
	return &Client{
		rdb:     rdb,
		breaker: breaker.New(5, 10*time.Second),
		logger:  logger,
	}
}

// Raw exposes the underlying client for subscriptions, which manage
// their own reconnection and do not go through the breaker.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}

// Publish sends a message to a channel.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.do(func() error {
		return c.rdb.Publish(ctx, channel, message).Err()
	})
}

// Subscribe opens a subscription to the given channels.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channels...)
}

// SetPlayerPresence marks a player online for a game. The entry
// expires unless refreshed by the connection's ping loop.
func (c *Client) SetPlayerPresence(ctx context.Context, gameID, playerID string, ttl time.Duration) error {
	return c.do(func() error {
		return c.rdb.Set(ctx, presenceKey(gameID, playerID), time.Now().Unix(), ttl).Err()
	})
}

// ClearPlayerPresence removes a player's presence entry.
func (c *Client) ClearPlayerPresence(ctx context.Context, gameID, playerID string) error {
	return c.do(func() error {
		return c.rdb.Del(ctx, presenceKey(gameID, playerID)).Err()
	})
}

// IsPlayerOnline reports whether a presence entry exists.
func (c *Client) IsPlayerOnline(ctx context.Context, gameID, playerID string) (bool, error) {
	var n int64
	err := c.do(func() error {
		var err error
		n, err = c.rdb.Exists(ctx, presenceKey(gameID, playerID)).Result()
		return err
	})
	return n > 0, err
}

// Healthy reports whether Redis responds to a ping.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.do(func() error {
		return c.rdb.Ping(ctx).Err()
	}) == nil
}

// Close shuts down the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) do(op func() error) error {
	err := c.breaker.Do(op)
	if err == breaker.ErrOpen {
		c.logger.Warn("Circuit breaker is open, fast-failing Redis request")
	}
	return err
}

func presenceKey(gameID, playerID string) string {
	return fmt.Sprintf("presence:%s:%s", gameID, playerID)
}
