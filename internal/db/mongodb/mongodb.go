// Package mongodb provides the MongoDB connection and the game
// persistence stores built on it.
package mongodb

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/db/breaker"
)

// Client wraps the driver client with circuit breaker protection.
type Client struct {
	client  *mongo.Client
	breaker *breaker.Breaker
	logger  *zap.SugaredLogger
}

// Connect establishes a MongoDB connection with exponential backoff
// and jitter, verifying each attempt with a ping against the primary.
func Connect(ctx context.Context, uri string, logger *zap.SugaredLogger) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetMinPoolSize(5).
		SetMaxPoolSize(100).
		SetMaxConnIdleTime(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	var client *mongo.Client
	var err error

	maxRetries := 5
	initialBackoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err = mongo.Connect(connCtx, clientOptions)
		cancel()

		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
			pingErr := client.Ping(pingCtx, readpref.Primary())
			pingCancel()

			if pingErr == nil {
				logger.Infow("Successfully connected to MongoDB", "attempt", attempt+1)
				return client, nil
			}
			err = pingErr
			_ = client.Disconnect(ctx)
		}

		backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
		if backoff > float64(maxBackoff) {
			backoff = float64(maxBackoff)
		}
		// ±20% jitter
		jitter := 0.8 + 0.4*float64(time.Now().UnixNano()%1000)/1000.0
		wait := time.Duration(backoff * jitter)

		logger.Warnw("Failed to connect to MongoDB, retrying",
			"attempt", attempt+1,
			"maxRetries", maxRetries,
			"backoff", wait,
			"error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled while connecting to MongoDB: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", maxRetries, err)
}

// NewClient connects and wraps the client with a circuit breaker that
// opens after 5 consecutive failures and probes again after 10 seconds.
func NewClient(ctx context.Context, uri string, logger *zap.SugaredLogger) (*Client, error) {
	client, err := Connect(ctx, uri, logger)
	if err != nil {
		return nil, err
	}
	return &Client{
		client:  client,
		breaker: breaker.New(5, 10*time.Second),
		logger:  logger,
	}, nil
}

// Database returns a database handle.
func (c *Client) Database(name string) *mongo.Database {
	return c.client.Database(name)
}

// Collection returns a collection handle.
func (c *Client) Collection(dbName, collName string) *mongo.Collection {
	return c.client.Database(dbName).Collection(collName)
}

// Ping checks connectivity through the circuit breaker.
func (c *Client) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	err := c.breaker.Do(func() error {
		return c.client.Ping(ctx, rp)
	})
	if err == breaker.ErrOpen {
		c.logger.Warn("Circuit breaker is open, fast-failing MongoDB ping request")
	}
	return err
}

// Do runs a database operation through the circuit breaker.
func (c *Client) Do(op func() error) error {
	err := c.breaker.Do(op)
	if err == breaker.ErrOpen {
		c.logger.Warn("Circuit breaker is open, fast-failing MongoDB request")
	}
	return err
}

// Disconnect shuts down the connection pool.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the game stores rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database, gamesColl, logColl, achColl string) error {
	games := db.Collection(gamesColl)
	_, err := games.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "lastActivity", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create game indexes: %w", err)
	}

	logIdx := db.Collection(logColl)
	if _, err := logIdx.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "gameId", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create log indexes: %w", err)
	}

	ach := db.Collection(achColl)
	if _, err := ach.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "gameId", Value: 1}, {Key: "playerId", Value: 1}, {Key: "defId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create achievement indexes: %w", err)
	}
	return nil
}
