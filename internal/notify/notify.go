// Package notify distributes "entity changed" notifications. A
// notification carries identifiers and a version, never game state;
// clients respond by refetching the authoritative snapshot. Redis
// pub/sub carries the notifications between server instances so each
// instance can wake its own websocket clients.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/maslul/backend/internal/db/redis"
)

// Channel is the pub/sub channel all change notifications travel on.
const Channel = "maslul:changes"

// Kind discriminates notification payloads.
type Kind string

const (
	KindGame         Kind = "GAME_CHANGED"
	KindAchievements Kind = "ACHIEVEMENTS_CHANGED"
)

// Notification is the wire payload. Version lets receivers drop
// notifications for states they have already seen.
type Notification struct {
	Kind     Kind   `json:"kind"`
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId,omitempty"`
	Version  int64  `json:"version,omitempty"`
}

// RedisNotifier publishes notifications to the shared channel. Publish
// failures are logged and swallowed: the game state is already
// committed, and clients recover via their periodic refresh.
type RedisNotifier struct {
	ctx    context.Context
	client *redis.Client
	logger *zap.SugaredLogger
}

// NewRedisNotifier creates a publisher.
func NewRedisNotifier(ctx context.Context, client *redis.Client, logger *zap.SugaredLogger) *RedisNotifier {
	return &RedisNotifier{ctx: ctx, client: client, logger: logger}
}

// GameChanged announces a new committed version of a game.
func (n *RedisNotifier) GameChanged(gameID string, version int64) {
	n.publish(Notification{Kind: KindGame, GameID: gameID, Version: version})
}

// AchievementsChanged announces new achievement unlocks for a player.
func (n *RedisNotifier) AchievementsChanged(gameID, playerID string) {
	n.publish(Notification{Kind: KindAchievements, GameID: gameID, PlayerID: playerID})
}

func (n *RedisNotifier) publish(note Notification) {
	payload, err := json.Marshal(note)
	if err != nil {
		n.logger.Errorf("Failed to marshal notification: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(n.ctx, 2*time.Second)
	defer cancel()
	if err := n.client.Publish(ctx, Channel, payload); err != nil {
		n.logger.Warnf("Failed to publish %s notification for game %s: %v", note.Kind, note.GameID, err)
	}
}

// Listen subscribes to the notification channel and invokes handler
// for each decoded notification until ctx is cancelled. Malformed
// payloads are logged and skipped.
func Listen(ctx context.Context, client *redis.Client, logger *zap.SugaredLogger, handler func(Notification)) {
	sub := client.Subscribe(ctx, Channel)
	defer sub.Close()

	ch := sub.Channel()
	logger.Infof("Listening for change notifications on %s", Channel)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var note Notification
			if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil {
				logger.Warnf("Dropping malformed notification: %v", err)
				continue
			}
			handler(note)
		}
	}
}

// Fanout forwards each notification to every wrapped notifier.
type Fanout []interface {
	GameChanged(gameID string, version int64)
	AchievementsChanged(gameID, playerID string)
}

func (f Fanout) GameChanged(gameID string, version int64) {
	for _, n := range f {
		n.GameChanged(gameID, version)
	}
}

func (f Fanout) AchievementsChanged(gameID, playerID string) {
	for _, n := range f {
		n.AchievementsChanged(gameID, playerID)
	}
}
