package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/game/models"
	"github.com/maslul/backend/internal/game/utils"
)

// ErrGameNotFound is returned when no game matches the given ID or code.
var ErrGameNotFound = errors.New("game not found")

// GameStore persists games, their action logs, and achievement
// records. Documents are replaced wholesale on save; the coordinator
// serializes writers per game, so last-write-wins is safe here.
type GameStore struct {
	client       *Client
	games        *mongo.Collection
	log          *mongo.Collection
	achievements *mongo.Collection
	logger       *zap.SugaredLogger
}

// NewGameStore creates a store over the given collections.
func NewGameStore(client *Client, dbName, gamesColl, logColl, achColl string, logger *zap.SugaredLogger) *GameStore {
	return &GameStore{
		client:       client,
		games:        client.Collection(dbName, gamesColl),
		log:          client.Collection(dbName, logColl),
		achievements: client.Collection(dbName, achColl),
		logger:       logger,
	}
}

// InsertGame stores a newly created game.
func (s *GameStore) InsertGame(ctx context.Context, g *models.Game) error {
	return s.client.Do(func() error {
		_, err := s.games.InsertOne(ctx, g)
		if err != nil {
			return fmt.Errorf("failed to insert game %s: %w", g.ID.Hex(), err)
		}
		return nil
	})
}

// SaveGame replaces the stored document with the current state.
func (s *GameStore) SaveGame(ctx context.Context, g *models.Game) error {
	return s.client.Do(func() error {
		res, err := s.games.ReplaceOne(ctx, bson.M{"_id": g.ID}, g)
		if err != nil {
			return fmt.Errorf("failed to save game %s: %w", g.ID.Hex(), err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("failed to save game %s: %w", g.ID.Hex(), ErrGameNotFound)
		}
		return nil
	})
}

// GetGame fetches a game by its hex object ID.
func (s *GameStore) GetGame(ctx context.Context, id string) (*models.Game, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid game id %q: %w", id, ErrGameNotFound)
	}
	var g models.Game
	err = s.client.Do(func() error {
		return s.games.FindOne(ctx, bson.M{"_id": oid}).Decode(&g)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch game %s: %w", id, err)
	}
	return &g, nil
}

// GetGameByCode fetches a game by its room code.
func (s *GameStore) GetGameByCode(ctx context.Context, code string) (*models.Game, error) {
	var g models.Game
	err := s.client.Do(func() error {
		return s.games.FindOne(ctx, bson.M{"code": utils.NormalizeRoomCode(code)}).Decode(&g)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch game with code %s: %w", code, err)
	}
	return &g, nil
}

// ListGames returns games in the given status, most recently active first.
func (s *GameStore) ListGames(ctx context.Context, status models.GameStatus) ([]models.Game, error) {
	var games []models.Game
	err := s.client.Do(func() error {
		opts := options.Find().SetSort(bson.D{{Key: "lastActivity", Value: -1}}).SetLimit(100)
		cursor, err := s.games.Find(ctx, bson.M{"status": status}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &games)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s games: %w", status, err)
	}
	return games, nil
}

// CountGamesByCode counts games carrying a room code. Used to keep
// codes unique at creation time.
func (s *GameStore) CountGamesByCode(ctx context.Context, code string) (int64, error) {
	var count int64
	err := s.client.Do(func() error {
		var err error
		count, err = s.games.CountDocuments(ctx, bson.M{"code": utils.NormalizeRoomCode(code)})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count games with code %s: %w", code, err)
	}
	return count, nil
}

// logDocument is one action log entry as stored, keyed by game.
type logDocument struct {
	GameID  string    `bson:"gameId"`
	EntryID string    `bson:"entryId"`
	Seq     int64     `bson:"seq"`
	Text    string    `bson:"text"`
	At      time.Time `bson:"at"`
}

// AppendLog stores new action log entries. The unique (gameId, seq)
// index makes redelivery after a partial commit harmless.
func (s *GameStore) AppendLog(ctx context.Context, gameID string, entries []models.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, logDocument{
			GameID:  gameID,
			EntryID: e.ID,
			Seq:     e.Seq,
			Text:    e.Text,
			At:      e.At,
		})
	}
	return s.client.Do(func() error {
		_, err := s.log.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		if err != nil && !isDuplicateKey(err) {
			return fmt.Errorf("failed to append log for game %s: %w", gameID, err)
		}
		return nil
	})
}

// GetLog returns a game's action log in sequence order.
func (s *GameStore) GetLog(ctx context.Context, gameID string) ([]models.LogEntry, error) {
	var docs []logDocument
	err := s.client.Do(func() error {
		opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
		cursor, err := s.log.Find(ctx, bson.M{"gameId": gameID}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &docs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch log for game %s: %w", gameID, err)
	}
	entries := make([]models.LogEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, models.LogEntry{ID: d.EntryID, Seq: d.Seq, Text: d.Text, At: d.At})
	}
	return entries, nil
}

// SaveAchievements upserts achievement records for a game.
func (s *GameStore) SaveAchievements(ctx context.Context, gameID string, records []models.AchievementRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.client.Do(func() error {
		for _, rec := range records {
			filter := bson.M{"gameId": gameID, "playerId": rec.PlayerID, "defId": rec.DefID}
			update := bson.M{"$set": bson.M{
				"unlocked":   rec.Unlocked,
				"progress":   rec.Progress,
				"unlockedAt": rec.UnlockedAt,
			}}
			if _, err := s.achievements.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
				return fmt.Errorf("failed to save achievement %s for player %s: %w", rec.DefID, rec.PlayerID, err)
			}
		}
		return nil
	})
}

// LoadAchievements returns all achievement records stored for a game.
func (s *GameStore) LoadAchievements(ctx context.Context, gameID string) ([]models.AchievementRecord, error) {
	var records []models.AchievementRecord
	err := s.client.Do(func() error {
		cursor, err := s.achievements.Find(ctx, bson.M{"gameId": gameID})
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)
		return cursor.All(ctx, &records)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements for game %s: %w", gameID, err)
	}
	return records, nil
}

func isDuplicateKey(err error) bool {
	var writeErr mongo.BulkWriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code != 11000 {
				return false
			}
		}
		return len(writeErr.WriteErrors) > 0
	}
	return mongo.IsDuplicateKeyError(err)
}
