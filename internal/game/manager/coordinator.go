// Package manager hosts the session coordinator: the single
// authoritative owner of every active game's state in the distributed
// variant. All mutating calls for a game are serialized behind one
// mutex, turn ownership is validated atomically with the mutation, and
// committed changes are persisted and published to clients.
package manager

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/config"
	"github.com/maslul/backend/internal/game/achievements"
	"github.com/maslul/backend/internal/game/board"
	"github.com/maslul/backend/internal/game/cards"
	"github.com/maslul/backend/internal/game/engine"
	"github.com/maslul/backend/internal/game/models"
	"github.com/maslul/backend/internal/game/utils"
)

// ErrPersistence marks a failed commit. The in-memory state has been
// rolled back; the caller may retry after a refresh.
var ErrPersistence = errors.New("failed to persist game state")

// cleanupInterval is how often the idle-session sweep runs.
const cleanupInterval = 3 * time.Minute

// GameStore is the persistence collaborator. Implementations must be
// safe for concurrent use.
type GameStore interface {
	InsertGame(ctx context.Context, g *models.Game) error
	SaveGame(ctx context.Context, g *models.Game) error
	GetGame(ctx context.Context, id string) (*models.Game, error)
	GetGameByCode(ctx context.Context, code string) (*models.Game, error)
	ListGames(ctx context.Context, status models.GameStatus) ([]models.Game, error)
	CountGamesByCode(ctx context.Context, code string) (int64, error)
	AppendLog(ctx context.Context, gameID string, entries []models.LogEntry) error
	SaveAchievements(ctx context.Context, gameID string, records []models.AchievementRecord) error
	LoadAchievements(ctx context.Context, gameID string) ([]models.AchievementRecord, error)
}

// Notifier publishes "entity changed" notifications to clients. The
// payload carries no state; clients refetch on notify.
type Notifier interface {
	GameChanged(gameID string, version int64)
	AchievementsChanged(gameID string, playerID string)
}

// Coordinator manages all active game sessions of one server instance.
type Coordinator struct {
	ctx      context.Context
	cfg      *config.Config
	store    GameStore
	notifier Notifier
	logger   *zap.SugaredLogger
	track    *board.Definition
	decks    *cards.Decks
	newRand  func() *rand.Rand

	mu       sync.RWMutex
	sessions map[string]*session
}

// session is one authoritative game plus its engine and tracker. Its
// mutex serializes every mutating call for the game.
type session struct {
	mu       sync.Mutex
	game     *models.Game
	engine   *engine.Engine
	tracker  *achievements.Tracker
	events   []models.MetricEvent       // metric events buffered during the current op
	unlocked []models.AchievementRecord // unlocks collected during the current op
}

// New creates a coordinator. Deck or board problems are configuration
// errors and returned before any game can start.
func New(ctx context.Context, cfg *config.Config, store GameStore, notifier Notifier, logger *zap.SugaredLogger) (*Coordinator, error) {
	decks, err := cards.Load(cfg.Game.DeckFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load card decks: %w", err)
	}

	c := &Coordinator{
		ctx:      ctx,
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logger,
		track:    board.DefaultTrack(),
		decks:    decks,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		sessions: make(map[string]*session),
	}

	if err := c.resumeActiveGames(); err != nil {
		return nil, err
	}
	go c.runCleanupTask()
	return c, nil
}

// SetRandSource overrides the per-session random source factory.
// Intended for tests.
func (c *Coordinator) SetRandSource(f func() *rand.Rand) {
	c.newRand = f
}

// resumeActiveGames loads ACTIVE games back into memory after a server
// restart. WAITING lobbies are not preserved across restarts.
func (c *Coordinator) resumeActiveGames() error {
	if c.store == nil {
		return nil
	}
	games, err := c.store.ListGames(c.ctx, models.GameStatusActive)
	if err != nil {
		return fmt.Errorf("failed to load active games: %w", err)
	}
	for i := range games {
		g := games[i]
		c.hydrate(&g)
		c.logger.Infof("Resumed game %s (%s)", g.ID.Hex(), g.Code)
	}
	c.logger.Infof("Resumed %d active games", len(games))
	return nil
}

func (c *Coordinator) newSession(g *models.Game) *session {
	sess := &session{
		game:    g,
		tracker: achievements.NewTracker(nil, c.logger),
	}
	// Events are buffered, not fed to the tracker directly: mutate
	// applies them only once the operation is headed for a commit, so a
	// rolled-back operation leaves no phantom progress behind.
	observer := func(ev models.MetricEvent) {
		sess.events = append(sess.events, ev)
	}
	sess.engine = engine.New(g, c.decks, c.rules(), c.newRand(), c.logger, observer)
	return sess
}

func (c *Coordinator) rules() engine.Rules {
	return engine.Rules{
		PassStartBonus:   c.cfg.Game.PassStartBonus,
		TaxAmount:        c.cfg.Game.TaxAmount,
		JailMaxTurns:     c.cfg.Game.JailMaxTurns,
		ConstructionGoal: c.cfg.Game.ConstructionGoal,
		RoundLimit:       c.cfg.Game.RoundLimit,
	}
}

// CreateGame creates a new game in WAITING status with the host as the
// first player.
func (c *Coordinator) CreateGame(hostID, hostName, gameName string, maxPlayers int) (string, error) {
	roomCode, err := c.uniqueRoomCode()
	if err != nil {
		return "", err
	}
	if gameName == "" {
		gameName = "Game " + roomCode
	}
	if maxPlayers < c.cfg.Game.MinimumPlayersToStart {
		maxPlayers = c.cfg.Game.MinimumPlayersToStart
	} else if maxPlayers > c.cfg.Game.MaxPlayers {
		maxPlayers = c.cfg.Game.MaxPlayers
	}

	now := time.Now()
	g := &models.Game{
		ID:           primitive.NewObjectID(),
		Code:         roomCode,
		Name:         gameName,
		Status:       models.GameStatusWaiting,
		HostID:       hostID,
		MaxPlayers:   maxPlayers,
		Players:      []models.Player{c.newPlayer(hostID, hostName)},
		CurrentTurn:  -1,
		Tiles:        c.track.Instantiate(),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
	}

	if err := c.store.InsertGame(c.ctx, g); err != nil {
		return "", fmt.Errorf("failed to store game: %w", err)
	}

	c.mu.Lock()
	c.sessions[g.ID.Hex()] = c.newSession(g)
	c.mu.Unlock()

	c.logger.Infof("Created game %s with code %s and host %s", g.ID.Hex(), roomCode, hostID)
	return g.ID.Hex(), nil
}

func (c *Coordinator) newPlayer(id, name string) models.Player {
	if name == "" {
		name = id
	}
	return models.Player{
		ID:       id,
		Name:     name,
		Balance:  c.cfg.Game.InitialBalance,
		Visits:   make(map[string]int),
		Activity: models.ActivityWaiting,
	}
}

func (c *Coordinator) uniqueRoomCode() (string, error) {
	for {
		code, err := utils.GenerateRoomCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		count, err := c.store.CountGamesByCode(c.ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check room code uniqueness: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
}

// JoinGame adds a player to a waiting game.
func (c *Coordinator) JoinGame(gameID, playerID, playerName string) error {
	return c.mutate(gameID, func(s *session) error {
		g := s.game
		if g.Status != models.GameStatusWaiting {
			return fmt.Errorf("cannot join a game in %s status", g.Status)
		}
		if g.PlayerByID(playerID) != nil {
			return nil // already seated; joining twice is harmless
		}
		if len(g.Players) >= g.MaxPlayers {
			return errors.New("game is full")
		}
		g.Players = append(g.Players, c.newPlayer(playerID, playerName))
		c.logger.Infof("Player %s joined game %s", playerID, gameID)
		return nil
	})
}

// AddAIPlayer seats an AI opponent with the given personality profile.
func (c *Coordinator) AddAIPlayer(gameID string, profile models.AIProfile) error {
	return c.mutate(gameID, func(s *session) error {
		g := s.game
		if g.Status != models.GameStatusWaiting {
			return fmt.Errorf("cannot add AI to a game in %s status", g.Status)
		}
		if len(g.Players) >= g.MaxPlayers {
			return errors.New("game is full")
		}
		prof := profile
		p := c.newPlayer(fmt.Sprintf("ai-%s-%d", strings.ToLower(prof.Name), len(g.Players)), prof.Name)
		p.IsAI = true
		p.Profile = &prof
		g.Players = append(g.Players, p)
		c.logger.Infof("AI player %s (%s) added to game %s", p.ID, prof.Name, gameID)
		return nil
	})
}

// StartGame moves a waiting game to ACTIVE. Only the host may start;
// the turn order is shuffled once at start.
func (c *Coordinator) StartGame(gameID, requestingPlayerID string) error {
	return c.mutate(gameID, func(s *session) error {
		g := s.game
		if g.Status != models.GameStatusWaiting {
			return fmt.Errorf("game is not in %s status", models.GameStatusWaiting)
		}
		if len(g.Players) < c.cfg.Game.MinimumPlayersToStart {
			return errors.New("not enough players to start the game")
		}
		if requestingPlayerID != g.HostID {
			return errors.New("only the host can start the game")
		}

		rng := c.newRand()
		rng.Shuffle(len(g.Players), func(i, j int) {
			g.Players[i], g.Players[j] = g.Players[j], g.Players[i]
		})
		g.Status = models.GameStatusActive
		g.CurrentTurn = 0
		g.Round = 1
		c.logger.Infof("Game %s started with %d players", gameID, len(g.Players))
		return nil
	})
}

// CancelGame cancels a game that has not finished. Status transitions
// are monotonic; finished or cancelled games stay that way.
func (c *Coordinator) CancelGame(gameID, requestingPlayerID string) error {
	return c.mutate(gameID, func(s *session) error {
		g := s.game
		if requestingPlayerID != g.HostID {
			return errors.New("only the host can cancel the game")
		}
		if g.Status.Terminal() {
			return fmt.Errorf("game is already %s", g.Status)
		}
		g.Status = models.GameStatusCancelled
		return nil
	})
}

// Roll resolves a dice roll for the calling player.
func (c *Coordinator) Roll(gameID, playerID string) (*engine.RollResult, error) {
	var res *engine.RollResult
	err := c.mutate(gameID, func(s *session) error {
		var err error
		res, err = s.engine.Roll(playerID)
		return err
	})
	return res, err
}

// AcknowledgeCard applies the pending card for the calling player.
func (c *Coordinator) AcknowledgeCard(gameID, playerID string) error {
	return c.mutate(gameID, func(s *session) error {
		return s.engine.AcknowledgeCard(playerID)
	})
}

// EndTurn completes the calling player's turn.
func (c *Coordinator) EndTurn(gameID, playerID string) error {
	return c.mutate(gameID, func(s *session) error {
		return s.engine.EndTurn(playerID)
	})
}

// BuyLand purchases a tile for the calling player.
func (c *Coordinator) BuyLand(gameID, playerID string, tileID int) error {
	return c.mutate(gameID, func(s *session) error {
		return s.engine.BuyLand(playerID, tileID)
	})
}

// BuildChurch adds a tier-1 construction for the calling player.
func (c *Coordinator) BuildChurch(gameID, playerID string, tileID int) error {
	return c.mutate(gameID, func(s *session) error {
		return s.engine.BuildChurch(playerID, tileID)
	})
}

// BuildSynagogue adds a tier-2 construction for the calling player.
func (c *Coordinator) BuildSynagogue(gameID, playerID string, tileID int) error {
	return c.mutate(gameID, func(s *session) error {
		return s.engine.BuildSynagogue(playerID, tileID)
	})
}

// PayRent pays rent on a tile for the calling player.
func (c *Coordinator) PayRent(gameID, playerID string, tileID int) error {
	return c.mutate(gameID, func(s *session) error {
		return s.engine.PayRent(playerID, tileID)
	})
}

// ProposeTrade is the stubbed trading surface.
func (c *Coordinator) ProposeTrade(gameID, playerID, otherPlayerID string) error {
	return c.mutate(gameID, func(s *session) error {
		return s.engine.ProposeTrade(playerID, otherPlayerID)
	})
}

// Snapshot returns a deep copy of the current committed state for the
// renderer. The copy is safe to hand out; mutating it has no effect on
// the authoritative state.
func (c *Coordinator) Snapshot(gameID string) (*models.Game, error) {
	sess, err := c.session(gameID)
	if err != nil {
		// Not resident; serve the committed copy from the store.
		g, storeErr := c.store.GetGame(c.ctx, gameID)
		if storeErr != nil {
			return nil, err
		}
		return g, nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.game.Clone(), nil
}

// Achievements returns the player's achievement records for a game.
// For evicted terminal games the persisted unlocks are served from the
// store.
func (c *Coordinator) Achievements(gameID, playerID string) ([]models.AchievementRecord, error) {
	sess, err := c.session(gameID)
	if err != nil {
		g, storeErr := c.store.GetGame(c.ctx, gameID)
		if storeErr != nil {
			return nil, err
		}
		records, storeErr := c.store.LoadAchievements(c.ctx, g.ID.Hex())
		if storeErr != nil {
			return nil, storeErr
		}
		out := make([]models.AchievementRecord, 0, len(records))
		for _, r := range records {
			if r.PlayerID == playerID {
				out = append(out, r)
			}
		}
		return out, nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.tracker.Records(playerID), nil
}

// ListWaitingGames lists games that can still be joined.
func (c *Coordinator) ListWaitingGames() ([]models.Game, error) {
	return c.store.ListGames(c.ctx, models.GameStatusWaiting)
}

func (c *Coordinator) session(gameID string) (*session, error) {
	c.mu.RLock()
	sess, ok := c.sessions[gameID]
	c.mu.RUnlock()
	if ok {
		return sess, nil
	}

	// Room codes are an alternate key.
	g, err := c.store.GetGame(c.ctx, gameID)
	if err != nil {
		if code := utils.NormalizeRoomCode(gameID); utils.IsValidRoomCode(code) {
			g, err = c.store.GetGameByCode(c.ctx, code)
		}
	}
	if err != nil || g == nil {
		return nil, fmt.Errorf("game session not found: %s", gameID)
	}

	c.mu.RLock()
	sess, ok = c.sessions[g.ID.Hex()]
	c.mu.RUnlock()
	if ok {
		return sess, nil
	}

	// An active game with no resident session was evicted by the idle
	// sweep (or lives on another instance); rebuild it from the store.
	// Terminal games stay evicted.
	if g.Status == models.GameStatusActive {
		return c.hydrate(g), nil
	}
	return nil, fmt.Errorf("game session not found: %s", gameID)
}

// hydrate builds a resident session for a stored game, restoring its
// persisted achievement records. Idempotent under races: the first
// session registered wins.
func (c *Coordinator) hydrate(g *models.Game) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sess, ok := c.sessions[g.ID.Hex()]; ok {
		return sess
	}
	sess := c.newSession(g)
	if records, err := c.store.LoadAchievements(c.ctx, g.ID.Hex()); err != nil {
		c.logger.Warnf("Failed to load achievements for game %s: %v", g.ID.Hex(), err)
	} else {
		sess.tracker.Restore(records)
	}
	c.sessions[g.ID.Hex()] = sess
	return sess
}

// evict drops a session from memory. The committed state stays
// fetchable from the store; active games rehydrate on demand.
func (c *Coordinator) evict(gameID string) {
	c.mu.Lock()
	_, ok := c.sessions[gameID]
	delete(c.sessions, gameID)
	c.mu.Unlock()
	if ok {
		c.logger.Infof("Evicted session for game %s", gameID)
	}
}

// runCleanupTask periodically sweeps sessions idle past the configured
// expiry, so finished and abandoned games do not accumulate for the
// life of the process.
func (c *Coordinator) runCleanupTask() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.evictIdleSessions()
		}
	}
}

// evictIdleSessions drops every session whose last activity is older
// than the idle expiry. Stale WAITING lobbies are cancelled first so
// they stop showing up in listings; active games remain resumable
// through rehydration.
func (c *Coordinator) evictIdleSessions() {
	expiry := time.Duration(c.cfg.Game.IdleGameExpiry) * time.Hour
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	cutoff := time.Now().Add(-expiry)

	c.mu.RLock()
	ids := make([]string, 0, len(c.sessions))
	stale := make([]*session, 0, len(c.sessions))
	for id, sess := range c.sessions {
		ids = append(ids, id)
		stale = append(stale, sess)
	}
	c.mu.RUnlock()

	for i, sess := range stale {
		sess.mu.Lock()
		idle := sess.game.LastActivity.Before(cutoff)
		waiting := sess.game.Status == models.GameStatusWaiting
		sess.mu.Unlock()
		if !idle {
			continue
		}
		if waiting {
			err := c.mutate(ids[i], func(s *session) error {
				s.game.Status = models.GameStatusCancelled
				return nil
			})
			if err != nil {
				c.logger.Errorf("Failed to cancel stale lobby %s: %v", ids[i], err)
			}
			continue // a successful cancel evicts the terminal session
		}
		c.evict(ids[i])
	}
}

// mutate runs one operation against a game under its session mutex.
// Turn-ownership checks inside fn therefore happen atomically with the
// mutation. On a failed commit the in-memory state and the achievement
// tracker are both rolled back and ErrPersistence returned; validation
// failures from the engine pass through untouched (the engine mutates
// nothing on those paths).
func (c *Coordinator) mutate(gameID string, fn func(s *session) error) error {
	sess, err := c.session(gameID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	snapshot := sess.game.Clone()
	prevLogLen := len(sess.game.Log)
	sess.events = sess.events[:0]
	sess.unlocked = sess.unlocked[:0]

	if err := fn(sess); err != nil {
		return err
	}

	// Apply the metric events fn buffered. The tracker checkpoint lets
	// a failed commit undo the progress along with the game state.
	var trackerState []models.AchievementRecord
	if len(sess.events) > 0 {
		trackerState = sess.tracker.Checkpoint()
		for _, ev := range sess.events {
			sess.unlocked = append(sess.unlocked, sess.tracker.Observe(ev)...)
		}
	}

	now := time.Now()
	sess.game.Version++
	sess.game.UpdatedAt = now
	sess.game.LastActivity = now

	if err := c.commit(sess, prevLogLen); err != nil {
		*sess.game = *snapshot
		if len(sess.events) > 0 {
			sess.tracker.Rollback(trackerState)
		}
		c.logger.Errorf("Failed to commit game %s, rolled back: %v", gameID, err)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	c.publish(sess)
	if sess.game.Status.Terminal() {
		c.evict(sess.game.ID.Hex())
	}
	return nil
}

// commit persists the game and the new log entries with a bounded
// retry. Each attempt gets its own timeout; the final error surfaces
// to the caller as recoverable.
func (c *Coordinator) commit(sess *session, prevLogLen int) error {
	const attempts = 3
	var err error
	for i := 0; i < attempts; i++ {
		ctx, cancel := context.WithTimeout(c.ctx, 5*time.Second)
		err = c.store.SaveGame(ctx, sess.game)
		if err == nil && len(sess.game.Log) > prevLogLen {
			err = c.store.AppendLog(ctx, sess.game.ID.Hex(), sess.game.Log[prevLogLen:])
		}
		if err == nil && len(sess.unlocked) > 0 {
			err = c.store.SaveAchievements(ctx, sess.game.ID.Hex(), sess.unlocked)
		}
		cancel()
		if err == nil {
			return nil
		}
		c.logger.Warnf("Commit attempt %d/%d for game %s failed: %v",
			i+1, attempts, sess.game.ID.Hex(), err)
		select {
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		case <-c.ctx.Done():
			return c.ctx.Err()
		}
	}
	return err
}

func (c *Coordinator) publish(sess *session) {
	if c.notifier == nil {
		return
	}
	gameID := sess.game.ID.Hex()
	c.notifier.GameChanged(gameID, sess.game.Version)
	for _, rec := range sess.unlocked {
		c.notifier.AchievementsChanged(gameID, rec.PlayerID)
	}
}
