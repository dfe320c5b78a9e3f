// Package local runs a complete game in one process with no server,
// store, or network. The same engine drives both variants; this
// package supplies the turn loop the coordinator's clients would
// otherwise provide.
package local

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/maslul/backend/internal/game/achievements"
	"github.com/maslul/backend/internal/game/ai"
	"github.com/maslul/backend/internal/game/board"
	"github.com/maslul/backend/internal/game/cards"
	"github.com/maslul/backend/internal/game/engine"
	"github.com/maslul/backend/internal/game/models"
)

// Options configures a local game.
type Options struct {
	Players        []models.AIProfile // one AI seat per profile
	InitialBalance int
	Rules          engine.Rules
	Seed           int64
	// ApplyDelays sleeps each AI's thinking delay before acting,
	// pacing the game for a watching human. Off in tests.
	ApplyDelays bool
}

// Runner drives one local game to completion.
type Runner struct {
	game    *models.Game
	engine  *engine.Engine
	tracker *achievements.Tracker
	rng     *rand.Rand
	delays  bool
	logger  *zap.SugaredLogger
}

// NewRunner assembles a game from the options. At least two players
// are required.
func NewRunner(opts Options, logger *zap.SugaredLogger) (*Runner, error) {
	if len(opts.Players) < 2 {
		return nil, fmt.Errorf("a game needs at least 2 players, got %d", len(opts.Players))
	}
	if opts.InitialBalance <= 0 {
		opts.InitialBalance = 1500
	}
	if opts.Rules == (engine.Rules{}) {
		opts.Rules = engine.DefaultRules()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	decks, err := cards.Load("")
	if err != nil {
		return nil, err
	}

	g := &models.Game{
		Status:      models.GameStatusActive,
		Tiles:       board.DefaultTrack().Instantiate(),
		CurrentTurn: 0,
		Round:       1,
	}
	for i, prof := range opts.Players {
		p := prof
		g.Players = append(g.Players, models.Player{
			ID:       fmt.Sprintf("player-%d", i+1),
			Name:     p.Name,
			Balance:  opts.InitialBalance,
			Visits:   make(map[string]int),
			Activity: models.ActivityWaiting,
			IsAI:     true,
			Profile:  &p,
		})
	}
	rng.Shuffle(len(g.Players), func(i, j int) {
		g.Players[i], g.Players[j] = g.Players[j], g.Players[i]
	})

	tracker := achievements.NewTracker(nil, logger)
	r := &Runner{
		game:    g,
		tracker: tracker,
		rng:     rng,
		delays:  opts.ApplyDelays,
		logger:  logger,
	}
	r.engine = engine.New(g, decks, opts.Rules, rng, logger, func(ev models.MetricEvent) {
		for _, rec := range tracker.Observe(ev) {
			logger.Infof("%s unlocked achievement %s", ev.PlayerID, rec.DefID)
		}
	})
	return r, nil
}

// Game exposes the live game state.
func (r *Runner) Game() *models.Game {
	return r.game
}

// Tracker exposes the achievement tracker.
func (r *Runner) Tracker() *achievements.Tracker {
	return r.tracker
}

// Run plays turns until the game finishes or maxTurns is exhausted.
// Returns the winner, or nil if the turn limit cut the game short.
func (r *Runner) Run(maxTurns int) (*models.Player, error) {
	for turn := 0; turn < maxTurns; turn++ {
		if r.game.Status != models.GameStatusActive {
			break
		}
		if err := r.PlayTurn(); err != nil {
			return nil, err
		}
	}
	if r.game.WinnerID == "" {
		return nil, nil
	}
	return r.game.PlayerByID(r.game.WinnerID), nil
}

// PlayTurn plays the active player's whole turn: roll, card
// acknowledgement, rent, purchase and construction decisions, end.
func (r *Runner) PlayTurn() error {
	p := r.game.ActivePlayer()
	if p == nil {
		return fmt.Errorf("no active player")
	}
	r.think(p)

	result, err := r.engine.Roll(p.ID)
	if err != nil {
		return fmt.Errorf("roll for %s: %w", p.ID, err)
	}

	if result.CardDrawn != nil {
		r.think(p)
		if err := r.engine.AcknowledgeCard(p.ID); err != nil {
			return fmt.Errorf("acknowledge card for %s: %w", p.ID, err)
		}
	}

	if r.game.Status == models.GameStatusActive {
		r.decide(p)
	}

	if err := r.engine.EndTurn(p.ID); err != nil {
		return fmt.Errorf("end turn for %s: %w", p.ID, err)
	}
	return nil
}

// decide settles rent and then applies the player's purchase and
// construction choices for the turn.
func (r *Runner) decide(p *models.Player) {
	tile := r.game.TileByID(p.Position)
	if tile == nil {
		return
	}

	if tile.Type == models.TileProperty && tile.OwnerID != "" && tile.OwnerID != p.ID {
		if err := r.engine.PayRent(p.ID, tile.ID); err != nil {
			r.logger.Debugf("Rent not settled for %s on tile %d: %v", p.ID, tile.ID, err)
		}
	}

	if tile.Type == models.TileProperty && tile.OwnerID == "" {
		r.think(p)
		if ai.DecideBuy(p, tile, r.rng) {
			if err := r.engine.BuyLand(p.ID, tile.ID); err != nil {
				r.logger.Debugf("Buy failed for %s on tile %d: %v", p.ID, tile.ID, err)
			}
		}
	}

	// One construction consideration per owned property per turn.
	for _, tileID := range p.Properties {
		owned := r.game.TileByID(tileID)
		if owned == nil {
			continue
		}
		if owned.Churches == 0 || p.VisitCount(tileID) < 1 {
			if ai.DecideBuildChurch(p, owned, r.rng) {
				if err := r.engine.BuildChurch(p.ID, tileID); err != nil {
					r.logger.Debugf("Church build skipped for %s on tile %d: %v", p.ID, tileID, err)
				}
			}
			continue
		}
		if ai.DecideBuildSynagogue(p, owned, r.rng) {
			if err := r.engine.BuildSynagogue(p.ID, tileID); err != nil {
				r.logger.Debugf("Synagogue build skipped for %s on tile %d: %v", p.ID, tileID, err)
			}
		}
	}
}

func (r *Runner) think(p *models.Player) {
	if !r.delays || p.Profile == nil || p.Profile.ThinkingDelay <= 0 {
		return
	}
	p.Activity = models.ActivityThinking
	time.Sleep(p.Profile.ThinkingDelay)
	p.Activity = models.ActivityWaiting
}
