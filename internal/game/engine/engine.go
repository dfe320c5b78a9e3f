// Package engine implements the turn state machine of the game: dice
// resolution, movement and tile effects, the jail state machine, card
// draws, property economics and win evaluation.
//
// The engine owns all mutation of a game's state. It does not know
// whether it runs in-process (local variant) or behind the session
// coordinator (distributed variant); the caller provides serialization.
package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maslul/backend/internal/game/board"
	"github.com/maslul/backend/internal/game/cards"
	"github.com/maslul/backend/internal/game/economy"
	"github.com/maslul/backend/internal/game/models"
)

// Rent uplift and construction gating are fixed by the game's economy
// and are not configurable.
const (
	churchRentBonus    = 50 // rent added per tier-1 construction
	synagogueRentBonus = 25 // rent added per tier-2 construction
	churchVisitMin     = 3  // landings required before a church may be built
	synagogueVisitMin  = 1  // landings required before a synagogue may be built
)

// Rules carries the configurable rule parameters of one game.
type Rules struct {
	PassStartBonus   int
	TaxAmount        int
	JailMaxTurns     int
	ConstructionGoal int
	RoundLimit       int
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		PassStartBonus:   200,
		TaxAmount:        100,
		JailMaxTurns:     3,
		ConstructionGoal: 10,
		RoundLimit:       20,
	}
}

// Observer receives engine-emitted metric events. The achievement
// tracker is the primary consumer.
type Observer func(ev models.MetricEvent)

// Engine drives one game. It is not safe for concurrent use; callers
// serialize access (the coordinator holds a per-game mutex, the local
// variant is single-threaded).
type Engine struct {
	game     *models.Game
	decks    *cards.Decks
	rules    Rules
	rng      *rand.Rand
	logger   *zap.SugaredLogger
	observer Observer

	rolling  bool         // re-entrancy guard while dice are in flight
	rentPaid map[int]bool // tiles rent was paid on this turn
}

// New creates an engine for the given game. The random source is
// injected so tests can seed it.
func New(game *models.Game, decks *cards.Decks, rules Rules, rng *rand.Rand, logger *zap.SugaredLogger, obs Observer) *Engine {
	return &Engine{
		game:     game,
		decks:    decks,
		rules:    rules,
		rng:      rng,
		logger:   logger,
		observer: obs,
		rentPaid: make(map[int]bool),
	}
}

// Game returns the game state the engine drives.
func (e *Engine) Game() *models.Game {
	return e.game
}

// RollResult describes the outcome of one dice roll.
type RollResult struct {
	Die1, Die2       int
	Doubles          bool
	From, To         int
	StayedInJail     bool
	ReleasedFromJail bool
	SentToJail       bool
	PassedStart      bool
	TeleportedTo     int // -1 unless a port relocated the player
	CardDrawn        *models.Card
}

// Roll resolves one dice roll for the player: jail resolution, doubles
// bookkeeping, movement and the landed tile's effect.
func (e *Engine) Roll(playerID string) (*RollResult, error) {
	g := e.game
	if g.Status != models.GameStatusActive {
		return nil, ErrGameNotActive
	}
	p := g.PlayerByID(playerID)
	if p == nil {
		return nil, ErrUnknownPlayer
	}
	if active := g.ActivePlayer(); active == nil || active.ID != playerID {
		return nil, ErrNotYourTurn
	}
	if p.HasRolled {
		return nil, ErrAlreadyRolled
	}
	if g.PendingCard != nil {
		return nil, ErrCardPending
	}
	if e.rolling {
		return nil, ErrRollInFlight
	}
	e.rolling = true
	defer func() { e.rolling = false }()

	d1 := e.rng.Intn(6) + 1
	d2 := e.rng.Intn(6) + 1
	res := &RollResult{
		Die1:         d1,
		Die2:         d2,
		Doubles:      d1 == d2,
		From:         p.Position,
		To:           p.Position,
		TeleportedTo: -1,
	}
	p.HasRolled = true
	e.logf("%s rolled %d and %d", p.Name, d1, d2)

	wasJailed := p.InJail
	if p.InJail {
		switch {
		case p.JailTurns >= e.rules.JailMaxTurns:
			e.logf("%s has served the full sentence and is released", p.Name)
		case res.Doubles:
			e.logf("%s rolled doubles and is released from jail", p.Name)
		case p.JailReleaseToken:
			p.JailReleaseToken = false
			e.logf("%s used a release token to leave jail", p.Name)
		default:
			p.JailTurns++
			e.logf("%s stays in jail (%d turns served)", p.Name, p.JailTurns)
			res.StayedInJail = true
			return res, nil
		}
		p.InJail = false
		p.JailTurns = 0
		res.ReleasedFromJail = true
	}

	if res.Doubles {
		p.ConsecutiveDoubles++
		e.observe(models.MetricEvent{
			PlayerID: p.ID, Metric: MetricDoublesStreak, Value: p.ConsecutiveDoubles,
		})
	} else {
		p.ConsecutiveDoubles = 0
	}
	if p.ConsecutiveDoubles >= 3 {
		// Three consecutive doubles override the computed movement.
		e.sendToJail(p, res)
		e.logf("%s rolled three doubles in a row and is sent to jail", p.Name)
		return res, nil
	}

	total := d1 + d2
	raw := p.Position + total
	dest := raw % len(g.Tiles)
	if raw >= len(g.Tiles) && !wasJailed {
		e.award(p, e.rules.PassStartBonus, "pass-start bonus")
		e.logf("%s completed a circuit and collects %d", p.Name, e.rules.PassStartBonus)
		e.observe(models.MetricEvent{PlayerID: p.ID, Metric: MetricStartPasses, Value: 1})
		res.PassedStart = true
	}
	p.Position = dest
	res.To = dest
	e.logf("%s moved to %s", p.Name, g.Tiles[dest].Name)

	if err := e.applyTileEffect(p, res); err != nil {
		return nil, err
	}

	// Landing on an owned tile counts toward construction eligibility.
	landed := &g.Tiles[p.Position]
	if landed.OwnerID == p.ID {
		p.RecordVisit(landed.ID)
	}
	return res, nil
}

// applyTileEffect applies the landed tile's behavior. The switch is
// exhaustive over the tile-type enum; board validation rejects unknown
// types at game start.
func (e *Engine) applyTileEffect(p *models.Player, res *RollResult) error {
	g := e.game
	t := &g.Tiles[p.Position]

	switch t.Type {
	case models.TileGoToJail:
		e.sendToJail(p, res)
		e.logf("%s is sent to jail", p.Name)

	case models.TileSabbath:
		p.SkipNextTurn = true
		e.logf("%s observes the sabbath and will skip the next turn", p.Name)

	case models.TileImmunity:
		p.ImmuneUntilRound = g.Round + 1
		e.logf("%s is blessed with tax immunity until round %d", p.Name, p.ImmuneUntilRound)

	case models.TileTax:
		if p.ImmuneUntilRound >= g.Round {
			e.logf("%s is immune and pays no toll", p.Name)
			e.observe(models.MetricEvent{PlayerID: p.ID, Metric: MetricTaxDodged, Value: 1, Combo: true})
		} else {
			e.charge(p, e.rules.TaxAmount, "road toll")
			e.logf("%s pays a road toll of %d", p.Name, e.rules.TaxAmount)
		}

	case models.TilePort:
		// An immediate relocation to the next port in track order.
		// The destination port does not teleport again.
		next := board.NextOfType(g.Tiles, p.Position, models.TilePort)
		p.Position = next
		res.To = next
		res.TeleportedTo = next
		e.logf("%s sails on to %s", p.Name, g.Tiles[next].Name)

	case models.TileCommunity:
		e.drawCard(p, models.DeckCommunity, res)

	case models.TileChance:
		e.drawCard(p, models.DeckChance, res)

	case models.TileRestStop:
		e.logf("%s rests at %s", p.Name, t.Name)

	case models.TileStart, models.TileJail, models.TileProperty:
		// Start pays only when passed, jail is just a visit, and
		// property rent is an explicit operation by the payer.

	default:
		return fmt.Errorf("tile %d has unhandled type %q", t.ID, t.Type)
	}
	return nil
}

func (e *Engine) sendToJail(p *models.Player, res *RollResult) {
	jail := board.JailIndex(e.game.Tiles)
	p.Position = jail
	p.InJail = true
	p.ConsecutiveDoubles = 0
	res.SentToJail = true
	res.To = jail
	e.observe(models.MetricEvent{PlayerID: p.ID, Metric: MetricJailVisits, Value: 1})
}

func (e *Engine) drawCard(p *models.Player, deck models.DeckType, res *RollResult) {
	card := e.decks.Draw(deck, e.rng)
	e.game.PendingCard = &models.PendingCard{PlayerID: p.ID, Card: card}
	res.CardDrawn = &card
	e.logf("%s draws a card: %s", p.Name, card.Description)
	e.observe(models.MetricEvent{PlayerID: p.ID, Metric: MetricCardsDrawn, Value: 1})
}

// AcknowledgeCard applies the pending card's effects and ends the
// suspended state. It must be called before EndTurn succeeds.
func (e *Engine) AcknowledgeCard(playerID string) error {
	g := e.game
	if g.Status != models.GameStatusActive {
		return ErrGameNotActive
	}
	if g.PendingCard == nil {
		return ErrNoCardPending
	}
	if g.PendingCard.PlayerID != playerID {
		return ErrNotYourTurn
	}
	p := g.PlayerByID(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}

	card := g.PendingCard.Card
	eff, err := cards.Resolve(card, p, g.Tiles)
	if err != nil {
		return fmt.Errorf("failed to resolve card: %w", err)
	}

	switch {
	case eff.MoneyDelta > 0:
		e.award(p, eff.MoneyDelta, "card: "+card.Description)
		e.logf("%s collects %d", p.Name, eff.MoneyDelta)
	case eff.MoneyDelta < 0:
		e.charge(p, -eff.MoneyDelta, "card: "+card.Description)
		e.logf("%s pays %d", p.Name, -eff.MoneyDelta)
	}

	if eff.SendToJail {
		var res RollResult
		e.sendToJail(p, &res)
		e.logf("%s is sent to jail by the card", p.Name)
	} else if eff.NewPosition >= 0 {
		if eff.AwardPassBonus {
			e.award(p, e.rules.PassStartBonus, "pass-start bonus")
			e.logf("%s completed a circuit and collects %d", p.Name, e.rules.PassStartBonus)
			e.observe(models.MetricEvent{PlayerID: p.ID, Metric: MetricStartPasses, Value: 1})
		}
		p.Position = eff.NewPosition
		e.logf("%s moves to %s", p.Name, g.Tiles[eff.NewPosition].Name)
		if landed := &g.Tiles[eff.NewPosition]; landed.OwnerID == p.ID {
			p.RecordVisit(landed.ID)
		}
	}

	if eff.GrantJailToken {
		p.JailReleaseToken = true
		e.logf("%s receives a jail release token", p.Name)
	}

	g.PendingCard = nil
	return nil
}

// EndTurn completes the active player's turn, consumes any chained
// skip-turn flags, and advances turn ownership. The round counter is
// incremented each time ownership wraps past index 0.
func (e *Engine) EndTurn(playerID string) error {
	g := e.game
	if g.Status != models.GameStatusActive {
		return ErrGameNotActive
	}
	active := g.ActivePlayer()
	if active == nil || active.ID != playerID {
		return ErrNotYourTurn
	}
	if !active.HasRolled {
		return ErrHasNotRolled
	}
	if g.PendingCard != nil {
		return ErrCardPending
	}

	e.rentPaid = make(map[int]bool)

	n := len(g.Players)
	idx := g.CurrentTurn
	for {
		idx = (idx + 1) % n
		if idx == 0 {
			g.Round++
			e.logf("Round %d begins", g.Round)
		}
		next := &g.Players[idx]
		if next.SkipNextTurn {
			next.SkipNextTurn = false
			e.logf("%s skips this turn", next.Name)
			continue
		}
		break
	}
	g.CurrentTurn = idx

	for i := range g.Players {
		g.Players[i].HasRolled = false
		g.Players[i].Activity = models.ActivityWaiting
	}

	if win := EvaluateWin(g, e.rules); win != nil {
		g.Status = models.GameStatusFinished
		g.WinnerID = win.PlayerID
		g.WinReason = win.Reason
		winner := g.PlayerByID(win.PlayerID)
		e.logf("%s wins the game (%s)", winner.Name, win.Reason)
		e.observe(models.MetricEvent{PlayerID: win.PlayerID, Metric: MetricGamesWon, Value: 1})
	}
	return nil
}

// award credits a single player through the ledger.
func (e *Engine) award(p *models.Player, amount int, reason string) {
	applied, err := economy.Apply(e.game, []economy.Transaction{
		{PlayerID: p.ID, Amount: amount, Reason: reason},
	})
	if err != nil {
		// The player was resolved by the caller; a ledger miss here is a
		// programmer error.
		panic(err)
	}
	e.observeBalance(applied)
}

// charge debits a single player through the ledger, clamped at zero.
func (e *Engine) charge(p *models.Player, amount int, reason string) {
	applied, err := economy.Apply(e.game, []economy.Transaction{
		{PlayerID: p.ID, Amount: -amount, Reason: reason},
	})
	if err != nil {
		panic(err)
	}
	e.observeBalance(applied)
}

func (e *Engine) observeBalance(applied []economy.Applied) {
	for _, a := range applied {
		e.observe(models.MetricEvent{PlayerID: a.PlayerID, Metric: MetricBalance, Value: a.NewBalance})
	}
}

func (e *Engine) observe(ev models.MetricEvent) {
	if e.observer != nil {
		e.observer(ev)
	}
}

// logf appends one human-readable line to the game's append-only log.
// The UUID lets clients dedupe entries across repeated state refreshes.
func (e *Engine) logf(format string, args ...interface{}) {
	g := e.game
	var seq int64 = 1
	if len(g.Log) > 0 {
		seq = g.Log[len(g.Log)-1].Seq + 1
	}
	entry := models.LogEntry{
		ID:   uuid.New().String(),
		Seq:  seq,
		Text: fmt.Sprintf(format, args...),
		At:   time.Now(),
	}
	g.Log = append(g.Log, entry)
	if e.logger != nil {
		e.logger.Debugf("[game %s] %s", g.Code, entry.Text)
	}
}
