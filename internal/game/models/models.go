package models

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Game represents one game session. In the distributed variant the
// coordinator holds the authoritative copy; clients mirror it.
type Game struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"gameId"`
	Code         string             `bson:"code" json:"code"` // Alphanumeric room code
	Name         string             `bson:"name" json:"name"`
	Status       GameStatus         `bson:"status" json:"status"`
	HostID       string             `bson:"hostId" json:"hostId"`
	MaxPlayers   int                `bson:"maxPlayers" json:"maxPlayers"`
	Players      []Player           `bson:"players" json:"players"` // order is the turn sequence
	CurrentTurn  int                `bson:"currentTurn" json:"currentTurn"`
	Round        int                `bson:"round" json:"round"`
	Tiles        []Tile             `bson:"tiles" json:"tiles"`
	PendingCard  *PendingCard       `bson:"pendingCard,omitempty" json:"pendingCard,omitempty"`
	Log          []LogEntry         `bson:"log" json:"log"`
	WinnerID     string             `bson:"winnerId,omitempty" json:"winnerId,omitempty"`
	WinReason    WinReason          `bson:"winReason,omitempty" json:"winReason,omitempty"`
	Version      int64              `bson:"version" json:"version"` // bumped on every committed mutation
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
	LastActivity time.Time          `bson:"lastActivity" json:"lastActivity"`
}

// ActivePlayer returns the player whose turn it is, or nil before the
// game has started.
func (g *Game) ActivePlayer() *Player {
	if g.CurrentTurn < 0 || g.CurrentTurn >= len(g.Players) {
		return nil
	}
	return &g.Players[g.CurrentTurn]
}

// PlayerByID returns the player with the given ID, or nil.
func (g *Game) PlayerByID(id string) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

// TileByID returns the tile with the given ID, or nil.
func (g *Game) TileByID(id int) *Tile {
	for i := range g.Tiles {
		if g.Tiles[i].ID == id {
			return &g.Tiles[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the game. The coordinator snapshots a game
// before applying an operation so a failed persist can be rolled back, and
// the client mirror keeps predicted and authoritative copies separate.
func (g *Game) Clone() *Game {
	cp := *g
	cp.Players = make([]Player, len(g.Players))
	for i := range g.Players {
		cp.Players[i] = g.Players[i].clone()
	}
	cp.Tiles = make([]Tile, len(g.Tiles))
	copy(cp.Tiles, g.Tiles)
	cp.Log = make([]LogEntry, len(g.Log))
	copy(cp.Log, g.Log)
	if g.PendingCard != nil {
		pc := *g.PendingCard
		cp.PendingCard = &pc
	}
	return &cp
}

// Player represents a player in a game.
type Player struct {
	ID      string `bson:"playerId" json:"playerId"`
	Name    string `bson:"name" json:"name"`
	IsAI    bool   `bson:"isAi" json:"isAi"`
	Balance int    `bson:"balance" json:"balance"`

	Position   int   `bson:"position" json:"position"`
	Properties []int `bson:"properties" json:"properties"` // owned tile IDs

	// Visits counts landings on owned tiles, keyed by tile ID.
	// It gates construction eligibility. BSON map keys must be strings.
	Visits map[string]int `bson:"visits" json:"visits"`

	InJail             bool `bson:"inJail" json:"inJail"`
	JailTurns          int  `bson:"jailTurns" json:"jailTurns"`
	SkipNextTurn       bool `bson:"skipNextTurn" json:"skipNextTurn"`
	ImmuneUntilRound   int  `bson:"immuneUntilRound" json:"immuneUntilRound"`
	ConsecutiveDoubles int  `bson:"consecutiveDoubles" json:"consecutiveDoubles"`
	JailReleaseToken   bool `bson:"jailReleaseToken" json:"jailReleaseToken"`
	HasRolled          bool `bson:"hasRolled" json:"hasRolled"`

	Activity PlayerActivity `bson:"activity" json:"activity"`

	Profile *AIProfile `bson:"aiProfile,omitempty" json:"aiProfile,omitempty"`
}

func (p Player) clone() Player {
	cp := p
	cp.Properties = append([]int(nil), p.Properties...)
	cp.Visits = make(map[string]int, len(p.Visits))
	for k, v := range p.Visits {
		cp.Visits[k] = v
	}
	if p.Profile != nil {
		prof := *p.Profile
		cp.Profile = &prof
	}
	return cp
}

// VisitCount returns how many times the player has landed on the tile.
func (p *Player) VisitCount(tileID int) int {
	return p.Visits[strconv.Itoa(tileID)]
}

// RecordVisit increments the landing counter for the tile.
func (p *Player) RecordVisit(tileID int) {
	if p.Visits == nil {
		p.Visits = make(map[string]int)
	}
	p.Visits[strconv.Itoa(tileID)]++
}

// Owns reports whether the player owns the tile.
func (p *Player) Owns(tileID int) bool {
	for _, id := range p.Properties {
		if id == tileID {
			return true
		}
	}
	return false
}

// AIProfile holds the trait weights of an AI-controlled player.
// All weights are in [0,1]. TradePropensity is reserved; the engine
// does not read it while trading is stubbed.
type AIProfile struct {
	Name            string  `bson:"name" json:"name"`
	Aggression      float64 `bson:"aggression" json:"aggression"`
	Building        float64 `bson:"building" json:"building"`
	RiskTolerance   float64 `bson:"riskTolerance" json:"riskTolerance"`
	TradePropensity float64 `bson:"tradePropensity" json:"tradePropensity"`
	// ThinkingDelay paces AI turns in the local variant. Cosmetic only.
	ThinkingDelay time.Duration `bson:"thinkingDelayNs" json:"thinkingDelayNs"`
}

// Tile represents one fixed position on the circular track.
// Only TileProperty tiles ever carry an owner or construction counts.
type Tile struct {
	ID            int      `bson:"tileId" json:"tileId"`
	Name          string   `bson:"name" json:"name"`
	Type          TileType `bson:"type" json:"type"`
	Price         int      `bson:"price,omitempty" json:"price,omitempty"`
	BaseRent      int      `bson:"baseRent,omitempty" json:"baseRent,omitempty"`
	ChurchCost    int      `bson:"churchCost,omitempty" json:"churchCost,omitempty"`
	SynagogueCost int      `bson:"synagogueCost,omitempty" json:"synagogueCost,omitempty"`
	OwnerID       string   `bson:"ownerId,omitempty" json:"ownerId,omitempty"`
	Churches      int      `bson:"churches" json:"churches"`     // tier-1 constructions
	Synagogues    int      `bson:"synagogues" json:"synagogues"` // tier-2 constructions
}

// Card represents one card in a deck.
type Card struct {
	ID          string     `bson:"cardId" json:"cardId"`
	Deck        DeckType   `bson:"deck" json:"deck"`
	Description string     `bson:"description" json:"description"`
	Action      CardAction `bson:"action" json:"action"`
	Param       string     `bson:"param,omitempty" json:"param,omitempty"`
}

// PendingCard is a drawn card whose effects await the player's
// acknowledgement. While set, the turn cannot end.
type PendingCard struct {
	PlayerID string `bson:"playerId" json:"playerId"`
	Card     Card   `bson:"card" json:"card"`
}

// LogEntry is one human-readable line of the append-only action log.
// The UUID lets clients dedupe entries across repeated state refreshes.
type LogEntry struct {
	ID   string    `bson:"entryId" json:"entryId"`
	Seq  int64     `bson:"seq" json:"seq"`
	Text string    `bson:"text" json:"text"`
	At   time.Time `bson:"at" json:"at"`
}

// MetricEvent is an engine-emitted observation consumed by the
// achievement tracker.
type MetricEvent struct {
	PlayerID string `json:"playerId"`
	Metric   string `json:"metric"`
	Value    int    `json:"value"`
	// LessThan requests value<target semantics for threshold conditions.
	LessThan bool `json:"lessThan,omitempty"`
	// Combo marks the event's combo flag as satisfied.
	Combo bool `json:"combo,omitempty"`
}

// AchievementDef is one entry of the fixed achievement catalog.
type AchievementDef struct {
	ID        string        `bson:"defId" json:"defId"`
	Name      string        `bson:"name" json:"name"`
	Metric    string        `bson:"metric" json:"metric"`
	Condition ConditionType `bson:"condition" json:"condition"`
	Target    int           `bson:"target" json:"target"`
	// LessThan flips threshold comparison to value<target.
	LessThan bool `bson:"lessThan,omitempty" json:"lessThan,omitempty"`
}

// AchievementRecord tracks one player's progress toward one definition.
type AchievementRecord struct {
	DefID      string     `bson:"defId" json:"defId"`
	PlayerID   string     `bson:"playerId" json:"playerId"`
	Unlocked   bool       `bson:"unlocked" json:"unlocked"`
	Progress   int        `bson:"progress" json:"progress"`
	UnlockedAt *time.Time `bson:"unlockedAt,omitempty" json:"unlockedAt,omitempty"`
}

// GameStatus represents the lifecycle status of a game.
// Transitions are monotonic: finished and cancelled are terminal.
type GameStatus string

const (
	GameStatusWaiting   GameStatus = "WAITING"
	GameStatusActive    GameStatus = "ACTIVE"
	GameStatusFinished  GameStatus = "FINISHED"
	GameStatusCancelled GameStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s GameStatus) Terminal() bool {
	return s == GameStatusFinished || s == GameStatusCancelled
}

// PlayerActivity is the display status exposed to the renderer.
type PlayerActivity string

const (
	ActivityWaiting  PlayerActivity = "WAITING"
	ActivityRolling  PlayerActivity = "ROLLING"
	ActivityThinking PlayerActivity = "THINKING"
)

// TileType is the closed set of tile behaviors. The engine matches it
// exhaustively in its tile-effect step.
type TileType string

const (
	TileProperty  TileType = "PROPERTY"
	TilePort      TileType = "PORT"
	TileJail      TileType = "JAIL"
	TileGoToJail  TileType = "GO_TO_JAIL"
	TileCommunity TileType = "COMMUNITY_CARD"
	TileChance    TileType = "CHANCE_CARD"
	TileRestStop  TileType = "REST_STOP"
	TileTax       TileType = "TAX"
	TileSabbath   TileType = "SABBATH"
	TileImmunity  TileType = "IMMUNITY"
	TileStart     TileType = "START"
)

// DeckType identifies one of the two card decks.
type DeckType string

const (
	DeckCommunity DeckType = "COMMUNITY"
	DeckChance    DeckType = "CHANCE"
)

// CardAction is the machine-actionable tag of a card.
type CardAction string

const (
	CardAddMoney        CardAction = "ADD_MONEY"
	CardLoseMoney       CardAction = "LOSE_MONEY"
	CardMoveTo          CardAction = "MOVE_TO_TILE"
	CardMoveToWithBonus CardAction = "MOVE_TO_TILE_WITH_PASS_BONUS"
	CardMoveToPort      CardAction = "MOVE_TO_NEAREST_PORT"
	CardGoToJail        CardAction = "SEND_TO_JAIL"
	CardJailToken       CardAction = "GRANT_JAIL_RELEASE_TOKEN"
)

// ConditionType classifies how an achievement condition is evaluated.
type ConditionType string

const (
	ConditionThreshold ConditionType = "THRESHOLD"
	ConditionCounter   ConditionType = "COUNTER"
	ConditionStreak    ConditionType = "STREAK"
	ConditionCombo     ConditionType = "COMBO"
	ConditionEvent     ConditionType = "EVENT"
)

// WinReason explains why a game ended.
type WinReason string

const (
	WinLastStanding     WinReason = "last standing"
	WinConstructionGoal WinReason = "construction goal"
	WinRichestAtLimit   WinReason = "richest at limit"
)
