// Package cards draws and resolves event cards from the two decks.
package cards

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/maslul/backend/internal/game/models"
)

// Fallback amounts used when a money card carries no parseable amount.
// These values are load-bearing for compatibility with the original
// game's card texts; do not change them.
const (
	FallbackGain = 100
	FallbackLoss = 50
)

// Decks holds the two per-game card decks.
type Decks struct {
	Community []models.Card
	Chance    []models.Card
}

// Load returns the decks for a game. If path is empty the built-in
// catalog is used; otherwise the JSON file at path is loaded. An empty
// deck is a fatal configuration error.
func Load(path string) (*Decks, error) {
	if path == "" {
		return builtinDecks(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck file: %w", err)
	}
	var all []models.Card
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("failed to parse deck file: %w", err)
	}

	d := &Decks{}
	for _, c := range all {
		switch c.Deck {
		case models.DeckCommunity:
			d.Community = append(d.Community, c)
		case models.DeckChance:
			d.Chance = append(d.Chance, c)
		default:
			return nil, fmt.Errorf("card %q belongs to unknown deck %q", c.ID, c.Deck)
		}
	}
	if len(d.Community) == 0 || len(d.Chance) == 0 {
		return nil, fmt.Errorf("deck file %s must define both decks (community=%d, chance=%d)",
			path, len(d.Community), len(d.Chance))
	}
	return d, nil
}

// Draw returns a uniformly-random card from the requested deck.
func (d *Decks) Draw(deck models.DeckType, rng *rand.Rand) models.Card {
	switch deck {
	case models.DeckCommunity:
		return d.Community[rng.Intn(len(d.Community))]
	case models.DeckChance:
		return d.Chance[rng.Intn(len(d.Chance))]
	}
	// Decks are validated at load; an unknown deck type here is a
	// programmer error.
	panic(fmt.Sprintf("draw from unknown deck %q", deck))
}

// Effect is the state-free result of resolving a card. The rules engine
// applies it; Resolve itself mutates nothing.
type Effect struct {
	MoneyDelta     int
	NewPosition    int // -1 when the card does not move the player
	AwardPassBonus bool
	SendToJail     bool
	GrantJailToken bool
	Description    string
}

// Resolve translates a card's action tag into an effect for the player.
func Resolve(card models.Card, player *models.Player, tiles []models.Tile) (Effect, error) {
	eff := Effect{NewPosition: -1, Description: card.Description}

	switch card.Action {
	case models.CardAddMoney:
		eff.MoneyDelta = ParseAmount(card, true)
	case models.CardLoseMoney:
		eff.MoneyDelta = -ParseAmount(card, false)
	case models.CardMoveTo, models.CardMoveToWithBonus:
		target, err := strconv.Atoi(card.Param)
		if err != nil || target < 0 || target >= len(tiles) {
			return Effect{}, fmt.Errorf("card %q has invalid target tile %q", card.ID, card.Param)
		}
		eff.NewPosition = target
		// A forward move past (or onto) the start tile completes a
		// circuit; with-pass-bonus cards pay out for it.
		eff.AwardPassBonus = card.Action == models.CardMoveToWithBonus && target <= player.Position
	case models.CardMoveToPort:
		next := nextOfType(tiles, player.Position, models.TilePort)
		if next < 0 {
			return Effect{}, fmt.Errorf("card %q needs a port tile but the board has none", card.ID)
		}
		eff.NewPosition = next
	case models.CardGoToJail:
		eff.SendToJail = true
	case models.CardJailToken:
		eff.GrantJailToken = true
	default:
		return Effect{}, fmt.Errorf("card %q has unknown action %q", card.ID, card.Action)
	}

	return eff, nil
}

// ParseAmount extracts the money amount of an add/lose-money card. The
// numeric parameter wins; failing that, the first number embedded in
// the description text; failing that, the fixed fallback (100 gain,
// 50 loss). Keep all amount parsing here: the coupling between display
// text and game logic is fragile and deliberately quarantined.
func ParseAmount(card models.Card, gain bool) int {
	if n, err := strconv.Atoi(strings.TrimSpace(card.Param)); err == nil && n > 0 {
		return n
	}
	if n, ok := firstNumber(card.Description); ok {
		return n
	}
	if gain {
		return FallbackGain
	}
	return FallbackLoss
}

func firstNumber(s string) (int, bool) {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, err := strconv.Atoi(s[start:i])
			return n, err == nil && n > 0
		}
	}
	if start >= 0 {
		n, err := strconv.Atoi(s[start:])
		return n, err == nil && n > 0
	}
	return 0, false
}

func nextOfType(tiles []models.Tile, from int, tt models.TileType) int {
	n := len(tiles)
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if tiles[i].Type == tt {
			return i
		}
	}
	return -1
}
