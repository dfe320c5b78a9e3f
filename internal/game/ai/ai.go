// Package ai decides buy/build/pass for AI-controlled players.
//
// Decisions are pure functions of the current state and the player's
// trait weights; the one uniform draw comes from an injected random
// source so tests can seed it or assert on probability buckets.
package ai

import (
	"math/rand"
	"time"

	"github.com/maslul/backend/internal/game/engine"
	"github.com/maslul/backend/internal/game/models"
)

// Minimum balance an AI keeps in reserve after each kind of spend.
const (
	BuyReserve       = 200
	ChurchReserve    = 300
	SynagogueReserve = 400
)

// DecideBuy decides whether the player purchases the tile. The
// probability is a weighted sum of the aggression trait and the
// normalized money-to-price ratio, with a small risk-tolerance term,
// and the purchase must leave the reserve intact.
func DecideBuy(p *models.Player, t *models.Tile, rng *rand.Rand) bool {
	if p.Profile == nil || t.Price <= 0 {
		return false
	}
	if p.Balance-t.Price < BuyReserve {
		return false
	}

	affordability := float64(p.Balance-t.Price) / float64(p.Balance)
	prob := 0.5*p.Profile.Aggression + 0.35*affordability + 0.15*p.Profile.RiskTolerance
	return rng.Float64() < clamp01(prob)
}

// DecideBuildChurch decides whether the player adds a tier-1
// construction, weighting the building trait against a naive
// return-on-investment term (rent increase over cost).
func DecideBuildChurch(p *models.Player, t *models.Tile, rng *rand.Rand) bool {
	if p.Profile == nil || t.ChurchCost <= 0 {
		return false
	}
	if p.Balance-t.ChurchCost < ChurchReserve {
		return false
	}

	before := engine.Rent(t)
	upgraded := *t
	upgraded.Churches++
	roi := float64(engine.Rent(&upgraded)-before) / float64(t.ChurchCost)
	prob := 0.6*p.Profile.Building + 0.4*clamp01(roi)
	return rng.Float64() < clamp01(prob)
}

// DecideBuildSynagogue is the tier-2 counterpart of DecideBuildChurch.
func DecideBuildSynagogue(p *models.Player, t *models.Tile, rng *rand.Rand) bool {
	if p.Profile == nil || t.SynagogueCost <= 0 {
		return false
	}
	if p.Balance-t.SynagogueCost < SynagogueReserve {
		return false
	}

	before := engine.Rent(t)
	upgraded := *t
	upgraded.Synagogues++
	roi := float64(engine.Rent(&upgraded)-before) / float64(t.SynagogueCost)
	prob := 0.6*p.Profile.Building + 0.4*clamp01(roi)
	return rng.Float64() < clamp01(prob)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Personalities is the stock set of AI opponents.
func Personalities() []models.AIProfile {
	return []models.AIProfile{
		{Name: "Merchant", Aggression: 0.8, Building: 0.5, RiskTolerance: 0.6, TradePropensity: 0.7, ThinkingDelay: 800 * time.Millisecond},
		{Name: "Builder", Aggression: 0.5, Building: 0.9, RiskTolerance: 0.4, TradePropensity: 0.3, ThinkingDelay: 1200 * time.Millisecond},
		{Name: "Hoarder", Aggression: 0.3, Building: 0.2, RiskTolerance: 0.1, TradePropensity: 0.2, ThinkingDelay: 600 * time.Millisecond},
		{Name: "Gambler", Aggression: 0.9, Building: 0.6, RiskTolerance: 0.9, TradePropensity: 0.8, ThinkingDelay: 400 * time.Millisecond},
	}
}
