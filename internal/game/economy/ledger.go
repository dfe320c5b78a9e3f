// Package economy applies signed monetary transactions to players.
//
// Balances never go negative: each resulting balance is
// max(0, balance+amount). The clamp reproduces the behavior of the
// original game; see DESIGN.md for why it is flagged for revisiting.
package economy

import (
	"fmt"

	"github.com/maslul/backend/internal/game/models"
)

// Transaction is one signed balance change for one player.
type Transaction struct {
	PlayerID string
	Amount   int
	Reason   string
}

// Applied reports the outcome of one transaction after clamping.
type Applied struct {
	PlayerID   string
	Requested  int
	Applied    int // actual balance delta after the non-negative clamp
	NewBalance int
	Reason     string
}

// Apply mutates player balances as one batch. All players in the batch
// are resolved before any balance changes, so a bad player ID leaves the
// whole batch unapplied.
func Apply(game *models.Game, txs []Transaction) ([]Applied, error) {
	players := make([]*models.Player, len(txs))
	for i, tx := range txs {
		p := game.PlayerByID(tx.PlayerID)
		if p == nil {
			return nil, fmt.Errorf("ledger: unknown player %q in batch", tx.PlayerID)
		}
		players[i] = p
	}

	out := make([]Applied, len(txs))
	for i, tx := range txs {
		p := players[i]
		next := p.Balance + tx.Amount
		if next < 0 {
			next = 0
		}
		out[i] = Applied{
			PlayerID:   tx.PlayerID,
			Requested:  tx.Amount,
			Applied:    next - p.Balance,
			NewBalance: next,
			Reason:     tx.Reason,
		}
		p.Balance = next
	}
	return out, nil
}

// BuildingIncome derives the per-circuit building income of a player:
// the rent uplift of every construction on tiles they own.
func BuildingIncome(game *models.Game, playerID string, perChurch, perSynagogue int) int {
	income := 0
	for i := range game.Tiles {
		t := &game.Tiles[i]
		if t.OwnerID != playerID {
			continue
		}
		income += t.Churches*perChurch + t.Synagogues*perSynagogue
	}
	return income
}
