package engine

import "github.com/maslul/backend/internal/game/models"

// Win names the winner of a finished game.
type Win struct {
	PlayerID string
	Reason   models.WinReason
}

// EvaluateWin checks the win conditions in order: last player standing,
// construction goal, round limit. The first satisfied condition
// short-circuits the rest; nil means the game continues.
func EvaluateWin(g *models.Game, rules Rules) *Win {
	solvent := -1
	solventCount := 0
	for i := range g.Players {
		if g.Players[i].Balance > 0 {
			solvent = i
			solventCount++
		}
	}
	if solventCount == 1 {
		return &Win{PlayerID: g.Players[solvent].ID, Reason: models.WinLastStanding}
	}

	for i := range g.Players {
		p := &g.Players[i]
		churches := 0
		for j := range g.Tiles {
			if g.Tiles[j].OwnerID == p.ID {
				churches += g.Tiles[j].Churches
			}
		}
		if churches >= rules.ConstructionGoal {
			return &Win{PlayerID: p.ID, Reason: models.WinConstructionGoal}
		}
	}

	if g.Round >= rules.RoundLimit {
		richest := 0
		for i := range g.Players {
			if g.Players[i].Balance > g.Players[richest].Balance {
				richest = i
			}
		}
		return &Win{PlayerID: g.Players[richest].ID, Reason: models.WinRichestAtLimit}
	}

	return nil
}
