package engine

import (
	"github.com/maslul/backend/internal/game/economy"
	"github.com/maslul/backend/internal/game/models"
)

// BuyLand purchases an unowned property tile for the active player.
func (e *Engine) BuyLand(playerID string, tileID int) error {
	p, t, err := e.activePlayerAndTile(playerID, tileID)
	if err != nil {
		return err
	}
	if t.Type != models.TileProperty {
		return ErrTileNotOwnable
	}
	if t.OwnerID != "" {
		return ErrTileAlreadyOwned
	}
	if p.Balance < t.Price {
		return ErrInsufficientFunds
	}

	e.charge(p, t.Price, "purchase of "+t.Name)
	t.OwnerID = p.ID
	p.Properties = append(p.Properties, t.ID)
	e.logf("%s bought %s for %d", p.Name, t.Name, t.Price)
	e.observe(models.MetricEvent{PlayerID: p.ID, Metric: MetricTilesOwned, Value: len(p.Properties)})
	return nil
}

// BuildChurch adds a tier-1 construction to a tile the player owns.
// The visit gate keeps a player from building on the turn of purchase.
func (e *Engine) BuildChurch(playerID string, tileID int) error {
	p, t, err := e.activePlayerAndTile(playerID, tileID)
	if err != nil {
		return err
	}
	if t.OwnerID != p.ID {
		return ErrNotTileOwner
	}
	if p.Balance < t.ChurchCost {
		return ErrInsufficientFunds
	}
	if p.VisitCount(t.ID) < churchVisitMin {
		return ErrTooFewVisits
	}

	e.charge(p, t.ChurchCost, "church on "+t.Name)
	t.Churches++
	e.logf("%s built a church on %s (%d total)", p.Name, t.Name, t.Churches)
	e.observe(models.MetricEvent{PlayerID: p.ID, Metric: MetricBuilds, Value: 1})
	return nil
}

// BuildSynagogue adds a tier-2 construction to a tile the player owns.
// It requires at least one church on the tile.
func (e *Engine) BuildSynagogue(playerID string, tileID int) error {
	p, t, err := e.activePlayerAndTile(playerID, tileID)
	if err != nil {
		return err
	}
	if t.OwnerID != p.ID {
		return ErrNotTileOwner
	}
	if p.Balance < t.SynagogueCost {
		return ErrInsufficientFunds
	}
	if p.VisitCount(t.ID) < synagogueVisitMin {
		return ErrTooFewVisits
	}
	if t.Churches < 1 {
		return ErrNeedChurchFirst
	}

	e.charge(p, t.SynagogueCost, "synagogue on "+t.Name)
	t.Synagogues++
	e.logf("%s built a synagogue on %s (%d total)", p.Name, t.Name, t.Synagogues)
	e.observe(models.MetricEvent{PlayerID: p.ID, Metric: MetricBuilds, Value: 1})
	return nil
}

// Rent returns the nominal rent of a tile.
func Rent(t *models.Tile) int {
	return t.BaseRent + churchRentBonus*t.Churches + synagogueRentBonus*t.Synagogues
}

// PayRent transfers rent from the active player to the tile's owner.
// Payment is clamped to the payer's balance, and both sides see the
// exact paid amount. A second payment on the same tile in the same
// turn is rejected.
func (e *Engine) PayRent(playerID string, tileID int) error {
	p, t, err := e.activePlayerAndTile(playerID, tileID)
	if err != nil {
		return err
	}
	if t.OwnerID == "" || t.OwnerID == p.ID {
		return ErrRentNotDue
	}
	if e.rentPaid[t.ID] {
		return ErrRentAlreadyPaid
	}
	owner := e.game.PlayerByID(t.OwnerID)
	if owner == nil {
		return ErrUnknownPlayer
	}

	rent := Rent(t)
	paid := rent
	if paid > p.Balance {
		paid = p.Balance
	}

	applied, err := economy.Apply(e.game, []economy.Transaction{
		{PlayerID: p.ID, Amount: -paid, Reason: "rent for " + t.Name},
		{PlayerID: owner.ID, Amount: paid, Reason: "rent from " + p.Name},
	})
	if err != nil {
		return err
	}
	e.observeBalance(applied)

	e.rentPaid[t.ID] = true
	e.logf("%s paid %d rent to %s for %s", p.Name, paid, owner.Name, t.Name)
	e.observe(models.MetricEvent{PlayerID: owner.ID, Metric: MetricRentCollected, Value: paid})
	return nil
}

// ProposeTrade exists so the operation surface is complete; trading
// between players is stubbed and always rejected.
func (e *Engine) ProposeTrade(playerID, otherPlayerID string) error {
	return ErrTradingDisabled
}

func (e *Engine) activePlayerAndTile(playerID string, tileID int) (*models.Player, *models.Tile, error) {
	g := e.game
	if g.Status != models.GameStatusActive {
		return nil, nil, ErrGameNotActive
	}
	p := g.PlayerByID(playerID)
	if p == nil {
		return nil, nil, ErrUnknownPlayer
	}
	if active := g.ActivePlayer(); active == nil || active.ID != playerID {
		return nil, nil, ErrNotYourTurn
	}
	t := g.TileByID(tileID)
	if t == nil {
		return nil, nil, ErrTileNotOwnable
	}
	return p, t, nil
}
