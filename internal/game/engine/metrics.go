package engine

// Metric names emitted by the engine and watched by the achievement
// catalog.
const (
	MetricBalance       = "balance"
	MetricDoublesStreak = "doubles_streak"
	MetricJailVisits    = "jail_visits"
	MetricStartPasses   = "start_passes"
	MetricCardsDrawn    = "cards_drawn"
	MetricTaxDodged     = "tax_dodged"
	MetricTilesOwned    = "tiles_owned"
	MetricBuilds        = "builds"
	MetricRentCollected = "rent_collected"
	MetricGamesWon      = "games_won"
)
