package achievements

import (
	"github.com/maslul/backend/internal/game/engine"
	"github.com/maslul/backend/internal/game/models"
)

// DefaultCatalog is the fixed set of achievements every player can earn.
func DefaultCatalog() []models.AchievementDef {
	return []models.AchievementDef{
		{ID: "first-deed", Name: "First Deed", Metric: engine.MetricTilesOwned, Condition: models.ConditionThreshold, Target: 1},
		{ID: "landlord", Name: "Landlord", Metric: engine.MetricTilesOwned, Condition: models.ConditionThreshold, Target: 4},
		{ID: "master-builder", Name: "Master Builder", Metric: engine.MetricBuilds, Condition: models.ConditionCounter, Target: 5},
		{ID: "deep-pockets", Name: "Deep Pockets", Metric: engine.MetricBalance, Condition: models.ConditionThreshold, Target: 3000},
		{ID: "scraping-by", Name: "Scraping By", Metric: engine.MetricBalance, Condition: models.ConditionThreshold, Target: 50, LessThan: true},
		{ID: "hot-dice", Name: "Hot Dice", Metric: engine.MetricDoublesStreak, Condition: models.ConditionStreak, Target: 2},
		{ID: "jailbird", Name: "Jailbird", Metric: engine.MetricJailVisits, Condition: models.ConditionCounter, Target: 3},
		{ID: "world-traveler", Name: "World Traveler", Metric: engine.MetricStartPasses, Condition: models.ConditionCounter, Target: 5},
		{ID: "fortune-seeker", Name: "Fortune Seeker", Metric: engine.MetricCardsDrawn, Condition: models.ConditionCounter, Target: 10},
		{ID: "untouchable", Name: "Untouchable", Metric: engine.MetricTaxDodged, Condition: models.ConditionCombo, Target: 1},
		{ID: "rent-baron", Name: "Rent Baron", Metric: engine.MetricRentCollected, Condition: models.ConditionCounter, Target: 1000},
		{ID: "champion", Name: "Champion", Metric: engine.MetricGamesWon, Condition: models.ConditionEvent, Target: 1},
	}
}
