package achievements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maslul/backend/internal/game/engine"
	"github.com/maslul/backend/internal/game/models"
)

func findRecord(t *testing.T, recs []models.AchievementRecord, defID string) models.AchievementRecord {
	t.Helper()
	for _, r := range recs {
		if r.DefID == defID {
			return r
		}
	}
	t.Fatalf("no record for %s", defID)
	return models.AchievementRecord{}
}

func TestThresholdUnlock(t *testing.T) {
	tr := NewTracker(nil, nil)

	unlocked := tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricBalance, Value: 2500})
	assert.Empty(t, idsOf(unlocked), "deep-pockets needs 3000")

	rec := findRecord(t, tr.Records("p1"), "deep-pockets")
	assert.False(t, rec.Unlocked)
	assert.Equal(t, 2500, rec.Progress)

	unlocked = tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricBalance, Value: 3200})
	assert.Contains(t, idsOf(unlocked), "deep-pockets")

	rec = findRecord(t, tr.Records("p1"), "deep-pockets")
	assert.True(t, rec.Unlocked)
	assert.Equal(t, 3000, rec.Progress, "progress caps at the target on unlock")
	require.NotNil(t, rec.UnlockedAt)
}

func TestLessThanThreshold(t *testing.T) {
	tr := NewTracker(nil, nil)

	unlocked := tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricBalance, Value: 30})
	assert.Contains(t, idsOf(unlocked), "scraping-by", "a balance under 50 unlocks it")

	tr2 := NewTracker(nil, nil)
	unlocked = tr2.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricBalance, Value: 50})
	assert.NotContains(t, idsOf(unlocked), "scraping-by", "exactly 50 is not under")
}

func TestCounterAccumulates(t *testing.T) {
	tr := NewTracker(nil, nil)

	for i := 0; i < 2; i++ {
		unlocked := tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricJailVisits, Value: 1})
		assert.Empty(t, idsOf(unlocked))
	}
	unlocked := tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricJailVisits, Value: 1})
	assert.Contains(t, idsOf(unlocked), "jailbird")
}

func TestStreakUsesReportedLength(t *testing.T) {
	tr := NewTracker(nil, nil)

	unlocked := tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricDoublesStreak, Value: 1})
	assert.Empty(t, idsOf(unlocked))
	unlocked = tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricDoublesStreak, Value: 2})
	assert.Contains(t, idsOf(unlocked), "hot-dice")
}

func TestComboAndEvent(t *testing.T) {
	tr := NewTracker(nil, nil)

	unlocked := tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricTaxDodged, Value: 1})
	assert.Empty(t, idsOf(unlocked), "combo without the combo flag does not count")
	unlocked = tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricTaxDodged, Value: 1, Combo: true})
	assert.Contains(t, idsOf(unlocked), "untouchable")

	unlocked = tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricGamesWon, Value: 1})
	assert.Contains(t, idsOf(unlocked), "champion")
}

func TestUnlockIsMonotonic(t *testing.T) {
	tr := NewTracker(nil, nil)

	unlocked := tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricBalance, Value: 5000})
	assert.Contains(t, idsOf(unlocked), "deep-pockets")

	// A later low balance neither re-announces nor re-locks.
	unlocked = tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricBalance, Value: 10})
	assert.NotContains(t, idsOf(unlocked), "deep-pockets")
	rec := findRecord(t, tr.Records("p1"), "deep-pockets")
	assert.True(t, rec.Unlocked)
	assert.Equal(t, 3000, rec.Progress)
}

func TestRecordsListsEveryCatalogEntry(t *testing.T) {
	tr := NewTracker(nil, nil)
	recs := tr.Records("fresh")
	assert.Len(t, recs, len(DefaultCatalog()))
	for _, r := range recs {
		assert.Equal(t, "fresh", r.PlayerID)
		assert.False(t, r.Unlocked)
	}
}

func TestRestoreNeverRegresses(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricJailVisits, Value: 2})

	at := time.Now().Add(-time.Hour)
	tr.Restore([]models.AchievementRecord{
		{DefID: "jailbird", PlayerID: "p1", Progress: 1},
		{DefID: "deep-pockets", PlayerID: "p1", Unlocked: true, Progress: 3000, UnlockedAt: &at},
	})

	rec := findRecord(t, tr.Records("p1"), "jailbird")
	assert.Equal(t, 2, rec.Progress, "lower persisted progress must not win")

	rec = findRecord(t, tr.Records("p1"), "deep-pockets")
	assert.True(t, rec.Unlocked)
	require.NotNil(t, rec.UnlockedAt)
	assert.True(t, rec.UnlockedAt.Equal(at))

	// A restored unlock is never re-announced by later events.
	unlocked := tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricBalance, Value: 9000})
	assert.NotContains(t, idsOf(unlocked), "deep-pockets")
}

func TestPlayersAreIndependent(t *testing.T) {
	tr := NewTracker(nil, nil)
	tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: engine.MetricJailVisits, Value: 3})

	rec := findRecord(t, tr.Records("p2"), "jailbird")
	assert.False(t, rec.Unlocked)
	assert.Zero(t, rec.Progress)
}

func TestCustomCatalog(t *testing.T) {
	defs := []models.AchievementDef{
		{ID: "only", Name: "Only", Metric: "custom", Condition: models.ConditionCounter, Target: 2},
	}
	tr := NewTracker(defs, nil)
	assert.Len(t, tr.Catalog(), 1)

	tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: "custom", Value: 1})
	unlocked := tr.Observe(models.MetricEvent{PlayerID: "p1", Metric: "custom", Value: 1})
	assert.Contains(t, idsOf(unlocked), "only")
}

func idsOf(recs []models.AchievementRecord) []string {
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.DefID)
	}
	return ids
}
