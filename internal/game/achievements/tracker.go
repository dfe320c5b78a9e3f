// Package achievements tracks per-player progress records against a
// fixed catalog of achievement definitions. The tracker observes
// engine-emitted metric events; the rules engine never mutates records
// directly.
package achievements

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maslul/backend/internal/game/models"
)

// Tracker evaluates metric events against the catalog. Unlocks are
// monotonic: once a record is unlocked nothing re-locks it or regresses
// its progress.
type Tracker struct {
	defs   []models.AchievementDef
	logger *zap.SugaredLogger

	mu      sync.Mutex
	records map[string]map[string]*models.AchievementRecord // playerID -> defID
}

// NewTracker creates a tracker over the given catalog. A nil catalog
// uses the default one.
func NewTracker(defs []models.AchievementDef, logger *zap.SugaredLogger) *Tracker {
	if defs == nil {
		defs = DefaultCatalog()
	}
	return &Tracker{
		defs:    defs,
		logger:  logger,
		records: make(map[string]map[string]*models.AchievementRecord),
	}
}

// Observe evaluates one metric event for one player and returns any
// records it newly unlocked.
func (t *Tracker) Observe(ev models.MetricEvent) []models.AchievementRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	var unlocked []models.AchievementRecord
	for i := range t.defs {
		def := &t.defs[i]
		if def.Metric != ev.Metric {
			continue
		}
		rec := t.record(ev.PlayerID, def.ID)
		if rec.Unlocked {
			continue
		}

		satisfied := false
		switch def.Condition {
		case models.ConditionThreshold:
			if def.LessThan || ev.LessThan {
				satisfied = ev.Value < def.Target
			} else {
				satisfied = ev.Value >= def.Target
			}
			if ev.Value > rec.Progress {
				rec.Progress = ev.Value
			}
		case models.ConditionCounter:
			rec.Progress += ev.Value
			satisfied = rec.Progress >= def.Target
		case models.ConditionStreak:
			satisfied = ev.Value >= def.Target
			if ev.Value > rec.Progress {
				rec.Progress = ev.Value
			}
		case models.ConditionCombo:
			satisfied = ev.Combo
		case models.ConditionEvent:
			satisfied = ev.Value > 0
		}

		if satisfied {
			now := time.Now()
			rec.Unlocked = true
			rec.UnlockedAt = &now
			rec.Progress = def.Target
			if t.logger != nil {
				t.logger.Infow("Achievement unlocked",
					"player", ev.PlayerID, "achievement", def.Name)
			}
			unlocked = append(unlocked, *rec)
		} else if rec.Progress > def.Target {
			rec.Progress = def.Target
		}
	}
	return unlocked
}

// Records returns a copy of the player's records for every catalog
// entry, including ones not yet progressed.
func (t *Tracker) Records(playerID string) []models.AchievementRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.AchievementRecord, 0, len(t.defs))
	for i := range t.defs {
		out = append(out, *t.record(playerID, t.defs[i].ID))
	}
	return out
}

// Restore seeds the tracker with previously persisted records, so a
// refetched state never re-announces old unlocks.
func (t *Tracker) Restore(records []models.AchievementRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range records {
		rec := t.record(r.PlayerID, r.DefID)
		// Monotonic: never regress what was persisted.
		if r.Unlocked {
			rec.Unlocked = true
			rec.UnlockedAt = r.UnlockedAt
		}
		if r.Progress > rec.Progress {
			rec.Progress = r.Progress
		}
	}
}

// Checkpoint returns a deep copy of every record, suitable for
// reinstating with Rollback if the surrounding operation fails to
// commit.
func (t *Tracker) Checkpoint() []models.AchievementRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []models.AchievementRecord
	for _, byDef := range t.records {
		for _, rec := range byDef {
			out = append(out, *rec)
		}
	}
	return out
}

// Rollback discards the tracker's state and reinstates a checkpoint.
// Unlike Restore this is a full replacement, not a monotonic merge.
func (t *Tracker) Rollback(records []models.AchievementRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = make(map[string]map[string]*models.AchievementRecord)
	for _, r := range records {
		*t.record(r.PlayerID, r.DefID) = r
	}
}

// Catalog returns the definitions the tracker evaluates.
func (t *Tracker) Catalog() []models.AchievementDef {
	return t.defs
}

func (t *Tracker) record(playerID, defID string) *models.AchievementRecord {
	byDef, ok := t.records[playerID]
	if !ok {
		byDef = make(map[string]*models.AchievementRecord)
		t.records[playerID] = byDef
	}
	rec, ok := byDef[defID]
	if !ok {
		rec = &models.AchievementRecord{DefID: defID, PlayerID: playerID}
		byDef[defID] = rec
	}
	return rec
}
