// Package mirror maintains a client's local view of a server-owned
// game. The mirror keeps two copies: the last authoritative snapshot
// received from the server, and a predicted copy that local actions
// mutate immediately for responsive rendering. Every authoritative
// refresh replaces the prediction, so mispredictions self-correct on
// the next notification.
package mirror

import (
	"sync"

	"go.uber.org/zap"

	"github.com/maslul/backend/internal/game/models"
)

// Mirror is a reconciling local copy of one game. Safe for concurrent
// use by a render loop and a notification listener.
type Mirror struct {
	mu            sync.RWMutex
	authoritative *models.Game
	predicted     *models.Game
	seenLog       map[string]bool // log entry IDs already surfaced
	logger        *zap.SugaredLogger
}

// New creates a mirror from an initial snapshot.
func New(snapshot *models.Game, logger *zap.SugaredLogger) *Mirror {
	m := &Mirror{
		authoritative: snapshot.Clone(),
		predicted:     snapshot.Clone(),
		seenLog:       make(map[string]bool),
		logger:        logger,
	}
	for _, e := range snapshot.Log {
		m.seenLog[e.ID] = true
	}
	return m
}

// ApplyAuthoritative installs a fresh server snapshot and returns the
// log entries not yet surfaced to the player, in sequence order.
// Snapshots at or below the current authoritative version are
// duplicates of notifications already processed and are ignored, so
// redelivered or reordered notifications are harmless.
func (m *Mirror) ApplyAuthoritative(snapshot *models.Game) []models.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if snapshot.Version <= m.authoritative.Version {
		m.logger.Debugf("Ignoring stale snapshot v%d (have v%d)",
			snapshot.Version, m.authoritative.Version)
		return nil
	}

	var fresh []models.LogEntry
	for _, e := range snapshot.Log {
		if !m.seenLog[e.ID] {
			m.seenLog[e.ID] = true
			fresh = append(fresh, e)
		}
	}

	m.authoritative = snapshot.Clone()
	m.predicted = snapshot.Clone()
	return fresh
}

// Predict applies a local mutation to the predicted copy only. The
// authoritative copy is untouched; the prediction lives until the next
// server snapshot replaces it.
func (m *Mirror) Predict(fn func(g *models.Game)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.predicted)
}

// Game returns a copy of the predicted state for rendering.
func (m *Mirror) Game() *models.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.predicted.Clone()
}

// Authoritative returns a copy of the last confirmed server state.
func (m *Mirror) Authoritative() *models.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authoritative.Clone()
}

// Version reports the last confirmed server version.
func (m *Mirror) Version() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authoritative.Version
}

// Diverged reports whether the prediction differs from the confirmed
// state in the fields a renderer cares about. Used to decide whether a
// refetch is worth scheduling when no notification has arrived.
func (m *Mirror) Diverged() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, p := m.authoritative, m.predicted
	if a.CurrentTurn != p.CurrentTurn || a.Round != p.Round || a.Status != p.Status {
		return true
	}
	if len(a.Players) != len(p.Players) {
		return true
	}
	for i := range a.Players {
		ap, pp := &a.Players[i], &p.Players[i]
		if ap.Balance != pp.Balance || ap.Position != pp.Position {
			return true
		}
	}
	return false
}
