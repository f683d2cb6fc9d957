package reflection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soulsync-ai/soulsync-agent/internal/app/agentflow"
	"github.com/soulsync-ai/soulsync-agent/internal/domain"
	"github.com/soulsync-ai/soulsync-agent/internal/observability"
)

// Reflector rates each role agent's contribution over a session's turn
// log and adjusts its future merge weight with a bounded update:
//
//	new = clamp(old + learningRate * (score - baseline), min, max)
//
// where score is the fraction of merge-eligible turns whose candidate the
// supervisor selected. It runs out-of-band and never blocks a live turn;
// updates become visible to turns that snapshot the table after the
// commit.
type Reflector struct {
	store   domain.TurnStore
	weights *agentflow.WeightTable

	learningRate float64
	baseline     float64

	// updateMu makes the reflector the weight table's single writer even
	// if two passes overlap.
	updateMu sync.Mutex

	dirtyMu sync.Mutex
	dirty   map[domain.SessionID]bool
}

func NewReflector(store domain.TurnStore, weights *agentflow.WeightTable, learningRate, baseline float64) *Reflector {
	return &Reflector{
		store:        store,
		weights:      weights,
		learningRate: learningRate,
		baseline:     baseline,
		dirty:        make(map[domain.SessionID]bool),
	}
}

// MarkDirty notes that a session gained turns since its last reflection
// pass. Called by the turn pipeline after a successful append.
func (r *Reflector) MarkDirty(sessionID domain.SessionID) {
	r.dirtyMu.Lock()
	r.dirty[sessionID] = true
	r.dirtyMu.Unlock()
}

// Run reflects over every dirty session. Invoked periodically by the
// scheduler.
func (r *Reflector) Run(ctx context.Context) {
	r.dirtyMu.Lock()
	pending := make([]domain.SessionID, 0, len(r.dirty))
	for id := range r.dirty {
		pending = append(pending, id)
	}
	r.dirty = make(map[domain.SessionID]bool)
	r.dirtyMu.Unlock()

	log := observability.LoggerFromContext(ctx)
	for _, id := range pending {
		if _, err := r.ReflectSession(ctx, id); err != nil {
			log.Error("reflection pass failed", "session_id", id, "error", err)
		}
	}
}

// ReflectSession scores each agent over the session's turn log and
// commits the updated weights. Returns the new weights by agent name.
func (r *Reflector) ReflectSession(ctx context.Context, sessionID domain.SessionID) (map[domain.AgentName]float64, error) {
	turns, err := r.store.Range(ctx, sessionID, time.Time{}, time.Now())
	if err != nil {
		return nil, fmt.Errorf("loading session %s turns: %w", sessionID, err)
	}

	selected := map[domain.AgentName]int{}
	eligible := 0
	for _, turn := range turns {
		if turn.Decision.SafetyOverride || turn.Decision.Degraded {
			continue
		}
		eligible++
		for _, name := range turn.Decision.Contributors {
			selected[name]++
		}
	}
	if eligible == 0 {
		return r.weights.Snapshot(), nil
	}

	r.updateMu.Lock()
	defer r.updateMu.Unlock()

	updated := make(map[domain.AgentName]float64, len(domain.MergePrecedence))
	for _, name := range domain.MergePrecedence {
		score := float64(selected[name]) / float64(eligible)
		old := r.weights.Get(name)
		updated[name] = r.weights.Set(name, old+r.learningRate*(score-r.baseline))
	}

	observability.LoggerFromContext(ctx).Info("reflection committed",
		"session_id", sessionID,
		"eligible_turns", eligible,
		"weights", updated,
	)
	return updated, nil
}
