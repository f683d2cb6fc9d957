package agentflow

import (
	"sync"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

// WeightBounds configures the allowed range for agent weights.
type WeightBounds struct {
	Default float64
	Min     float64
	Max     float64
}

// WeightTable holds the per-agent merge weights. It is read by every live
// turn (via Snapshot) and written only by the reflection loop, which is
// the single writer. A turn works from the snapshot taken at its start,
// so a mid-turn weight update never changes an in-flight merge.
type WeightTable struct {
	mu      sync.RWMutex
	bounds  WeightBounds
	weights map[domain.AgentName]float64
}

func NewWeightTable(bounds WeightBounds, names ...domain.AgentName) *WeightTable {
	w := make(map[domain.AgentName]float64, len(names))
	for _, n := range names {
		w[n] = bounds.Default
	}
	return &WeightTable{bounds: bounds, weights: w}
}

// Snapshot returns a copy of the current weights.
func (t *WeightTable) Snapshot() map[domain.AgentName]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[domain.AgentName]float64, len(t.weights))
	for name, w := range t.weights {
		out[name] = w
	}
	return out
}

// Get returns the weight for one agent, or the default for unknown names.
func (t *WeightTable) Get(name domain.AgentName) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if w, ok := t.weights[name]; ok {
		return w
	}
	return t.bounds.Default
}

// Set stores a weight clamped to the configured bounds and returns the
// value actually stored.
func (t *WeightTable) Set(name domain.AgentName, w float64) float64 {
	if w < t.bounds.Min {
		w = t.bounds.Min
	}
	if w > t.bounds.Max {
		w = t.bounds.Max
	}

	t.mu.Lock()
	t.weights[name] = w
	t.mu.Unlock()
	return w
}

func (t *WeightTable) Bounds() WeightBounds {
	return t.bounds
}
