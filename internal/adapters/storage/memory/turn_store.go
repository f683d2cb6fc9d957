package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

// TurnStore is a simple in-memory implementation of domain.TurnStore.
// It is NOT persistent and is only suitable for development and tests.
type TurnStore struct {
	mu    sync.RWMutex
	turns map[domain.SessionID][]*domain.Turn
}

func NewTurnStore() *TurnStore {
	return &TurnStore{
		turns: make(map[domain.SessionID][]*domain.Turn),
	}
}

// Append records the turn, enforcing the gapless sequence invariant: the
// new Seq must be exactly one past the session's tail (1 for the first).
func (s *TurnStore) Append(ctx context.Context, turn *domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.turns[turn.SessionID]
	want := 1
	if len(log) > 0 {
		want = log[len(log)-1].Seq + 1
	}
	if turn.Seq != want {
		return fmt.Errorf("%w: session %s got seq %d, want %d",
			domain.ErrSequenceGap, turn.SessionID, turn.Seq, want)
	}

	cp := *turn
	s.turns[turn.SessionID] = append(log, &cp)
	return nil
}

func (s *TurnStore) Recent(ctx context.Context, sessionID domain.SessionID, n int) ([]*domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.turns[sessionID]
	if n > 0 && len(log) > n {
		log = log[len(log)-n:]
	}

	out := make([]*domain.Turn, 0, len(log))
	for _, t := range log {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *TurnStore) Range(ctx context.Context, sessionID domain.SessionID, from, to time.Time) ([]*domain.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Turn
	for _, t := range s.turns[sessionID] {
		if t.CreatedAt.Before(from) || t.CreatedAt.After(to) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}
