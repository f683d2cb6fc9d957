package firestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

// Store persists sessions and the append-only turn log in Firestore:
// sessions/{id} documents with a turns/{seq} subcollection. Turn documents
// carry the queryable fields plus the full audit payload as JSON.
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for the given GCP project
// (SOULSYNC_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) turnsCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("turns")
}

// turnDocID zero-pads the sequence number so document order matches
// sequence order.
func turnDocID(seq int) string {
	return fmt.Sprintf("%08d", seq)
}

// ─────────────────────────────────────────
// Firestore document types
// ─────────────────────────────────────────

type sessionDoc struct {
	UserID    string    `firestore:"user_id"`
	Title     string    `firestore:"title"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type turnDoc struct {
	Seq       int       `firestore:"seq"`
	Verdict   string    `firestore:"verdict"`
	Topic     string    `firestore:"topic"`
	CreatedAt time.Time `firestore:"created_at"`
	Payload   string    `firestore:"payload"` // full Turn as JSON
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	doc := sessionDoc{
		UserID:    string(session.UserID),
		Title:     session.Title,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}

	if _, err := s.sessionDoc(session.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	doc := map[string]interface{}{
		"user_id":    string(session.UserID),
		"title":      session.Title,
		"created_at": session.CreatedAt,
		"updated_at": session.UpdatedAt,
	}

	if _, err := s.sessionDoc(session.ID).Set(ctx, doc, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore UpdateSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	return &domain.Session{
		ID:        id,
		UserID:    domain.UserID(doc.UserID),
		Title:     doc.Title,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	q := s.sessionsCol().Where("user_id", "==", string(userID)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListSessionsByUser: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}

		out = append(out, &domain.Session{
			ID:        domain.SessionID(snap.Ref.ID),
			UserID:    domain.UserID(doc.UserID),
			Title:     doc.Title,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}
	return out, nil
}

// ─────────────────────────────────────────
// TurnStore implementation
// ─────────────────────────────────────────

// Append writes the turn document. Create fails on an existing doc ID, so
// a duplicate sequence number cannot silently overwrite a turn.
func (s *Store) Append(ctx context.Context, turn *domain.Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("%w: encoding turn: %v", domain.ErrPersistence, err)
	}

	doc := turnDoc{
		Seq:       turn.Seq,
		Verdict:   string(turn.Safety.Verdict),
		Topic:     turn.Topic,
		CreatedAt: turn.CreatedAt,
		Payload:   string(payload),
	}

	_, err = s.turnsCol(turn.SessionID).Doc(turnDocID(turn.Seq)).Create(ctx, doc)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("%w: session %s seq %d already appended",
				domain.ErrSequenceGap, turn.SessionID, turn.Seq)
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, sessionID domain.SessionID, n int) ([]*domain.Turn, error) {
	q := s.turnsCol(sessionID).OrderBy("seq", firestore.Desc)
	if n > 0 {
		q = q.Limit(n)
	}

	turns, err := s.queryTurns(ctx, q)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *Store) Range(ctx context.Context, sessionID domain.SessionID, from, to time.Time) ([]*domain.Turn, error) {
	q := s.turnsCol(sessionID).
		Where("created_at", ">=", from).
		Where("created_at", "<=", to).
		OrderBy("created_at", firestore.Asc)
	return s.queryTurns(ctx, q)
}

func (s *Store) queryTurns(ctx context.Context, q firestore.Query) ([]*domain.Turn, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Turn
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore turn query: %w", err)
		}

		var doc turnDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode turnDoc: %w", err)
		}

		var turn domain.Turn
		if err := json.Unmarshal([]byte(doc.Payload), &turn); err != nil {
			return nil, fmt.Errorf("decode turn payload: %w", err)
		}
		out = append(out, &turn)
	}
	return out, nil
}
