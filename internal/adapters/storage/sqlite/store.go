package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

// Store persists sessions and the append-only turn log in SQLite. Each
// turn row is one durable record holding the full audit payload (agent
// outputs, emotion tags, supervisor decision) as JSON, keyed by
// (session_id, seq) so the gapless sequence invariant is enforced by the
// schema as well as by the append check.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, created_at);

CREATE TABLE IF NOT EXISTS turns (
	session_id TEXT    NOT NULL,
	seq        INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	payload    TEXT    NOT NULL,
	PRIMARY KEY (session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(session_id, created_at);
`

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	// Serialized access keeps the single-writer-per-session model simple.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(session.ID), string(session.UserID), session.Title,
		session.CreatedAt.UnixNano(), session.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite CreateSession: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET user_id = ?, title = ?, updated_at = ? WHERE id = ?`,
		string(session.UserID), session.Title, session.UpdatedAt.UnixNano(), string(session.ID),
	)
	if err != nil {
		return fmt.Errorf("sqlite UpdateSession: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, title, created_at, updated_at FROM sessions WHERE id = ?`,
		string(id),
	)

	var userID, title string
	var createdAt, updatedAt int64
	if err := row.Scan(&userID, &title, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("sqlite GetSession: %w", err)
	}

	return &domain.Session{
		ID:        id,
		UserID:    domain.UserID(userID),
		Title:     title,
		CreatedAt: time.Unix(0, createdAt),
		UpdatedAt: time.Unix(0, updatedAt),
	}, nil
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	q := `SELECT id, title, created_at, updated_at FROM sessions WHERE user_id = ? ORDER BY created_at DESC`
	args := []any{string(userID)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite ListSessionsByUser: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		var id, title string
		var createdAt, updatedAt int64
		if err := rows.Scan(&id, &title, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("sqlite ListSessionsByUser scan: %w", err)
		}
		out = append(out, &domain.Session{
			ID:        domain.SessionID(id),
			UserID:    userID,
			Title:     title,
			CreatedAt: time.Unix(0, createdAt),
			UpdatedAt: time.Unix(0, updatedAt),
		})
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────
// TurnStore implementation
// ─────────────────────────────────────────

func (s *Store) Append(ctx context.Context, turn *domain.Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("%w: encoding turn: %v", domain.ErrPersistence, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	var tail int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM turns WHERE session_id = ?`,
		string(turn.SessionID),
	).Scan(&tail)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if turn.Seq != tail+1 {
		return fmt.Errorf("%w: session %s got seq %d, want %d",
			domain.ErrSequenceGap, turn.SessionID, turn.Seq, tail+1)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (session_id, seq, created_at, payload) VALUES (?, ?, ?, ?)`,
		string(turn.SessionID), turn.Seq, turn.CreatedAt.UnixNano(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, sessionID domain.SessionID, n int) ([]*domain.Turn, error) {
	q := `SELECT payload FROM turns WHERE session_id = ? ORDER BY seq DESC`
	args := []any{string(sessionID)}
	if n > 0 {
		q += ` LIMIT ?`
		args = append(args, n)
	}

	turns, err := s.queryTurns(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	// Reverse into ascending sequence order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *Store) Range(ctx context.Context, sessionID domain.SessionID, from, to time.Time) ([]*domain.Turn, error) {
	return s.queryTurns(ctx,
		`SELECT payload FROM turns WHERE session_id = ? AND created_at >= ? AND created_at <= ? ORDER BY seq ASC`,
		string(sessionID), from.UnixNano(), to.UnixNano(),
	)
}

func (s *Store) queryTurns(ctx context.Context, q string, args ...any) ([]*domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite turn query: %w", err)
	}
	defer rows.Close()

	var out []*domain.Turn
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite turn scan: %w", err)
		}
		var turn domain.Turn
		if err := json.Unmarshal([]byte(payload), &turn); err != nil {
			return nil, fmt.Errorf("sqlite turn decode: %w", err)
		}
		out = append(out, &turn)
	}
	return out, rows.Err()
}
