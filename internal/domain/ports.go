package domain

import (
	"context"
	"time"
)

// LLMClient defines how the core application reaches a completion provider.
type LLMClient interface {
	GenerateReply(ctx context.Context, system, user string, convCtx ConversationContext) (string, error)
}

// ConversationContext gives an agent minimal context about the conversation.
type ConversationContext struct {
	SessionID SessionID
	UserID    UserID
	Topic     string
	History   []*Turn // last N turns, oldest first
}

// SessionStore defines session persistence.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	ListSessionsByUser(ctx context.Context, userID UserID, limit int) ([]*Session, error)
}

// TurnStore is the append-only turn log. There is deliberately no update
// or delete operation; corrections are modeled as new turns referencing
// the corrected one. The caller serializes appends within one session so
// sequence numbers cannot race; appends across sessions are independent.
type TurnStore interface {
	// Append durably records a turn. A turn whose Seq is not exactly one
	// past the session's current tail is rejected.
	Append(ctx context.Context, turn *Turn) error

	// Recent returns the last n turns of the session in sequence order.
	Recent(ctx context.Context, sessionID SessionID, n int) ([]*Turn, error)

	// Range returns the session's turns with CreatedAt in [from, to],
	// ordered by sequence number.
	Range(ctx context.Context, sessionID SessionID, from, to time.Time) ([]*Turn, error)
}
