package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soulsync-ai/soulsync-agent/internal/app/agentflow"
	"github.com/soulsync-ai/soulsync-agent/internal/app/emotion"
	"github.com/soulsync-ai/soulsync-agent/internal/domain"
	"github.com/soulsync-ai/soulsync-agent/internal/observability"
)

const historyDepth = 10

// TurnObserver is notified after a turn lands in the store. The
// reflection loop uses it to know which sessions need a pass.
type TurnObserver interface {
	MarkDirty(sessionID domain.SessionID)
}

// Service owns the per-turn pipeline: context assembly, orchestration,
// emotion tagging, and the append to the turn log. It is the single
// writer per session, which is what keeps sequence numbers gapless.
type Service struct {
	sessionStore domain.SessionStore
	turnStore    domain.TurnStore
	orchestrator *agentflow.Orchestrator
	tagger       *emotion.Tagger
	graphs       *emotion.GraphBuilder
	observer     TurnObserver
	now          func() time.Time

	writersMu sync.Mutex
	writers   map[domain.SessionID]*sync.Mutex
}

func NewService(
	sessionStore domain.SessionStore,
	turnStore domain.TurnStore,
	orchestrator *agentflow.Orchestrator,
	tagger *emotion.Tagger,
	graphs *emotion.GraphBuilder,
	observer TurnObserver,
) *Service {
	return &Service{
		sessionStore: sessionStore,
		turnStore:    turnStore,
		orchestrator: orchestrator,
		tagger:       tagger,
		graphs:       graphs,
		observer:     observer,
		now:          time.Now,
		writers:      make(map[domain.SessionID]*sync.Mutex),
	}
}

// sessionWriter returns the mutex serializing appends for one session.
// Appends across sessions stay independent.
func (s *Service) sessionWriter(id domain.SessionID) *sync.Mutex {
	s.writersMu.Lock()
	defer s.writersMu.Unlock()

	mu, ok := s.writers[id]
	if !ok {
		mu = &sync.Mutex{}
		s.writers[id] = mu
	}
	return mu
}

type StartSessionInput struct {
	UserID domain.UserID
	Title  string
}

func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*domain.Session, error) {
	now := s.now()

	log := observability.LoggerFromContext(ctx).With("user_id", in.UserID)
	log.Info("starting new session")

	session := &domain.Session{
		ID:        domain.SessionID(uuid.NewString()),
		UserID:    in.UserID,
		Title:     in.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessionStore.CreateSession(ctx, session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}

	log.Info("session started", "session_id", session.ID)
	return session, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Text      string
}

// TurnResponse is what the caller gets back for one user message.
type TurnResponse struct {
	Turn *domain.Turn

	FinalText          string
	SafetyVerdict      domain.SafetyVerdict
	Tags               []domain.EmotionTag
	Degraded           bool
	PersistenceWarning bool
}

// SendMessage runs one full turn. Every failure past session lookup maps
// to a degraded output instead of aborting the user-visible response; in
// particular a store failure returns the response best-effort with
// PersistenceWarning set.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*TurnResponse, error) {
	session, err := s.sessionStore.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", session.ID,
		"user_id", session.UserID,
	)

	log.Info("processing message", "text", preview(in.Text))

	mu := s.sessionWriter(session.ID)
	mu.Lock()
	defer mu.Unlock()

	history, err := s.turnStore.Recent(ctx, session.ID, historyDepth)
	if err != nil {
		// A degraded context still beats no reply at all.
		log.Error("failed to load history", "error", err)
		history = nil
	}

	seq := 1
	if len(history) > 0 {
		seq = history[len(history)-1].Seq + 1
	}

	topic := emotion.DetectTopic(in.Text)

	convCtx := domain.ConversationContext{
		SessionID: session.ID,
		UserID:    session.UserID,
		Topic:     topic,
		History:   history,
	}

	result := s.orchestrator.RunTurn(ctx, in.Text, convCtx)

	turnID := domain.TurnID(uuid.NewString())
	tags := s.tagger.Tag(in.Text)
	for i := range tags {
		tags[i].TurnID = turnID
	}

	turn := &domain.Turn{
		ID:        turnID,
		SessionID: session.ID,
		Seq:       seq,
		UserText:  in.Text,
		FinalText: result.Decision.FinalText,
		Topic:     topic,
		CreatedAt: s.now(),
		Safety:    result.Scan,
		Tags:      tags,
		Outputs:   result.Outputs,
		Decision:  result.Decision,
	}

	persistenceWarning := false
	if err := s.turnStore.Append(ctx, turn); err != nil {
		log.Error("turn append failed, responding best-effort", "error", err)
		persistenceWarning = true
	} else if s.observer != nil {
		s.observer.MarkDirty(session.ID)
	}

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		log.Error("failed to update session", "error", err)
	}

	log.Info("turn completed",
		"seq", turn.Seq,
		"verdict", turn.Safety.Verdict,
		"degraded", turn.Decision.Degraded,
		"persistence_warning", persistenceWarning,
	)

	return &TurnResponse{
		Turn:               turn,
		FinalText:          turn.FinalText,
		SafetyVerdict:      turn.Safety.Verdict,
		Tags:               tags,
		Degraded:           turn.Decision.Degraded,
		PersistenceWarning: persistenceWarning,
	}, nil
}

// ListSessions returns a user's sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.sessionStore.ListSessionsByUser(ctx, userID, limit)
}

// GetSessionTimeline returns the session and its last `limit` turns.
func (s *Service) GetSessionTimeline(ctx context.Context, sessionID domain.SessionID, limit int) (*domain.Session, []*domain.Turn, error) {
	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	if limit <= 0 {
		limit = 50
	}
	turns, err := s.turnStore.Recent(ctx, sessionID, limit)
	if err != nil {
		return nil, nil, err
	}
	return session, turns, nil
}

// EmotionInsights returns the derived co-occurrence graph and weekly
// summary for a session.
func (s *Service) EmotionInsights(ctx context.Context, sessionID domain.SessionID) (*emotion.Graph, *emotion.Summary, error) {
	if _, err := s.sessionStore.GetSession(ctx, sessionID); err != nil {
		return nil, nil, err
	}

	graph, err := s.graphs.BuildForSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	summary, err := s.graphs.Summarize(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return graph, summary, nil
}

// preview trims a message for log-safe output.
func preview(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > 80 {
		return text[:80] + "..."
	}
	return text
}
