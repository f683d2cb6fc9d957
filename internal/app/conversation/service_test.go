package conversation_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soulsync-ai/soulsync-agent/internal/adapters/llm"
	"github.com/soulsync-ai/soulsync-agent/internal/adapters/storage/memory"
	"github.com/soulsync-ai/soulsync-agent/internal/app/agentflow"
	"github.com/soulsync-ai/soulsync-agent/internal/app/conversation"
	"github.com/soulsync-ai/soulsync-agent/internal/app/emotion"
	"github.com/soulsync-ai/soulsync-agent/internal/app/safety"
	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

func newTestService(t *testing.T, turnStore domain.TurnStore) *conversation.Service {
	t.Helper()

	llmClient := llm.NewMockLLM()

	registry := agentflow.NewRegistry()
	for _, agent := range []agentflow.Agent{
		agentflow.NewListenerAgent(llmClient),
		agentflow.NewCognitiveAgent(llmClient),
		agentflow.NewMindfulnessAgent(llmClient),
	} {
		if err := registry.Register(agent); err != nil {
			t.Fatalf("registering agent: %v", err)
		}
	}

	weights := agentflow.NewWeightTable(
		agentflow.WeightBounds{Default: 1.0, Min: 0.25, Max: 2.0},
		domain.MergePrecedence...,
	)
	scanner := safety.NewScanner(safety.DefaultPhrases())
	orchestrator := agentflow.NewOrchestrator(registry, scanner, weights, 2*time.Second, 5*time.Second)

	tagger := emotion.NewTagger(emotion.DefaultLexicon())
	graphs := emotion.NewGraphBuilder(turnStore, 30*24*time.Hour, time.Minute)

	return conversation.NewService(memory.NewSessionStore(), turnStore, orchestrator, tagger, graphs, nil)
}

func TestStartSessionAndSendMessage(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.NewTurnStore())

	session, err := svc.StartSession(ctx, conversation.StartSessionInput{
		UserID: domain.UserID("test-user"),
		Title:  "Test session",
	})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if session.ID == "" {
		t.Fatalf("expected session id, got empty")
	}

	reply, err := svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: session.ID,
		UserID:    session.UserID,
		Text:      "I had a rough day at school",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if reply.FinalText == "" {
		t.Fatalf("expected non-empty final text")
	}
	if reply.SafetyVerdict != domain.VerdictNone {
		t.Fatalf("expected verdict none, got %s", reply.SafetyVerdict)
	}
	if reply.Turn.Seq != 1 {
		t.Fatalf("expected first turn seq 1, got %d", reply.Turn.Seq)
	}
	if reply.Degraded {
		t.Fatalf("expected non-degraded reply")
	}
}

func TestSendMessageSequenceIsGapless(t *testing.T) {
	ctx := context.Background()
	turnStore := memory.NewTurnStore()
	svc := newTestService(t, turnStore)

	session, err := svc.StartSession(ctx, conversation.StartSessionInput{UserID: "test-user"})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	for want := 1; want <= 5; want++ {
		reply, err := svc.SendMessage(ctx, conversation.SendMessageInput{
			SessionID: session.ID,
			UserID:    session.UserID,
			Text:      "still thinking about my day",
		})
		if err != nil {
			t.Fatalf("SendMessage %d failed: %v", want, err)
		}
		if reply.Turn.Seq != want {
			t.Fatalf("expected seq %d, got %d", want, reply.Turn.Seq)
		}
	}

	turns, err := turnStore.Recent(ctx, session.ID, 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	for i, turn := range turns {
		if turn.Seq != i+1 {
			t.Fatalf("gap in turn log at index %d: seq %d", i, turn.Seq)
		}
	}
}

func TestSendMessageCrisisShortCircuits(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.NewTurnStore())

	session, err := svc.StartSession(ctx, conversation.StartSessionInput{UserID: "test-user"})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	reply, err := svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: session.ID,
		UserID:    session.UserID,
		Text:      "I can't do this anymore, I want to end it all",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if reply.SafetyVerdict != domain.VerdictCrisis {
		t.Fatalf("expected crisis verdict, got %s", reply.SafetyVerdict)
	}
	if !strings.Contains(reply.FinalText, "988") {
		t.Fatalf("expected crisis template with hotline, got %q", reply.FinalText)
	}
	if !reply.Turn.Decision.SafetyOverride {
		t.Fatalf("expected safety override on the recorded turn")
	}
}

func TestSendMessageTagsEmotions(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.NewTurnStore())

	session, err := svc.StartSession(ctx, conversation.StartSessionInput{UserID: "test-user"})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	reply, err := svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: session.ID,
		UserID:    session.UserID,
		Text:      "People just tolerate me. I have no friends.",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if reply.SafetyVerdict != domain.VerdictNone {
		t.Fatalf("expected verdict none, got %s", reply.SafetyVerdict)
	}

	var lonely bool
	for _, tag := range reply.Tags {
		if tag.Theme == emotion.ThemeLoneliness {
			lonely = true
			if tag.TurnID != reply.Turn.ID {
				t.Fatalf("tag not attached to its turn")
			}
		}
	}
	if !lonely {
		t.Fatalf("expected a loneliness tag, got %v", reply.Tags)
	}
}

// failingTurnStore rejects every append but serves reads from the
// wrapped store.
type failingTurnStore struct {
	*memory.TurnStore
}

func (s *failingTurnStore) Append(ctx context.Context, turn *domain.Turn) error {
	return errors.New("disk on fire")
}

func TestSendMessagePersistenceFailureStillReplies(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &failingTurnStore{memory.NewTurnStore()})

	session, err := svc.StartSession(ctx, conversation.StartSessionInput{UserID: "test-user"})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	reply, err := svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: session.ID,
		UserID:    session.UserID,
		Text:      "I had a rough day",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if !reply.PersistenceWarning {
		t.Fatalf("expected persistence warning")
	}
	if reply.FinalText == "" {
		t.Fatalf("expected best-effort reply despite store failure")
	}
}

func TestSendMessageUnknownSession(t *testing.T) {
	svc := newTestService(t, memory.NewTurnStore())

	_, err := svc.SendMessage(context.Background(), conversation.SendMessageInput{
		SessionID: "missing",
		UserID:    "test-user",
		Text:      "hello",
	})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestEmotionInsights(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.NewTurnStore())

	session, err := svc.StartSession(ctx, conversation.StartSessionInput{UserID: "test-user"})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if _, err := svc.SendMessage(ctx, conversation.SendMessageInput{
		SessionID: session.ID,
		UserID:    session.UserID,
		Text:      "I'm so lonely and sad, crying alone with no friends",
	}); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	graph, summary, err := svc.EmotionInsights(ctx, session.ID)
	if err != nil {
		t.Fatalf("EmotionInsights failed: %v", err)
	}
	if graph.Nodes[emotion.ThemeLoneliness] == 0 {
		t.Fatalf("expected loneliness node in graph, got %v", graph.Nodes)
	}
	if summary.TotalTags == 0 {
		t.Fatalf("expected tags in summary")
	}
}
