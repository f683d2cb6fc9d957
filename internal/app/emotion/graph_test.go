package emotion_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soulsync-ai/soulsync-agent/internal/adapters/storage/memory"
	"github.com/soulsync-ai/soulsync-agent/internal/app/emotion"
	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

func appendTurn(t *testing.T, store *memory.TurnStore, sessionID domain.SessionID, seq int, createdAt time.Time, tags []domain.EmotionTag) {
	t.Helper()
	err := store.Append(context.Background(), &domain.Turn{
		ID:        domain.TurnID("turn-" + string(rune('0'+seq))),
		SessionID: sessionID,
		Seq:       seq,
		UserText:  "msg",
		FinalText: "reply",
		CreatedAt: createdAt,
		Safety:    domain.SafetyScan{Verdict: domain.VerdictNone},
		Tags:      tags,
	})
	require.NoError(t, err)
}

func TestBuildForSessionCountsCoOccurrence(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTurnStore()
	sessionID := domain.SessionID("s1")
	now := time.Now()

	appendTurn(t, store, sessionID, 1, now.Add(-2*time.Hour), []domain.EmotionTag{
		{Theme: emotion.ThemeLoneliness, Confidence: 0.6},
		{Theme: emotion.ThemeSadness, Confidence: 0.3},
	})
	appendTurn(t, store, sessionID, 2, now.Add(-time.Hour), []domain.EmotionTag{
		{Theme: emotion.ThemeLoneliness, Confidence: 0.8},
		{Theme: emotion.ThemeSadness, Confidence: 0.5},
	})
	appendTurn(t, store, sessionID, 3, now.Add(-time.Minute), []domain.EmotionTag{
		{Theme: emotion.ThemeAnger, Confidence: 0.4},
	})

	builder := emotion.NewGraphBuilder(store, 30*24*time.Hour, time.Minute)
	graph, err := builder.BuildForSession(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, 2, graph.Nodes[emotion.ThemeLoneliness])
	assert.Equal(t, 2, graph.Nodes[emotion.ThemeSadness])
	assert.Equal(t, 1, graph.Nodes[emotion.ThemeAnger])

	require.Len(t, graph.Edges, 1)
	edge := graph.Edges[0]
	assert.Equal(t, emotion.ThemeLoneliness, edge.A)
	assert.Equal(t, emotion.ThemeSadness, edge.B)
	assert.Equal(t, 2, edge.Weight)
}

func TestBuildForSessionServesCachedProjection(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTurnStore()
	sessionID := domain.SessionID("s1")

	appendTurn(t, store, sessionID, 1, time.Now(), []domain.EmotionTag{
		{Theme: emotion.ThemeStress, Confidence: 0.5},
	})

	builder := emotion.NewGraphBuilder(store, 30*24*time.Hour, time.Minute)
	first, err := builder.BuildForSession(ctx, sessionID)
	require.NoError(t, err)

	// A new turn inside the TTL is invisible until the cache expires.
	appendTurn(t, store, sessionID, 2, time.Now(), []domain.EmotionTag{
		{Theme: emotion.ThemeStress, Confidence: 0.9},
	})
	second, err := builder.BuildForSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSummarizeTrend(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTurnStore()
	sessionID := domain.SessionID("s1")
	now := time.Now()

	// Rising tag confidence day over day reads as a declining trajectory.
	confidences := []float64{0.2, 0.5, 0.9}
	for i, conf := range confidences {
		appendTurn(t, store, sessionID, i+1, now.Add(-time.Duration(len(confidences)-1-i)*24*time.Hour), []domain.EmotionTag{
			{Theme: emotion.ThemeSadness, Confidence: conf},
		})
	}

	builder := emotion.NewGraphBuilder(store, 30*24*time.Hour, time.Minute)
	summary, err := builder.Summarize(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalTags)
	assert.Equal(t, emotion.ThemeSadness, summary.DominantTheme)
	assert.Equal(t, "declining", summary.Trend)
	assert.InDelta(t, (0.2+0.5+0.9)/3, summary.AvgConfidence, 1e-9)
}

func TestSummarizeEmptySession(t *testing.T) {
	builder := emotion.NewGraphBuilder(memory.NewTurnStore(), 30*24*time.Hour, time.Minute)

	summary, err := builder.Summarize(context.Background(), domain.SessionID("empty"))
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalTags)
	assert.Equal(t, "insufficient_data", summary.Trend)
}
