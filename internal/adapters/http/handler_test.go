package httpadapter_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/soulsync-ai/soulsync-agent/internal/adapters/http"
	"github.com/soulsync-ai/soulsync-agent/internal/adapters/llm"
	"github.com/soulsync-ai/soulsync-agent/internal/adapters/storage/memory"
	"github.com/soulsync-ai/soulsync-agent/internal/app/agentflow"
	"github.com/soulsync-ai/soulsync-agent/internal/app/conversation"
	"github.com/soulsync-ai/soulsync-agent/internal/app/emotion"
	"github.com/soulsync-ai/soulsync-agent/internal/app/safety"
	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	llmClient := llm.NewMockLLM()
	sessionStore := memory.NewSessionStore()
	turnStore := memory.NewTurnStore()

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

	svc := conversation.NewService(sessionStore, turnStore, orchestrator, tagger, graphs, nil)
	return httpadapter.NewServer(svc)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func createSession(t *testing.T, srv http.Handler) string {
	t.Helper()

	body := []byte(`{"user_id":"test-user","title":"Test"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ID == "" {
		t.Fatalf("expected session id in response")
	}
	return resp.ID
}

func TestCreateSessionAndSendMessage(t *testing.T) {
	srv := newTestServer(t)
	sessionID := createSession(t, srv)

	body := []byte(`{"user_id":"test-user","text":"I had a rough day at school"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		FinalText     string `json:"final_text"`
		SafetyVerdict string `json:"safety_verdict"`
		Seq           int    `json:"seq"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.FinalText == "" {
		t.Fatalf("expected non-empty final text")
	}
	if resp.SafetyVerdict != string(domain.VerdictNone) {
		t.Fatalf("expected verdict none, got %s", resp.SafetyVerdict)
	}
	if resp.Seq != 1 {
		t.Fatalf("expected seq 1, got %d", resp.Seq)
	}
}

func TestSendMessageCrisisResponse(t *testing.T) {
	srv := newTestServer(t)
	sessionID := createSession(t, srv)

	body := []byte(`{"user_id":"test-user","text":"I want to end it all"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		FinalText     string `json:"final_text"`
		SafetyVerdict string `json:"safety_verdict"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.SafetyVerdict != string(domain.VerdictCrisis) {
		t.Fatalf("expected crisis verdict, got %s", resp.SafetyVerdict)
	}
	if !strings.Contains(resp.FinalText, "988") {
		t.Fatalf("expected crisis template, got %q", resp.FinalText)
	}
}

func TestSendMessageValidation(t *testing.T) {
	srv := newTestServer(t)
	sessionID := createSession(t, srv)

	cases := []struct {
		name string
		body string
	}{
		{"missing user_id", `{"text":"hello"}`},
		{"missing text", `{"user_id":"test-user"}`},
		{"invalid json", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/messages", strings.NewReader(tc.body))
			w := httptest.NewRecorder()

			srv.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestSendMessageUnknownSession(t *testing.T) {
	srv := newTestServer(t)

	body := []byte(`{"user_id":"test-user","text":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions/missing/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetSessionTimeline(t *testing.T) {
	srv := newTestServer(t)
	sessionID := createSession(t, srv)

	body := []byte(`{"user_id":"test-user","text":"I had a rough day"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("send message failed: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID, nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
		Turns []struct {
			Seq      int    `json:"seq"`
			UserText string `json:"user_text"`
		} `json:"turns"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Session.ID != sessionID {
		t.Fatalf("expected session %s, got %s", sessionID, resp.Session.ID)
	}
	if len(resp.Turns) != 1 || resp.Turns[0].Seq != 1 {
		t.Fatalf("expected one turn with seq 1, got %+v", resp.Turns)
	}
}

func TestEmotionInsightsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	sessionID := createSession(t, srv)

	body := []byte(`{"user_id":"test-user","text":"I feel so lonely, I have no friends"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("send message failed: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID+"/emotions", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Graph struct {
			Nodes map[string]int `json:"nodes"`
		} `json:"graph"`
		Summary struct {
			TotalTags int `json:"total_tags"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Graph.Nodes["loneliness"] == 0 {
		t.Fatalf("expected loneliness node, got %v", resp.Graph.Nodes)
	}
	if resp.Summary.TotalTags == 0 {
		t.Fatalf("expected tags in summary")
	}
}

func TestListSessionsByUser(t *testing.T) {
	srv := newTestServer(t)
	createSession(t, srv)
	createSession(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/sessions?user_id=test-user", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Sessions []struct {
			ID string `json:"id"`
		} `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(resp.Sessions))
	}

	req = httptest.NewRequest(http.MethodGet, "/sessions", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without user_id, got %d", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected generated request id header")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Fatalf("expected incoming request id to be echoed, got %q", got)
	}
}
