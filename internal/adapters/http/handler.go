package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/soulsync-ai/soulsync-agent/internal/app/conversation"
	"github.com/soulsync-ai/soulsync-agent/internal/app/emotion"
	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

type Server struct {
	svc *conversation.Service
}

func NewServer(svc *conversation.Service) http.Handler {
	s := &Server{svc: svc}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	// /sessions → POST: create session, GET: list a user's sessions
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}          → GET: session + recent turns
	// /sessions/{id}/messages → POST: run one turn
	// /sessions/{id}/emotions → GET: emotion graph + weekly summary
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	return chainMiddlewares(mux, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title,omitempty"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type sendMessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type emotionTagResponse struct {
	Theme      string  `json:"theme"`
	Confidence float64 `json:"confidence"`
}

type sendMessageResponse struct {
	FinalText          string               `json:"final_text"`
	SafetyVerdict      string               `json:"safety_verdict"`
	EmotionTags        []emotionTagResponse `json:"emotion_tags"`
	Degraded           bool                 `json:"degraded"`
	PersistenceWarning bool                 `json:"persistence_warning,omitempty"`
	Seq                int                  `json:"seq"`
}

type turnResponse struct {
	Seq           int                  `json:"seq"`
	UserText      string               `json:"user_text"`
	FinalText     string               `json:"final_text"`
	Topic         string               `json:"topic,omitempty"`
	SafetyVerdict string               `json:"safety_verdict"`
	EmotionTags   []emotionTagResponse `json:"emotion_tags,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

type getSessionResponse struct {
	Session sessionResponse `json:"session"`
	Turns   []turnResponse  `json:"turns"`
}

type emotionInsightsResponse struct {
	Graph   *emotion.Graph   `json:"graph"`
	Summary *emotion.Summary `json:"summary"`
}

// ─────────────────────────────────────────────
// Routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	case http.MethodGet:
		s.handleListSessions(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleGetSession(w, r, domain.SessionID(id))

	case len(parts) == 2 && parts[1] == "messages":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleSendMessage(w, r, domain.SessionID(id))

	case len(parts) == 2 && parts[1] == "emotions":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleEmotionInsights(w, r, domain.SessionID(id))

	default:
		http.NotFound(w, r)
	}
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	session, err := s.svc.StartSession(r.Context(), conversation.StartSessionInput{
		UserID: domain.UserID(req.UserID),
		Title:  req.Title,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, "user_id query parameter is required")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	sessions, err := s.svc.ListSessions(r.Context(), domain.UserID(userID), limit)
	if err != nil {
		internalError(w, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, map[string][]sessionResponse{"sessions": out})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	session, turns, err := s.svc.GetSessionTimeline(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}

	resp := getSessionResponse{
		Session: toSessionResponse(session),
		Turns:   make([]turnResponse, 0, len(turns)),
	}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, toTurnResponse(t))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}

	out, err := s.svc.SendMessage(r.Context(), conversation.SendMessageInput{
		SessionID: sessionID,
		UserID:    domain.UserID(req.UserID),
		Text:      req.Text,
	})
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		FinalText:          out.FinalText,
		SafetyVerdict:      string(out.SafetyVerdict),
		EmotionTags:        toTagResponses(out.Tags),
		Degraded:           out.Degraded,
		PersistenceWarning: out.PersistenceWarning,
		Seq:                out.Turn.Seq,
	})
}

func (s *Server) handleEmotionInsights(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	graph, summary, err := s.svc.EmotionInsights(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.NotFound(w, r)
			return
		}
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, emotionInsightsResponse{Graph: graph, Summary: summary})
}

// ─────────────────────────────────────────────
// Response helpers
// ─────────────────────────────────────────────

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:        string(s.ID),
		UserID:    string(s.UserID),
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toTurnResponse(t *domain.Turn) turnResponse {
	return turnResponse{
		Seq:           t.Seq,
		UserText:      t.UserText,
		FinalText:     t.FinalText,
		Topic:         t.Topic,
		SafetyVerdict: string(t.Safety.Verdict),
		EmotionTags:   toTagResponses(t.Tags),
		CreatedAt:     t.CreatedAt,
	}
}

func toTagResponses(tags []domain.EmotionTag) []emotionTagResponse {
	out := make([]emotionTagResponse, 0, len(tags))
	for _, tag := range tags {
		out = append(out, emotionTagResponse{Theme: tag.Theme, Confidence: tag.Confidence})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
