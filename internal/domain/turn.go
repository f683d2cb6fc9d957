package domain

import "time"

// Session represents a conversation between a user and the companion.
// Its turn log is append-only; the session record itself only tracks
// bookkeeping fields.
type Session struct {
	ID        SessionID
	UserID    UserID
	Title     string
	CreatedAt Timestamp
	UpdatedAt Timestamp
}

// EmotionTag labels one emotional theme detected in a turn.
// Several tags may attach to the same turn.
type EmotionTag struct {
	Theme      string  `json:"theme"`
	Confidence float64 `json:"confidence"`
	TurnID     TurnID  `json:"turn_id,omitempty"`
}

// AgentOutput is one role agent's candidate reply, kept on the turn for
// audit even when the supervisor rejects it.
type AgentOutput struct {
	Agent      AgentName     `json:"agent"`
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
	Latency    time.Duration `json:"latency_ns"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
}

// SafetyScan is the safety agent's assessment of a user message.
// Categories lists the matched indicator groups (e.g. "suicide",
// "self_harm") for audit; empty for verdict none.
type SafetyScan struct {
	Verdict    SafetyVerdict `json:"verdict"`
	Categories []string      `json:"categories,omitempty"`
}

// SupervisorDecision records how the final reply was produced.
type SupervisorDecision struct {
	FinalText          string               `json:"final_text"`
	Contributors       []AgentName          `json:"contributors,omitempty"`
	SafetyOverride     bool                 `json:"safety_override"`
	DisclaimerAppended bool                 `json:"disclaimer_appended"`
	Degraded           bool                 `json:"degraded"`
	Rationale          map[AgentName]string `json:"rationale,omitempty"`
}

// Turn is one user message plus the single final response and everything
// that went into producing it. Turns are immutable once appended; sequence
// numbers are strictly increasing and gapless within a session, starting
// at 1.
type Turn struct {
	ID        TurnID                    `json:"id"`
	SessionID SessionID                 `json:"session_id"`
	Seq       int                       `json:"seq"`
	UserText  string                    `json:"user_text"`
	FinalText string                    `json:"final_text"`
	Topic     string                    `json:"topic,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
	Safety    SafetyScan                `json:"safety"`
	Tags      []EmotionTag              `json:"tags,omitempty"`
	Outputs   map[AgentName]AgentOutput `json:"outputs,omitempty"`
	Decision  SupervisorDecision        `json:"decision"`
}
