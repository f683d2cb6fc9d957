package domain

import "time"

type SessionID string
type UserID string
type TurnID string

// AgentName identifies a role agent in the capability registry.
type AgentName string

const (
	AgentListener    AgentName = "listener"
	AgentCognitive   AgentName = "cognitive"
	AgentMindfulness AgentName = "mindfulness"
)

// MergePrecedence is the fixed tie-break order for the supervisor:
// when two candidates score equally, the earlier name here wins.
var MergePrecedence = []AgentName{AgentListener, AgentCognitive, AgentMindfulness}

// SafetyVerdict classifies a user message for escalation purposes.
type SafetyVerdict string

const (
	VerdictNone     SafetyVerdict = "none"
	VerdictAdvisory SafetyVerdict = "advisory"
	VerdictCrisis   SafetyVerdict = "crisis"
)

type Timestamp = time.Time
