package domain

import "errors"

// Failure taxonomy for the turn pipeline. None of these escape the turn
// boundary as a user-visible error: each maps to a defined degraded output.
var (
	// ErrPersistence wraps a store failure; the response is still returned
	// best-effort with a warning flag.
	ErrPersistence = errors.New("persistence failure")

	// ErrSessionNotFound is returned by stores for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSequenceGap is returned by an append whose sequence number is not
	// exactly one past the session's tail.
	ErrSequenceGap = errors.New("turn sequence gap")

	// ErrAllAgentsFailed triggers the static fallback template.
	ErrAllAgentsFailed = errors.New("all role agents failed")

	// Provider failures, non-fatal per agent.
	ErrProviderTimeout = errors.New("provider timeout")
	ErrProviderError   = errors.New("provider error")
	ErrRateLimited     = errors.New("provider rate limited")
)
