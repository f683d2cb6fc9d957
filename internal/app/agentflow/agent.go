package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

// AgentInput is the shared context every role agent proposes from.
type AgentInput struct {
	UserMessage string
	ConvCtx     domain.ConversationContext
}

// Candidate is a role agent's proposed reply with its self-rated
// confidence signal in [0,1].
type Candidate struct {
	Text       string
	Confidence float64
}

// Agent is the uniform contract for role agents. Implementations differ
// only in role-specific framing; the orchestration layer treats them
// identically.
type Agent interface {
	Name() domain.AgentName
	Propose(ctx context.Context, in AgentInput) (Candidate, error)
}

// Registry is the capability table mapping a stable agent-name key to its
// implementation. New role agents are added by registration, not by
// runtime code loading.
type Registry struct {
	order  []domain.AgentName
	agents map[domain.AgentName]Agent
}

func NewRegistry() *Registry {
	return &Registry{agents: make(map[domain.AgentName]Agent)}
}

func (r *Registry) Register(a Agent) error {
	name := a.Name()
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("agent %q already registered", name)
	}
	r.agents[name] = a
	r.order = append(r.order, name)
	return nil
}

// Agents returns the registered agents in registration order.
func (r *Registry) Agents() []Agent {
	out := make([]Agent, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.agents[name])
	}
	return out
}

// historyText renders the recent turn log for a prompt, oldest first.
func historyText(history []*domain.Turn) string {
	var b strings.Builder
	for _, t := range history {
		b.WriteString("user: ")
		b.WriteString(t.UserText)
		b.WriteString("\nassistant: ")
		b.WriteString(t.FinalText)
		b.WriteString("\n")
	}
	return b.String()
}

// buildUserContent assembles the user-side prompt content: conversation so
// far, the detected topic when there is one, and the new message.
func buildUserContent(in AgentInput) string {
	var b strings.Builder
	if h := historyText(in.ConvCtx.History); h != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(h)
		b.WriteString("\n")
	}
	if in.ConvCtx.Topic != "" && in.ConvCtx.Topic != "general" {
		b.WriteString("Detected topic: ")
		b.WriteString(in.ConvCtx.Topic)
		b.WriteString("\n\n")
	}
	b.WriteString("New user message:\n")
	b.WriteString(in.UserMessage)
	return b.String()
}
