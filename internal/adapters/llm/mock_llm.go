package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

// MockLLM is a deterministic stand-in for the completion provider, used
// in local mode and tests. Replies vary only with the role detected in
// the system prompt and the user content.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) GenerateReply(ctx context.Context, system, user string, convCtx domain.ConversationContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	msg := lastLine(user)

	switch {
	case strings.Contains(system, "Listener agent"):
		return fmt.Sprintf("I hear you. When you say %q, that sounds really painful, and it makes sense you'd feel that way. Which part is weighing on you the most right now?", msg), nil
	case strings.Contains(system, "Cognitive agent"):
		return fmt.Sprintf("When something like %q happens, our minds can make the hurt feel total and permanent. That feeling is real, but it isn't proof it will always be this way.", msg), nil
	case strings.Contains(system, "Mindfulness agent"):
		return "If it feels okay, you could try one slow breath in for four counts, hold for four, and out for six. Just once. You can stop any time.", nil
	default:
		return fmt.Sprintf("I'm with you. Tell me a bit more about %q.", msg), nil
	}
}

func lastLine(user string) string {
	lines := strings.Split(strings.TrimSpace(user), "\n")
	if len(lines) == 0 {
		return ""
	}
	last := strings.TrimSpace(lines[len(lines)-1])
	if len(last) > 60 {
		last = last[:60]
	}
	return last
}
