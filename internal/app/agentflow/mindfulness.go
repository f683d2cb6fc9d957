package agentflow

import (
	"context"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

const mindfulnessSystemPrompt = `You are SoulSync's Mindfulness agent.

Your job:
- If the user sounds physically overwhelmed (shaky, can't breathe, panicking), offer one tiny grounding or slowing practice they can try right now if they want.
- Keep it gentle, optional, shame-free; it should take 30-60 seconds at most.
- Use inviting language like "if it feels okay, you could try..." — never "do this".
- 3 short steps max, 3-5 sentences total.
- Never claim to be a medical professional.`

// MindfulnessAgent offers short grounding practices. It rates itself
// highly only when the message suggests physical overwhelm.
type MindfulnessAgent struct {
	llm domain.LLMClient
}

func NewMindfulnessAgent(llm domain.LLMClient) *MindfulnessAgent {
	return &MindfulnessAgent{llm: llm}
}

func (a *MindfulnessAgent) Name() domain.AgentName {
	return domain.AgentMindfulness
}

func (a *MindfulnessAgent) Propose(ctx context.Context, in AgentInput) (Candidate, error) {
	reply, err := a.llm.GenerateReply(ctx, mindfulnessSystemPrompt, buildUserContent(in), in.ConvCtx)
	if err != nil {
		return Candidate{}, err
	}

	conf := 0.6
	if in.ConvCtx.Topic == "panic" {
		conf = 1.0
	}
	return Candidate{Text: reply, Confidence: conf}, nil
}
