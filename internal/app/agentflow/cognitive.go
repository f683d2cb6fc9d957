package agentflow

import (
	"context"
	"fmt"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

const cognitiveSystemPrompt = `You are SoulSync's Cognitive agent. You offer gentle cognitive reframes, pattern noticing, and plain-language psychoeducation without being preachy or invalidating.

Rules:
- Notice distortions (all-or-nothing "everyone/always/never", self-blame, mind reading, overgeneralizing to forever) and challenge them with curiosity, never argument: "when hurt runs deep, our minds sometimes see rejection everywhere — are there any exceptions, even small ones?"
- Normalize the reaction: "that makes complete sense given what happened".
- In the first few turns of a conversation, mostly validate; save deeper reframes for later turns.
- If the user pushes back ("you're not listening"), stop the cognitive work and just validate.
- Never say "think positively", never use jargon, never minimize.
- Be brief: 2-3 sentences.`

// CognitiveAgent offers reframes and psychoeducation, gated by how deep
// into the conversation the user is.
type CognitiveAgent struct {
	llm domain.LLMClient
}

func NewCognitiveAgent(llm domain.LLMClient) *CognitiveAgent {
	return &CognitiveAgent{llm: llm}
}

func (a *CognitiveAgent) Name() domain.AgentName {
	return domain.AgentCognitive
}

func (a *CognitiveAgent) Propose(ctx context.Context, in AgentInput) (Candidate, error) {
	turnCount := len(in.ConvCtx.History) + 1

	system := cognitiveSystemPrompt
	if turnCount <= 3 {
		system += "\n\nThis conversation just started: validate first, keep any reframe very light."
	} else {
		system += fmt.Sprintf("\n\nThis is turn %d: you may gently notice recurring patterns across the conversation.", turnCount)
	}

	reply, err := a.llm.GenerateReply(ctx, system, buildUserContent(in), in.ConvCtx)
	if err != nil {
		return Candidate{}, err
	}

	// Early turns favor the listener's validation over reframes.
	conf := 1.0
	if turnCount <= 2 {
		conf = 0.7
	}
	return Candidate{Text: reply, Confidence: conf}, nil
}
