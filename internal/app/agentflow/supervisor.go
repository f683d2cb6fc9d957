package agentflow

import (
	"fmt"

	"github.com/soulsync-ai/soulsync-agent/internal/app/safety"
	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

// FallbackResponse is the static empathetic template used when no role
// agent produced a usable candidate. The decision is marked degraded.
const FallbackResponse = "I'm here with you, and what you're feeling matters. I'm having a little trouble finding the right words this moment — could you tell me a bit more about what's weighing on you?"

// Supervisor merges role agent candidates into the single final response.
// It selects and moderates; it never fabricates new unconstrained text
// beyond the fixed templates and disclaimer strings.
type Supervisor struct{}

func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Merge resolves the turn's final text. A crisis verdict short-circuits to
// the crisis template and ignores every candidate. Otherwise the highest
// weighted-score successful candidate wins, with the fixed precedence
// listener > cognitive > mindfulness breaking ties, so the result does not
// depend on agent arrival order.
func (s *Supervisor) Merge(
	scan domain.SafetyScan,
	outputs []domain.AgentOutput,
	weights map[domain.AgentName]float64,
) domain.SupervisorDecision {

	if scan.Verdict == domain.VerdictCrisis {
		return domain.SupervisorDecision{
			FinalText:      safety.CrisisResponse,
			SafetyOverride: true,
		}
	}

	rationale := make(map[domain.AgentName]string, len(outputs))

	var best *domain.AgentOutput
	var bestScore float64
	for i := range outputs {
		out := &outputs[i]
		if !out.Success {
			rationale[out.Agent] = "rejected: agent failed: " + out.Error
			continue
		}
		score := score(out, weights)
		switch {
		case best == nil,
			score > bestScore,
			score == bestScore && precedence(out.Agent) < precedence(best.Agent):
			best = out
			bestScore = score
		}
	}

	if best == nil {
		d := domain.SupervisorDecision{
			FinalText: FallbackResponse,
			Degraded:  true,
			Rationale: rationale,
		}
		if scan.Verdict == domain.VerdictAdvisory {
			d.FinalText += "\n\n" + safety.AdvisoryDisclaimer
			d.DisclaimerAppended = true
		}
		return d
	}

	rationale[best.Agent] = fmt.Sprintf("selected: weighted score %.2f", bestScore)
	for i := range outputs {
		out := &outputs[i]
		if out.Success && out.Agent != best.Agent {
			rationale[out.Agent] = fmt.Sprintf("rejected: weighted score %.2f below %.2f", score(out, weights), bestScore)
		}
	}

	d := domain.SupervisorDecision{
		FinalText:    best.Text,
		Contributors: []domain.AgentName{best.Agent},
		Rationale:    rationale,
	}

	if scan.Verdict == domain.VerdictAdvisory {
		d.FinalText += "\n\n" + safety.AdvisoryDisclaimer
		d.DisclaimerAppended = true
	}

	return d
}

func score(out *domain.AgentOutput, weights map[domain.AgentName]float64) float64 {
	w, ok := weights[out.Agent]
	if !ok {
		w = 1.0
	}
	conf := out.Confidence
	if conf <= 0 {
		conf = 1.0
	}
	return w * conf
}

// precedence returns the tie-break rank; lower wins. Unknown agents rank
// after the fixed precedence list.
func precedence(name domain.AgentName) int {
	for i, n := range domain.MergePrecedence {
		if n == name {
			return i
		}
	}
	return len(domain.MergePrecedence)
}
