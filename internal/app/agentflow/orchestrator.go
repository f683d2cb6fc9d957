package agentflow

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soulsync-ai/soulsync-agent/internal/app/safety"
	"github.com/soulsync-ai/soulsync-agent/internal/domain"
	"github.com/soulsync-ai/soulsync-agent/internal/observability"
)

// Orchestrator runs one turn: the safety scan races the concurrent role
// agent proposals, and the supervisor merges whatever survives.
type Orchestrator struct {
	registry   *Registry
	scanner    *safety.Scanner
	supervisor *Supervisor
	weights    *WeightTable

	agentTimeout time.Duration
	turnTimeout  time.Duration
}

func NewOrchestrator(
	registry *Registry,
	scanner *safety.Scanner,
	weights *WeightTable,
	agentTimeout, turnTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		registry:     registry,
		scanner:      scanner,
		supervisor:   NewSupervisor(),
		weights:      weights,
		agentTimeout: agentTimeout,
		turnTimeout:  turnTimeout,
	}
}

// TurnResult carries everything the caller needs to build the Turn record.
type TurnResult struct {
	Scan     domain.SafetyScan
	Outputs  map[domain.AgentName]domain.AgentOutput
	Decision domain.SupervisorDecision
}

// RunTurn invokes the registered role agents concurrently under the turn
// deadline. The weight snapshot is taken at turn start, so a reflection
// update landing mid-turn does not affect this merge. A crisis verdict
// cancels in-flight proposals and short-circuits to the crisis template;
// late agent results cannot overwrite that decision because the merge
// happens only after every goroutine has settled its own output slot.
func (o *Orchestrator) RunTurn(ctx context.Context, userMessage string, convCtx domain.ConversationContext) TurnResult {
	log := observability.LoggerFromContext(ctx).With(
		"session_id", convCtx.SessionID,
		"user_id", convCtx.UserID,
	)

	snapshot := o.weights.Snapshot()

	ctx, cancel := context.WithTimeout(ctx, o.turnTimeout)
	defer cancel()

	scanCh := make(chan domain.SafetyScan, 1)
	go func() {
		scanCh <- o.scanner.Scan(userMessage)
	}()

	agents := o.registry.Agents()
	outputs := make([]domain.AgentOutput, len(agents))

	agentCtx, cancelAgents := context.WithCancel(ctx)
	defer cancelAgents()

	g, gctx := errgroup.WithContext(agentCtx)
	for i, ag := range agents {
		g.Go(func() error {
			outputs[i] = o.propose(gctx, ag, AgentInput{
				UserMessage: userMessage,
				ConvCtx:     convCtx,
			})
			return nil
		})
	}

	scan := <-scanCh
	if scan.Verdict == domain.VerdictCrisis {
		log.Warn("crisis verdict, preempting merge", "categories", scan.Categories)
		cancelAgents()
	}

	// Cancelled agents resolve their slots as failures almost immediately,
	// so this wait stays cheap on the crisis path.
	_ = g.Wait()

	decision := o.supervisor.Merge(scan, outputs, snapshot)
	if decision.Degraded {
		log.Warn("merge degraded", "error", domain.ErrAllAgentsFailed)
	}

	byName := make(map[domain.AgentName]domain.AgentOutput, len(outputs))
	for _, out := range outputs {
		byName[out.Agent] = out
	}

	log.Info("turn merged",
		"verdict", scan.Verdict,
		"degraded", decision.Degraded,
		"safety_override", decision.SafetyOverride,
		"contributors", decision.Contributors,
	)

	return TurnResult{Scan: scan, Outputs: byName, Decision: decision}
}

// propose runs one agent under its own timeout. Any failure, including
// timeout or cancellation, degrades to an unsuccessful output with an
// empty candidate; it never aborts the turn.
func (o *Orchestrator) propose(ctx context.Context, ag Agent, in AgentInput) domain.AgentOutput {
	ctx, cancel := context.WithTimeout(ctx, o.agentTimeout)
	defer cancel()

	start := time.Now()
	cand, err := ag.Propose(ctx, in)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = domain.ErrProviderTimeout
		}
		return domain.AgentOutput{
			Agent:   ag.Name(),
			Latency: elapsed,
			Success: false,
			Error:   err.Error(),
		}
	}

	return domain.AgentOutput{
		Agent:      ag.Name(),
		Text:       cand.Text,
		Confidence: cand.Confidence,
		Latency:    elapsed,
		Success:    true,
	}
}
