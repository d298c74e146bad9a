package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
)

// collect fans one proposal request out to every registered specialist agent
// and gathers the valid responses. Each agent gets its own timeout; an agent
// that errors, times out, declines, or returns an invalid proposal simply
// contributes nothing. Only context cancellation of the workflow itself
// aborts the stage.
func (e *Engine) collect(ctx context.Context, state *schemas.WorkflowState) ([]schemas.Proposal, error) {
	if len(e.sources) == 0 {
		e.logger.Warn("No proposal sources registered", zap.String("request_id", state.RequestID))
		return nil, nil
	}

	logger := e.logger.With(zap.String("request_id", state.RequestID))
	logger.Info("Collecting proposals", zap.Int("agents", len(e.sources)))

	var (
		mu        sync.Mutex
		collected []schemas.Proposal
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range e.sources {
		g.Go(func() error {
			p := e.solicit(gctx, src, state)
			if p == nil {
				return nil
			}
			mu.Lock()
			collected = append(collected, *p)
			mu.Unlock()
			return nil
		})
	}
	// Worker funcs only return nil; Wait is just the join point.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Arrival order must be deterministic for the resolver's tie-break, so
	// re-sort by the registered agent order rather than goroutine finish
	// order.
	ordered := make([]schemas.Proposal, 0, len(collected))
	for _, src := range e.sources {
		for _, p := range collected {
			if p.AgentID == src.AgentID() {
				ordered = append(ordered, p)
			}
		}
	}

	logger.Info("Proposal collection finished",
		zap.Int("received", len(ordered)),
		zap.Int("silent", len(e.sources)-len(ordered)),
	)
	return ordered, nil
}

// solicit asks one agent for a proposal and validates the answer. Every
// failure mode maps to "no proposal from this agent".
func (e *Engine) solicit(ctx context.Context, src schemas.ProposalSource, state *schemas.WorkflowState) *schemas.Proposal {
	logger := e.logger.With(
		zap.String("request_id", state.RequestID),
		zap.String("agent", src.AgentID()),
	)

	callCtx := ctx
	if e.cfg.CollectTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.CollectTimeout)
		defer cancel()
	}

	start := time.Now()
	p, err := src.RequestProposal(callCtx, state.Trigger, state.Context)
	switch {
	case err != nil:
		logger.Warn("Agent failed to propose", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil
	case p == nil:
		logger.Debug("Agent declined to propose")
		return nil
	}

	if err := e.validator.ValidateProposal(p); err != nil {
		logger.Warn("Agent proposal rejected by validation", zap.Error(err))
		return nil
	}
	if p.AgentID != src.AgentID() {
		logger.Warn("Agent proposal claims a different agent id, dropping",
			zap.String("claimed", p.AgentID))
		return nil
	}

	logger.Debug("Proposal accepted",
		zap.String("proposal_id", p.ProposalID),
		zap.String("type", string(p.ProposalType)),
		zap.Int("actions", len(p.Actions)),
	)
	return p
}
