package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
)

// dispatch walks the decision's execution plan in sequence order and applies
// each approved action through the command executor. The first failed step
// stops the walk, matching the plan's declared rollback policy; steps after
// the failure are never attempted.
func (e *Engine) dispatch(ctx context.Context, state *schemas.WorkflowState) ([]schemas.ExecutionResult, error) {
	plan := state.Decision.Plan
	if len(plan.Steps) == 0 {
		e.logger.Info("Nothing to execute", zap.String("request_id", state.RequestID))
		return nil, nil
	}

	logger := e.logger.With(zap.String("request_id", state.RequestID))
	logger.Info("Dispatching execution plan",
		zap.Int("steps", len(plan.Steps)),
		zap.Duration("estimated_duration", plan.EstimatedDuration),
	)

	results := make([]schemas.ExecutionResult, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := e.executor.Execute(ctx, step.Action)
		if err != nil {
			logger.Error("Execution step failed",
				zap.Int("sequence", step.Sequence),
				zap.String("control_variable", step.Action.ControlVariable),
				zap.Error(err),
			)
			results = append(results, schemas.ExecutionResult{
				Action:  step.Action,
				Success: false,
				Detail:  err.Error(),
			})
			return results, fmt.Errorf("execution step %d (%s) failed: %w",
				step.Sequence, step.Action.ControlVariable, err)
		}
		if !result.Success {
			logger.Error("Execution step reported failure",
				zap.Int("sequence", step.Sequence),
				zap.String("control_variable", step.Action.ControlVariable),
				zap.String("detail", result.Detail),
			)
			results = append(results, result)
			return results, fmt.Errorf("execution step %d (%s) reported failure: %s",
				step.Sequence, step.Action.ControlVariable, result.Detail)
		}

		logger.Info("Execution step applied",
			zap.Int("sequence", step.Sequence),
			zap.String("control_variable", step.Action.ControlVariable),
			zap.Float64("proposed_value", step.Action.ProposedValue),
		)
		results = append(results, result)
	}
	return results, nil
}
