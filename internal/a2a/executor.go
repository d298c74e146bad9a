package a2a

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"go.uber.org/zap"
)

// SetpointCommandType is the command issued for every approved action.
const SetpointCommandType = "setpoint_adjustment"

// CommandDispatcher adapts the remote execution collaborator to the
// schemas.CommandExecutor interface: each approved action is sent as an
// authorized command message and the reported outcome is translated into an
// ExecutionResult.
type CommandDispatcher struct {
	sender   Sender
	auth     schemas.Authenticator
	selfID   string
	targetID string
	logger   *zap.Logger
}

// NewCommandDispatcher builds a dispatcher addressing the configured
// execution agent.
func NewCommandDispatcher(sender Sender, auth schemas.Authenticator, selfID, targetID string, logger *zap.Logger) *CommandDispatcher {
	return &CommandDispatcher{
		sender:   sender,
		auth:     auth,
		selfID:   selfID,
		targetID: targetID,
		logger:   logger.Named("dispatcher").With(zap.String("executor_agent", targetID)),
	}
}

// Execute implements schemas.CommandExecutor.
func (d *CommandDispatcher) Execute(ctx context.Context, action schemas.Action) (schemas.ExecutionResult, error) {
	token, err := d.auth.IssueToken(d.selfID)
	if err != nil {
		return schemas.ExecutionResult{}, fmt.Errorf("failed to authorize command: %w", err)
	}

	env := NewEnvelope(d.selfID, d.targetID, ConversationIDFrom(ctx), schemas.CommandPayload{
		CommandID:    uuid.New().String(),
		CommandType:  SetpointCommandType,
		TargetSystem: action.ControlVariable,
		Parameters: map[string]interface{}{
			"currentValue":  action.CurrentValue,
			"proposedValue": action.ProposedValue,
			"adjustment":    action.Adjustment,
		},
		ExecutionMethod:      action.Method,
		SafetyChecksRequired: action.SafetyChecksRequired,
		AuthorizationToken:   token,
		AuthorizedBy:         d.selfID,
	})
	env.Priority = schemas.PriorityCritical

	resp, err := d.sender.Send(ctx, env)
	if err != nil {
		return schemas.ExecutionResult{}, err
	}
	if resp == nil {
		// Accepted without a body counts as success; the executor owns any
		// further progress reporting.
		return schemas.ExecutionResult{Action: action, Success: true}, nil
	}

	switch payload := resp.Payload.(type) {
	case schemas.StatusPayload:
		return schemas.ExecutionResult{
			Action:  action,
			Success: payload.State == "success",
			Detail:  payload.Detail,
		}, nil
	case schemas.ErrorPayload:
		return schemas.ExecutionResult{
			Action:  action,
			Success: false,
			Detail:  fmt.Sprintf("%s: %s", payload.ErrorCode, payload.ErrorMessage),
		}, nil
	default:
		d.logger.Warn("Executor answered with an unexpected message type",
			zap.String("message_type", string(resp.MessageType)))
		return schemas.ExecutionResult{}, &schemas.ValidationError{
			Field:  "messageType",
			Reason: fmt.Sprintf("executor answered a command with %q", resp.MessageType),
		}
	}
}
