package a2a

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
)

// ProposalRequestKind marks the data payload that solicits a proposal.
const ProposalRequestKind = "proposal_request"

// AgentProposalSource adapts one remote specialist agent to the
// schemas.ProposalSource interface: a proposal request goes out as a data
// message and the agent answers with a proposal message, or with a status
// message when it has nothing to suggest for this trigger.
type AgentProposalSource struct {
	sender  Sender
	selfID  string
	agentID string
	logger  *zap.Logger
}

// NewAgentProposalSource builds a proposal source for the given agent id.
func NewAgentProposalSource(sender Sender, selfID, agentID string, logger *zap.Logger) *AgentProposalSource {
	return &AgentProposalSource{
		sender:  sender,
		selfID:  selfID,
		agentID: agentID,
		logger:  logger.Named("proposal_source").With(zap.String("agent_id", agentID)),
	}
}

// AgentID implements schemas.ProposalSource.
func (s *AgentProposalSource) AgentID() string { return s.agentID }

// RequestProposal implements schemas.ProposalSource. The workflow's
// conversation id is taken from the context so the whole exchange stays
// causally grouped.
func (s *AgentProposalSource) RequestProposal(ctx context.Context, trigger string, workflowContext map[string]interface{}) (*schemas.Proposal, error) {
	env := NewEnvelope(s.selfID, s.agentID, ConversationIDFrom(ctx), schemas.DataPayload{
		Kind: ProposalRequestKind,
		Content: map[string]interface{}{
			"trigger": trigger,
			"context": workflowContext,
		},
	})
	env.Priority = schemas.PriorityHigh

	resp, err := s.sender.Send(ctx, env)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		// Agent acknowledged without a body: nothing to propose.
		return nil, nil
	}

	switch payload := resp.Payload.(type) {
	case schemas.ProposalPayload:
		proposal := payload.Proposal
		if proposal.ProposalID == "" {
			proposal.ProposalID = uuid.New().String()
		}
		return &proposal, nil
	case schemas.StatusPayload:
		s.logger.Debug("Agent declined to propose", zap.String("detail", payload.Detail))
		return nil, nil
	case schemas.ErrorPayload:
		return nil, fmt.Errorf("agent %s reported %s: %s", s.agentID, payload.ErrorCode, payload.ErrorMessage)
	default:
		return nil, &schemas.ValidationError{
			Field:  "messageType",
			Reason: fmt.Sprintf("agent %s answered a proposal request with %q", s.agentID, resp.MessageType),
		}
	}
}
