package a2a

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
)

// capturingSender records the outbound envelope and replies with a canned
// response, standing in for the HTTP client.
type capturingSender struct {
	sent *schemas.Envelope
	resp *schemas.Envelope
	err  error
}

func (s *capturingSender) Send(ctx context.Context, env *schemas.Envelope) (*schemas.Envelope, error) {
	s.sent = env
	return s.resp, s.err
}

func TestProposalSourceRequestsAndUnwraps(t *testing.T) {
	reply := NewEnvelope("kiln_stability", "orchestrator", "conv-1", schemas.ProposalPayload{Proposal: wireProposal()})
	sender := &capturingSender{resp: reply}
	src := NewAgentProposalSource(sender, "orchestrator", "kiln_stability", zaptest.NewLogger(t))

	assert.Equal(t, "kiln_stability", src.AgentID())

	ctx := WithConversationID(context.Background(), "conv-1")
	proposal, err := src.RequestProposal(ctx, "kiln temperature excursion", map[string]interface{}{"zone": "burning"})
	require.NoError(t, err)
	require.NotNil(t, proposal)
	assert.Equal(t, "prop-1", proposal.ProposalID)

	require.NotNil(t, sender.sent)
	assert.Equal(t, "kiln_stability", sender.sent.RecipientAgent)
	assert.Equal(t, "conv-1", sender.sent.ConversationID)
	assert.Equal(t, schemas.PriorityHigh, sender.sent.Priority)

	data, ok := sender.sent.Payload.(schemas.DataPayload)
	require.True(t, ok)
	assert.Equal(t, ProposalRequestKind, data.Kind)
	assert.Equal(t, "kiln temperature excursion", data.Content["trigger"])
}

func TestProposalSourceStampsMissingProposalID(t *testing.T) {
	p := wireProposal()
	p.ProposalID = ""
	reply := NewEnvelope("kiln_stability", "orchestrator", "conv-1", schemas.ProposalPayload{Proposal: p})
	src := NewAgentProposalSource(&capturingSender{resp: reply}, "orchestrator", "kiln_stability", zaptest.NewLogger(t))

	proposal, err := src.RequestProposal(context.Background(), "trigger", nil)
	require.NoError(t, err)
	require.NotNil(t, proposal)
	assert.NotEmpty(t, proposal.ProposalID)
}

func TestProposalSourceTreatsStatusAsDecline(t *testing.T) {
	reply := NewEnvelope("kiln_stability", "orchestrator", "conv-1", schemas.StatusPayload{
		RequestID: "req-1",
		Stage:     "collecting",
		State:     "declined",
		Detail:    "process already stable",
	})
	src := NewAgentProposalSource(&capturingSender{resp: reply}, "orchestrator", "kiln_stability", zaptest.NewLogger(t))

	proposal, err := src.RequestProposal(context.Background(), "trigger", nil)
	require.NoError(t, err)
	assert.Nil(t, proposal)
}

func TestProposalSourceTreatsEmptyReplyAsDecline(t *testing.T) {
	src := NewAgentProposalSource(&capturingSender{}, "orchestrator", "kiln_stability", zaptest.NewLogger(t))

	proposal, err := src.RequestProposal(context.Background(), "trigger", nil)
	require.NoError(t, err)
	assert.Nil(t, proposal)
}

func TestProposalSourceSurfacesAgentErrors(t *testing.T) {
	reply := NewEnvelope("kiln_stability", "orchestrator", "conv-1", schemas.ErrorPayload{
		ErrorCode:    "SENSOR_OFFLINE",
		ErrorMessage: "no fresh process data",
	})
	src := NewAgentProposalSource(&capturingSender{resp: reply}, "orchestrator", "kiln_stability", zaptest.NewLogger(t))

	_, err := src.RequestProposal(context.Background(), "trigger", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SENSOR_OFFLINE")
}

func TestProposalSourceRejectsUnexpectedReplyType(t *testing.T) {
	reply := NewEnvelope("kiln_stability", "orchestrator", "conv-1", schemas.CommandPayload{
		CommandID:   "cmd-1",
		CommandType: SetpointCommandType,
	})
	src := NewAgentProposalSource(&capturingSender{resp: reply}, "orchestrator", "kiln_stability", zaptest.NewLogger(t))

	_, err := src.RequestProposal(context.Background(), "trigger", nil)
	var verr *schemas.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func approvedAction() schemas.Action {
	return schemas.Action{
		ControlVariable:      "kiln_speed",
		CurrentValue:         3.2,
		ProposedValue:        3.3,
		Adjustment:           0.1,
		Method:               schemas.ExecuteGradual,
		SafetyChecksRequired: true,
	}
}

func TestCommandDispatcherBuildsAuthorizedCommand(t *testing.T) {
	reply := NewEnvelope("executor", "orchestrator", "conv-1", schemas.StatusPayload{
		RequestID: "req-1",
		Stage:     "executing",
		State:     "success",
		Detail:    "setpoint applied",
	})
	sender := &capturingSender{resp: reply}
	d := NewCommandDispatcher(sender, stubAuth{}, "orchestrator", "executor", zaptest.NewLogger(t))

	ctx := WithConversationID(context.Background(), "conv-1")
	result, err := d.Execute(ctx, approvedAction())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "setpoint applied", result.Detail)
	assert.Equal(t, approvedAction(), result.Action)

	require.NotNil(t, sender.sent)
	assert.Equal(t, "executor", sender.sent.RecipientAgent)
	assert.Equal(t, "conv-1", sender.sent.ConversationID)
	assert.Equal(t, schemas.PriorityCritical, sender.sent.Priority)

	cmd, ok := sender.sent.Payload.(schemas.CommandPayload)
	require.True(t, ok)
	assert.Equal(t, SetpointCommandType, cmd.CommandType)
	assert.Equal(t, "kiln_speed", cmd.TargetSystem)
	assert.Equal(t, schemas.ExecuteGradual, cmd.ExecutionMethod)
	assert.True(t, cmd.SafetyChecksRequired)
	assert.Equal(t, "token-for-orchestrator", cmd.AuthorizationToken)
	assert.Equal(t, "orchestrator", cmd.AuthorizedBy)
	assert.Equal(t, 3.3, cmd.Parameters["proposedValue"])
}

func TestCommandDispatcherTreatsEmptyReplyAsAccepted(t *testing.T) {
	d := NewCommandDispatcher(&capturingSender{}, stubAuth{}, "orchestrator", "executor", zaptest.NewLogger(t))

	result, err := d.Execute(context.Background(), approvedAction())
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestCommandDispatcherReportsExecutorFailure(t *testing.T) {
	reply := NewEnvelope("executor", "orchestrator", "conv-1", schemas.ErrorPayload{
		ErrorCode:    "ACTUATOR_FAULT",
		ErrorMessage: "drive refused setpoint",
	})
	d := NewCommandDispatcher(&capturingSender{resp: reply}, stubAuth{}, "orchestrator", "executor", zaptest.NewLogger(t))

	result, err := d.Execute(context.Background(), approvedAction())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Detail, "ACTUATOR_FAULT")
}

func TestCommandDispatcherSurfacesDeliveryFailure(t *testing.T) {
	d := NewCommandDispatcher(&capturingSender{err: errors.New("connection refused")}, stubAuth{}, "orchestrator", "executor", zaptest.NewLogger(t))

	_, err := d.Execute(context.Background(), approvedAction())
	assert.Error(t, err)
}

func TestCommandDispatcherFailsWithoutCredential(t *testing.T) {
	d := NewCommandDispatcher(&capturingSender{}, stubAuth{failIssue: true}, "orchestrator", "executor", zaptest.NewLogger(t))

	_, err := d.Execute(context.Background(), approvedAction())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authorize")
}
