package a2a

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/internal/config"
	"github.com/xkilldash9x/foreman-cli/internal/validation"
)

func newTestValidator() *validation.Validator {
	return validation.New(config.ValidationConfig{
		MaxPayloadBytes: 4096,
		MaxStringLength: 100,
		MaxArrayLength:  5,
	}, map[string]config.VariableRange{
		"kiln_speed": {Min: 2.0, Max: 4.5, Step: 0.1},
	})
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := NewHandler(stubAuth{}, newTestValidator(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return h
}

func inboundProposal(t *testing.T, sender string) []byte {
	t.Helper()
	env := NewEnvelope(sender, "orchestrator", "conv-1", schemas.ProposalPayload{Proposal: wireProposal()})
	env.Timestamp = time.Now().UTC()
	data, err := EncodeEnvelope(env)
	require.NoError(t, err)
	return data
}

func TestNewHandlerRequiresCollaborators(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewHandler(nil, newTestValidator(), logger)
	assert.Error(t, err)
	_, err = NewHandler(stubAuth{}, nil, logger)
	assert.Error(t, err)
	_, err = NewHandler(stubAuth{}, newTestValidator(), nil)
	assert.Error(t, err)
}

func TestHandleDispatchesByMessageType(t *testing.T) {
	h := newTestHandler(t)

	var got *schemas.Envelope
	h.Register(schemas.MessageProposal, func(ctx context.Context, env *schemas.Envelope) (*schemas.Envelope, error) {
		got = env
		return NewEnvelope("orchestrator", env.SenderAgent, env.ConversationID, schemas.StatusPayload{
			RequestID: "req-1",
			Stage:     "collecting",
			State:     "accepted",
		}), nil
	})

	resp, err := h.Handle(context.Background(), "token-for-kiln_stability", inboundProposal(t, "kiln_stability"))
	require.NoError(t, err)

	require.NotNil(t, got)
	payload, ok := got.Payload.(schemas.ProposalPayload)
	require.True(t, ok)
	assert.Equal(t, "kiln_stability", payload.AgentID)

	require.NotNil(t, resp)
	status, ok := resp.Payload.(schemas.StatusPayload)
	require.True(t, ok)
	assert.Equal(t, "accepted", status.State)
}

func TestHandleRejectsBadCredential(t *testing.T) {
	h := newTestHandler(t)

	routed := false
	h.Register(schemas.MessageProposal, func(ctx context.Context, env *schemas.Envelope) (*schemas.Envelope, error) {
		routed = true
		return nil, nil
	})

	_, err := h.Handle(context.Background(), "garbage", inboundProposal(t, "kiln_stability"))
	var aerr *schemas.AuthenticationError
	require.ErrorAs(t, err, &aerr)
	assert.False(t, routed)
}

func TestHandleRejectsSpoofedSender(t *testing.T) {
	h := newTestHandler(t)

	routed := false
	h.Register(schemas.MessageProposal, func(ctx context.Context, env *schemas.Envelope) (*schemas.Envelope, error) {
		routed = true
		return nil, nil
	})

	_, err := h.Handle(context.Background(), "token-for-quality_control", inboundProposal(t, "kiln_stability"))
	var aerr *schemas.AuthenticationError
	require.ErrorAs(t, err, &aerr)
	assert.Contains(t, aerr.Reason, "does not match sender")
	assert.False(t, routed)
}

func TestHandleRejectsInvalidEnvelope(t *testing.T) {
	h := newTestHandler(t)

	routed := false
	h.Register(schemas.MessageProposal, func(ctx context.Context, env *schemas.Envelope) (*schemas.Envelope, error) {
		routed = true
		return nil, nil
	})

	env := NewEnvelope("kiln_stability", "orchestrator", "conv-1", schemas.ProposalPayload{Proposal: func() schemas.Proposal {
		p := wireProposal()
		p.Title = "<script>alert(1)</script>"
		return p
	}()})
	data, err := EncodeEnvelope(env)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), "token-for-kiln_stability", data)
	var verr *schemas.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, routed)
}

func TestHandleRejectsMalformedBytes(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.Handle(context.Background(), "token-for-kiln_stability", []byte("{not an envelope"))
	var verr *schemas.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestHandleReportsUnregisteredType(t *testing.T) {
	h := newTestHandler(t)

	env := NewEnvelope("kiln_stability", "orchestrator", "conv-1", schemas.StatusPayload{
		RequestID: "req-1",
		Stage:     "collecting",
		State:     "running",
	})
	data, err := EncodeEnvelope(env)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), "token-for-kiln_stability", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
}
