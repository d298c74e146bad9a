package a2a

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/internal/config"
)

// scriptedSender fails with each queued error in turn, then succeeds.
type scriptedSender struct {
	mu    sync.Mutex
	errs  []error
	resp  *schemas.Envelope
	calls int
}

func (s *scriptedSender) Send(ctx context.Context, env *schemas.Envelope) (*schemas.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return s.resp, nil
}

func (s *scriptedSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func retryConfig() config.A2AConfig {
	return config.A2AConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func transientErr() error {
	return &schemas.DeliveryError{Status: 503, Reason: "overloaded", Retryable: true}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	want := NewEnvelope("kiln_stability", "orchestrator", "conv-1", schemas.StatusPayload{State: "success"})
	sender := &scriptedSender{errs: []error{transientErr()}, resp: want}
	policy := NewRetryPolicy(sender, retryConfig(), zaptest.NewLogger(t))

	resp, err := policy.Send(context.Background(), NewEnvelope("orchestrator", "kiln_stability", "conv-1", schemas.DataPayload{Kind: "ping"}))
	require.NoError(t, err)
	assert.Same(t, want, resp)
	assert.Equal(t, 2, sender.callCount())
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	sender := &scriptedSender{errs: []error{transientErr(), transientErr(), transientErr(), transientErr()}}
	policy := NewRetryPolicy(sender, retryConfig(), zaptest.NewLogger(t))

	_, err := policy.Send(context.Background(), NewEnvelope("orchestrator", "kiln_stability", "conv-1", schemas.DataPayload{Kind: "ping"}))
	var de *schemas.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 3, sender.callCount())
}

func TestRetryDoesNotRepeatPermanentFailures(t *testing.T) {
	sender := &scriptedSender{errs: []error{
		&schemas.DeliveryError{Status: 401, Reason: "bad credential", Retryable: false},
	}}
	policy := NewRetryPolicy(sender, retryConfig(), zaptest.NewLogger(t))

	_, err := policy.Send(context.Background(), NewEnvelope("orchestrator", "kiln_stability", "conv-1", schemas.DataPayload{Kind: "ping"}))
	var de *schemas.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 401, de.Status)
	assert.Equal(t, 1, sender.callCount())
}

func TestRetryDoesNotRepeatUnclassifiedErrors(t *testing.T) {
	sender := &scriptedSender{errs: []error{errors.New("payload refused encoding")}}
	policy := NewRetryPolicy(sender, retryConfig(), zaptest.NewLogger(t))

	_, err := policy.Send(context.Background(), NewEnvelope("orchestrator", "kiln_stability", "conv-1", schemas.DataPayload{Kind: "ping"}))
	require.Error(t, err)
	assert.Equal(t, 1, sender.callCount())
}

func TestRetryHonorsContextDuringBackoff(t *testing.T) {
	sender := &scriptedSender{errs: []error{transientErr(), transientErr(), transientErr()}}
	cfg := retryConfig()
	cfg.InitialBackoff = time.Second
	cfg.MaxBackoff = time.Second
	policy := NewRetryPolicy(sender, cfg, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := policy.Send(ctx, NewEnvelope("orchestrator", "kiln_stability", "conv-1", schemas.DataPayload{Kind: "ping"}))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, sender.callCount())
}

func TestRetryDefaultsApplyToZeroConfig(t *testing.T) {
	sender := &scriptedSender{resp: nil}
	policy := NewRetryPolicy(sender, config.A2AConfig{}, zaptest.NewLogger(t))

	resp, err := policy.Send(context.Background(), NewEnvelope("orchestrator", "kiln_stability", "conv-1", schemas.DataPayload{Kind: "ping"}))
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, 1, sender.callCount())
}
