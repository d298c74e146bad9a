package a2a

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/internal/config"
	"go.uber.org/zap"
)

// RetryPolicy wraps a Sender with bounded exponential backoff. Only
// DeliveryErrors classified as retryable are re-attempted; everything else
// fails immediately. The raw Client stays retry-free so callers that need
// exactly-one-send semantics can use it directly.
type RetryPolicy struct {
	sender      Sender
	maxAttempts int
	initial     time.Duration
	max         time.Duration
	logger      *zap.Logger
}

// NewRetryPolicy layers the configured retry behavior over the given sender.
func NewRetryPolicy(sender Sender, cfg config.A2AConfig, logger *zap.Logger) *RetryPolicy {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}
	maxWait := cfg.MaxBackoff
	if maxWait < initial {
		maxWait = 60 * time.Second
	}
	return &RetryPolicy{
		sender:      sender,
		maxAttempts: maxAttempts,
		initial:     initial,
		max:         maxWait,
		logger:      logger.Named("a2a_retry"),
	}
}

// Send implements Sender.
func (r *RetryPolicy) Send(ctx context.Context, env *schemas.Envelope) (*schemas.Envelope, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initial
	bo.MaxInterval = r.max
	// The attempt counter bounds the loop; backoff only shapes the waits.
	bo.MaxElapsedTime = 0
	bo.Reset()

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		resp, err := r.sender.Send(ctx, env)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var de *schemas.DeliveryError
		if !errors.As(err, &de) || !de.Retryable {
			return nil, err
		}
		if attempt == r.maxAttempts {
			break
		}

		wait := bo.NextBackOff()
		r.logger.Warn("Transient delivery failure, backing off",
			zap.String("message_id", env.MessageID),
			zap.String("recipient", env.RecipientAgent),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}
