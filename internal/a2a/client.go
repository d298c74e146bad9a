package a2a

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sender delivers one envelope to its recipient and returns the recipient's
// response envelope, if any. It is the seam between the raw client, the
// retry policy, and test doubles.
type Sender interface {
	Send(ctx context.Context, env *schemas.Envelope) (*schemas.Envelope, error)
}

// conversationKey carries the workflow's conversation id through contexts so
// collaborator adapters can stamp it onto the envelopes they build.
type conversationKey struct{}

// WithConversationID returns a context carrying the workflow conversation id.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationKey{}, conversationID)
}

// ConversationIDFrom extracts the workflow conversation id from the context,
// minting a fresh one when the context carries none.
func ConversationIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(conversationKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Client is the outbound half of the A2A protocol: it authenticates,
// addresses and delivers envelopes over HTTP. It carries no retry logic of
// its own; see RetryPolicy for the layered backoff behavior.
type Client struct {
	cfg        config.A2AConfig
	httpClient *http.Client
	auth       schemas.Authenticator
	logger     *zap.Logger
	limiter    *rate.Limiter
	endpoints  map[string]string
}

// NewClient builds a delivery client over the given endpoint directory. The
// directory is initialization-time state; it is never mutated afterwards.
func NewClient(cfg config.A2AConfig, agents []config.AgentEndpoint, auth schemas.Authenticator, logger *zap.Logger) (*Client, error) {
	if auth == nil {
		return nil, fmt.Errorf("authenticator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	endpoints := make(map[string]string, len(agents))
	for _, a := range agents {
		endpoints[a.ID] = a.Endpoint
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		auth:       auth,
		logger:     logger.Named("a2a"),
		limiter:    rate.NewLimiter(limit, burst),
		endpoints:  endpoints,
	}, nil
}

// Send delivers a single envelope to its recipient. Broadcast envelopes must
// go through Broadcast so partial failures stay individually visible.
func (c *Client) Send(ctx context.Context, env *schemas.Envelope) (*schemas.Envelope, error) {
	if env.RecipientAgent == schemas.BroadcastRecipient {
		return nil, &schemas.ValidationError{
			Field:  "recipientAgent",
			Reason: "broadcast envelopes must be sent via Broadcast",
		}
	}
	return c.deliver(ctx, env, c.resolveEndpoint(env.RecipientAgent))
}

// BroadcastResult is the per-endpoint outcome of a broadcast send.
type BroadcastResult struct {
	AgentID  string
	Response *schemas.Envelope
	Err      error
}

// Broadcast fans the envelope out to every agent in the endpoint directory.
// Each recipient gets its own copy with a fresh message id; delivery
// failures are reported per endpoint, never as one aggregate error.
func (c *Client) Broadcast(ctx context.Context, env *schemas.Envelope) []BroadcastResult {
	results := make([]BroadcastResult, 0, len(c.endpoints))
	for agentID, endpoint := range c.endpoints {
		copied := *env
		copied.MessageID = uuid.New().String()
		copied.RecipientAgent = agentID

		resp, err := c.deliver(ctx, &copied, endpoint)
		results = append(results, BroadcastResult{AgentID: agentID, Response: resp, Err: err})
	}
	return results
}

// resolveEndpoint looks the recipient up in the static directory, falling
// back to the generic path under the configured base URL.
func (c *Client) resolveEndpoint(recipient string) string {
	if ep, ok := c.endpoints[recipient]; ok {
		return ep
	}
	return fmt.Sprintf("%s/agents/%s/messages", strings.TrimRight(c.cfg.BaseURL, "/"), recipient)
}

func (c *Client) deliver(ctx context.Context, env *schemas.Envelope, endpoint string) (*schemas.Envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &schemas.DeliveryError{Reason: fmt.Sprintf("rate limiter wait aborted: %v", err), Retryable: false}
	}

	if env.SenderAgent == "" {
		env.SenderAgent = c.cfg.SenderID
	}

	// Trace correlation belongs to the client: fill in whatever the caller
	// did not set so every hop downstream can be stitched together.
	if env.TraceID == "" {
		env.TraceID = uuid.New().String()
	}
	if env.SpanID == "" {
		env.SpanID = uuid.New().String()[:8]
	}

	token, err := c.auth.IssueToken(env.SenderAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to issue credential for %s: %w", env.SenderAgent, err)
	}

	body, err := EncodeEnvelope(env)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Trace-Id", env.TraceID)
	req.Header.Set("X-Span-Id", env.SpanID)

	c.logger.Debug("Delivering envelope",
		zap.String("message_id", env.MessageID),
		zap.String("recipient", env.RecipientAgent),
		zap.String("message_type", string(env.MessageType)),
		zap.String("endpoint", endpoint),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failures are transient until proven otherwise.
		return nil, &schemas.DeliveryError{Reason: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &schemas.DeliveryError{Status: resp.StatusCode, Reason: fmt.Sprintf("failed to read response: %v", err), Retryable: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &schemas.DeliveryError{
			Status:    resp.StatusCode,
			Reason:    strings.TrimSpace(string(respBody)),
			Retryable: retryableStatus(resp.StatusCode),
		}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}

	response, err := DecodeEnvelope(respBody)
	if err != nil {
		return nil, &schemas.DeliveryError{
			Status:    resp.StatusCode,
			Reason:    fmt.Sprintf("recipient returned an undecodable envelope: %v", err),
			Retryable: false,
		}
	}
	return response, nil
}

// retryableStatus classifies the transient HTTP failure classes: rate
// limited, unavailable, and temporary upstream failures.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
