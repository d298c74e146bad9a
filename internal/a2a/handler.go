package a2a

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/internal/validation"
	"go.uber.org/zap"
)

// HandlerFunc processes one verified, validated inbound envelope and may
// return a response envelope to hand back to the sender.
type HandlerFunc func(ctx context.Context, env *schemas.Envelope) (*schemas.Envelope, error)

// Handler is the inbound boundary of the A2A protocol. Transport framing
// (HTTP server, TLS) lives outside this repository; the handler consumes
// already-framed bytes plus the bearer credential presented with them.
type Handler struct {
	auth      schemas.Authenticator
	validator *validation.Validator
	logger    *zap.Logger
	routes    map[schemas.MessageType]HandlerFunc
}

// NewHandler builds an inbound handler. Routes are registered before the
// handler is exposed to traffic; registration is not concurrency-safe.
func NewHandler(auth schemas.Authenticator, validator *validation.Validator, logger *zap.Logger) (*Handler, error) {
	if auth == nil {
		return nil, fmt.Errorf("authenticator cannot be nil")
	}
	if validator == nil {
		return nil, fmt.Errorf("validator cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Handler{
		auth:      auth,
		validator: validator,
		logger:    logger.Named("a2a_handler"),
		routes:    make(map[schemas.MessageType]HandlerFunc),
	}, nil
}

// Register installs the handler for one message type, replacing any
// previous registration.
func (h *Handler) Register(t schemas.MessageType, fn HandlerFunc) {
	h.routes[t] = fn
}

// Handle verifies the credential, decodes and validates the envelope, and
// dispatches it by message type. Authentication failures are logged as
// security events; validation failures never reach a route.
func (h *Handler) Handle(ctx context.Context, bearerToken string, raw []byte) (*schemas.Envelope, error) {
	agentID, err := h.auth.Verify(bearerToken)
	if err != nil {
		h.logger.Warn("Rejected message with bad credential", zap.Error(err))
		return nil, err
	}

	env, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	if env.SenderAgent != agentID {
		h.logger.Warn("Rejected message with spoofed sender",
			zap.String("credential_subject", agentID),
			zap.String("claimed_sender", env.SenderAgent),
		)
		return nil, &schemas.AuthenticationError{
			Reason: fmt.Sprintf("credential subject %q does not match sender %q", agentID, env.SenderAgent),
		}
	}

	if err := h.validator.ValidateEnvelope(env); err != nil {
		return nil, err
	}

	// The payload union is exhaustive; an unregistered type is a routing
	// gap on our side, not the sender's fault.
	switch env.MessageType {
	case schemas.MessageProposal, schemas.MessageDecision, schemas.MessageStatus,
		schemas.MessageData, schemas.MessageCommand, schemas.MessageError:
		fn, ok := h.routes[env.MessageType]
		if !ok {
			return nil, fmt.Errorf("no handler registered for %s messages", env.MessageType)
		}
		return fn(ctx, env)
	default:
		return nil, &schemas.ValidationError{
			Field:  "messageType",
			Reason: fmt.Sprintf("unknown message type %q", env.MessageType),
		}
	}
}
