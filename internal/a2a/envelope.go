// Package a2a implements the agent-to-agent messaging protocol: the typed
// envelope codec, the authenticated HTTP delivery client, the retry policy
// layered on top of it, and the inbound handler boundary.
package a2a

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/xkilldash9x/foreman-cli/api/schemas"
)

// jsonAPI is the shared codec instance. Compatible with encoding/json but
// noticeably faster on the envelope hot path.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// wireEnvelope mirrors schemas.Envelope with the payload held raw so the
// concrete type can be chosen after reading the discriminator.
type wireEnvelope struct {
	MessageID       string              `json:"messageId"`
	ConversationID  string              `json:"conversationId"`
	Timestamp       time.Time           `json:"timestamp"`
	CorrelationID   string              `json:"correlationId"`
	SenderAgent     string              `json:"senderAgent"`
	RecipientAgent  string              `json:"recipientAgent"`
	MessageType     schemas.MessageType `json:"messageType"`
	Payload         json.RawMessage     `json:"payload"`
	ProtocolVersion string              `json:"protocolVersion"`
	Priority        schemas.Priority    `json:"priority"`
	ExpiresAt       *time.Time          `json:"expiresAt,omitempty"`
	TraceID         string              `json:"traceId,omitempty"`
	SpanID          string              `json:"spanId,omitempty"`
}

// NewEnvelope builds an outbound envelope around the given payload. Every
// call stamps a fresh unique message id; the conversation id groups all
// messages of one workflow run and must be supplied by the caller.
func NewEnvelope(sender, recipient, conversationID string, payload schemas.Payload) *schemas.Envelope {
	return &schemas.Envelope{
		MessageID:       uuid.New().String(),
		ConversationID:  conversationID,
		Timestamp:       time.Now().UTC(),
		CorrelationID:   uuid.New().String(),
		SenderAgent:     sender,
		RecipientAgent:  recipient,
		MessageType:     payload.MessageType(),
		Payload:         payload,
		ProtocolVersion: schemas.ProtocolVersion,
		Priority:        schemas.PriorityNormal,
	}
}

// EncodeEnvelope serializes an envelope for transport. The envelope's
// discriminator must agree with the payload's own type.
func EncodeEnvelope(env *schemas.Envelope) ([]byte, error) {
	if env.Payload == nil {
		return nil, &schemas.ValidationError{Field: "payload", Reason: "envelope has no payload"}
	}
	if got := env.Payload.MessageType(); got != env.MessageType {
		return nil, &schemas.ValidationError{
			Field:  "messageType",
			Reason: fmt.Sprintf("envelope declares %q but payload is %q", env.MessageType, got),
		}
	}
	data, err := jsonAPI.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope %s: %w", env.MessageID, err)
	}
	return data, nil
}

// DecodeEnvelope parses a wire message into a typed envelope, selecting the
// concrete payload from the messageType discriminator. Unknown types and
// malformed payloads are validation failures, not internal errors.
func DecodeEnvelope(data []byte) (*schemas.Envelope, error) {
	var wire wireEnvelope
	if err := jsonAPI.Unmarshal(data, &wire); err != nil {
		return nil, &schemas.ValidationError{Reason: fmt.Sprintf("malformed envelope: %v", err)}
	}

	payload, err := decodePayload(wire.MessageType, wire.Payload)
	if err != nil {
		return nil, err
	}

	return &schemas.Envelope{
		MessageID:       wire.MessageID,
		ConversationID:  wire.ConversationID,
		Timestamp:       wire.Timestamp,
		CorrelationID:   wire.CorrelationID,
		SenderAgent:     wire.SenderAgent,
		RecipientAgent:  wire.RecipientAgent,
		MessageType:     wire.MessageType,
		Payload:         payload,
		ProtocolVersion: wire.ProtocolVersion,
		Priority:        wire.Priority,
		ExpiresAt:       wire.ExpiresAt,
		TraceID:         wire.TraceID,
		SpanID:          wire.SpanID,
	}, nil
}

func decodePayload(kind schemas.MessageType, raw json.RawMessage) (schemas.Payload, error) {
	if len(raw) == 0 {
		return nil, &schemas.ValidationError{Field: "payload", Reason: "envelope has no payload"}
	}

	unmarshal := func(dst interface{}) error {
		if err := jsonAPI.Unmarshal(raw, dst); err != nil {
			return &schemas.ValidationError{
				Field:  "payload",
				Reason: fmt.Sprintf("malformed %s payload: %v", kind, err),
			}
		}
		return nil
	}

	switch kind {
	case schemas.MessageProposal:
		var p schemas.ProposalPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case schemas.MessageDecision:
		var p schemas.DecisionPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case schemas.MessageStatus:
		var p schemas.StatusPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case schemas.MessageData:
		var p schemas.DataPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case schemas.MessageCommand:
		var p schemas.CommandPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case schemas.MessageError:
		var p schemas.ErrorPayload
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, &schemas.ValidationError{
			Field:  "messageType",
			Reason: fmt.Sprintf("unknown message type %q", kind),
		}
	}
}
