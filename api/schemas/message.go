package schemas

import "time"

// ProtocolVersion is the A2A protocol revision spoken by this build.
const ProtocolVersion = "1.0"

// BroadcastRecipient fans a message out to every agent in the endpoint directory.
const BroadcastRecipient = "broadcast"

// MessageType discriminates the payload shape carried by an envelope.
type MessageType string

const (
	MessageProposal MessageType = "proposal"
	MessageDecision MessageType = "decision"
	MessageStatus   MessageType = "status"
	MessageData     MessageType = "data"
	MessageCommand  MessageType = "command"
	MessageError    MessageType = "error"
)

// Valid reports whether t is one of the six protocol message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageProposal, MessageDecision, MessageStatus, MessageData, MessageCommand, MessageError:
		return true
	}
	return false
}

// Priority orders message handling at the receiving side.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority level.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Payload is the tagged union of the six type-specific message bodies.
// Each concrete payload reports the MessageType it belongs under so the
// codec can enforce that the envelope discriminator and body agree.
type Payload interface {
	MessageType() MessageType
}

// Envelope is one unit of inter-agent communication. The payload shape is
// determined by MessageType; every other field is transport metadata.
type Envelope struct {
	MessageID       string      `json:"messageId"`
	ConversationID  string      `json:"conversationId"`
	Timestamp       time.Time   `json:"timestamp"`
	CorrelationID   string      `json:"correlationId"`
	SenderAgent     string      `json:"senderAgent"`
	RecipientAgent  string      `json:"recipientAgent"`
	MessageType     MessageType `json:"messageType"`
	Payload         Payload     `json:"payload"`
	ProtocolVersion string      `json:"protocolVersion"`
	Priority        Priority    `json:"priority"`
	ExpiresAt       *time.Time  `json:"expiresAt,omitempty"`
	TraceID         string      `json:"traceId,omitempty"`
	SpanID          string      `json:"spanId,omitempty"`
}

// Expired reports whether the envelope carries an expiry that has passed.
func (e *Envelope) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// ProposalPayload wraps a specialist agent's proposal for transport.
type ProposalPayload struct {
	Proposal
}

func (ProposalPayload) MessageType() MessageType { return MessageProposal }

// DecisionPayload carries the orchestration's final decision record.
type DecisionPayload struct {
	Decision
}

func (DecisionPayload) MessageType() MessageType { return MessageDecision }

// StatusPayload reports workflow progress within a conversation.
type StatusPayload struct {
	RequestID string `json:"requestId"`
	Stage     string `json:"stage"`
	State     string `json:"state"`
	Detail    string `json:"detail,omitempty"`
}

func (StatusPayload) MessageType() MessageType { return MessageStatus }

// DataPayload is a free-form body used for context exchange, including
// proposal requests sent to specialist agents during collection.
type DataPayload struct {
	Kind    string                 `json:"kind"`
	Content map[string]interface{} `json:"content,omitempty"`
}

func (DataPayload) MessageType() MessageType { return MessageData }

// CommandPayload instructs the execution collaborator to apply one action.
type CommandPayload struct {
	CommandID            string                 `json:"commandId"`
	CommandType          string                 `json:"commandType"`
	TargetSystem         string                 `json:"targetSystem"`
	Parameters           map[string]interface{} `json:"parameters,omitempty"`
	ExecutionMethod      ExecutionMethod        `json:"executionMethod"`
	SafetyChecksRequired bool                   `json:"safetyChecksRequired"`
	AuthorizationToken   string                 `json:"authorizationToken"`
	AuthorizedBy         string                 `json:"authorizedBy"`
}

func (CommandPayload) MessageType() MessageType { return MessageCommand }

// ErrorPayload reports a failure back to the message originator.
type ErrorPayload struct {
	ErrorCode         string                 `json:"errorCode"`
	ErrorMessage      string                 `json:"errorMessage"`
	ErrorDetails      map[string]interface{} `json:"errorDetails,omitempty"`
	IsRetryable       bool                   `json:"isRetryable"`
	RetryAfterSeconds int                    `json:"retryAfter,omitempty"`
	OriginalMessageID string                 `json:"originalMessageId"`
}

func (ErrorPayload) MessageType() MessageType { return MessageError }
