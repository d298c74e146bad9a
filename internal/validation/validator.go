// Package validation screens every inbound message and proposal before it
// reaches the orchestration engine. Validation is pure and stateless: the
// same input always yields the same accept/reject outcome.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/internal/config"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// agentIDPattern accepts lowercase service-style identifiers such as
// "stability_agent" or "kiln-optimizer-2".
var agentIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,63}$`)

// dangerousPatterns are scanned case-insensitively against the serialized
// payload. Any match rejects the message outright; there is no partial
// acceptance for content that smells like an injection attempt.
var dangerousPatterns = []string{
	"<script",
	"javascript:",
	"onerror=",
	"drop table",
	"truncate table",
	"delete from",
	"union select",
	"eval(",
	"exec(",
	"execsync",
	"child_process",
	"subprocess.",
	"os.system",
	"/bin/sh",
	"rm -rf",
}

// Validator applies structural, size, content-safety and numeric checks.
type Validator struct {
	limits config.ValidationConfig
	ranges map[string]config.VariableRange
}

// New builds a validator over the configured limits and safe ranges.
func New(limits config.ValidationConfig, ranges map[string]config.VariableRange) *Validator {
	if limits.MaxPayloadBytes <= 0 {
		limits.MaxPayloadBytes = 1 << 20
	}
	if limits.MaxStringLength <= 0 {
		limits.MaxStringLength = 1000
	}
	if limits.MaxArrayLength <= 0 {
		limits.MaxArrayLength = 100
	}
	return &Validator{limits: limits, ranges: ranges}
}

// ValidateEnvelope checks an inbound envelope: required fields, enum
// membership, payload size, content safety, and the per-type payload shape.
func (v *Validator) ValidateEnvelope(env *schemas.Envelope) error {
	switch {
	case env == nil:
		return &schemas.ValidationError{Reason: "envelope is nil"}
	case env.MessageID == "":
		return &schemas.ValidationError{Field: "messageId", Reason: "required"}
	case env.ConversationID == "":
		return &schemas.ValidationError{Field: "conversationId", Reason: "required"}
	case env.Timestamp.IsZero():
		return &schemas.ValidationError{Field: "timestamp", Reason: "required"}
	case env.CorrelationID == "":
		return &schemas.ValidationError{Field: "correlationId", Reason: "required"}
	case env.ProtocolVersion == "":
		return &schemas.ValidationError{Field: "protocolVersion", Reason: "required"}
	case env.Payload == nil:
		return &schemas.ValidationError{Field: "payload", Reason: "required"}
	}

	if !agentIDPattern.MatchString(env.SenderAgent) {
		return &schemas.ValidationError{Field: "senderAgent", Reason: "does not match the agent id pattern"}
	}
	if env.RecipientAgent != schemas.BroadcastRecipient && !agentIDPattern.MatchString(env.RecipientAgent) {
		return &schemas.ValidationError{Field: "recipientAgent", Reason: "does not match the agent id pattern"}
	}
	if !env.MessageType.Valid() {
		return &schemas.ValidationError{Field: "messageType", Reason: fmt.Sprintf("unknown type %q", env.MessageType)}
	}
	if !env.Priority.Valid() {
		return &schemas.ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", env.Priority)}
	}
	if got := env.Payload.MessageType(); got != env.MessageType {
		return &schemas.ValidationError{
			Field:  "payload",
			Reason: fmt.Sprintf("payload shape %q does not match declared type %q", got, env.MessageType),
		}
	}

	serialized, err := jsonAPI.Marshal(env.Payload)
	if err != nil {
		return &schemas.ValidationError{Field: "payload", Reason: fmt.Sprintf("unserializable payload: %v", err)}
	}
	if len(serialized) > v.limits.MaxPayloadBytes {
		return &schemas.ValidationError{
			Field:  "payload",
			Reason: fmt.Sprintf("payload of %d bytes exceeds the %d byte limit", len(serialized), v.limits.MaxPayloadBytes),
		}
	}
	if err := scanContent(serialized); err != nil {
		return err
	}

	return v.validatePayload(env.Payload)
}

// validatePayload applies per-type structural checks.
func (v *Validator) validatePayload(payload schemas.Payload) error {
	switch p := payload.(type) {
	case schemas.ProposalPayload:
		return v.ValidateProposal(&p.Proposal)
	case schemas.CommandPayload:
		switch {
		case p.CommandID == "":
			return &schemas.ValidationError{Field: "commandId", Reason: "required"}
		case p.TargetSystem == "":
			return &schemas.ValidationError{Field: "targetSystem", Reason: "required"}
		case p.AuthorizationToken == "":
			return &schemas.ValidationError{Field: "authorizationToken", Reason: "required"}
		case !p.ExecutionMethod.Valid():
			return &schemas.ValidationError{Field: "executionMethod", Reason: fmt.Sprintf("unknown method %q", p.ExecutionMethod)}
		}
	case schemas.ErrorPayload:
		switch {
		case p.ErrorCode == "":
			return &schemas.ValidationError{Field: "errorCode", Reason: "required"}
		case p.ErrorMessage == "":
			return &schemas.ValidationError{Field: "errorMessage", Reason: "required"}
		case p.OriginalMessageID == "":
			return &schemas.ValidationError{Field: "originalMessageId", Reason: "required"}
		}
	case schemas.StatusPayload:
		if p.State == "" {
			return &schemas.ValidationError{Field: "state", Reason: "required"}
		}
	case schemas.DecisionPayload:
		if p.DecisionID == "" {
			return &schemas.ValidationError{Field: "decisionId", Reason: "required"}
		}
	case schemas.DataPayload:
		if p.Kind == "" {
			return &schemas.ValidationError{Field: "kind", Reason: "required"}
		}
	}
	return nil
}

// ValidateProposal checks a proposal's structure, enums, string and array
// bounds, content safety, and numeric sanity. Safe-range checks for the
// individual actions live in ValidateAction; the resolver routes actions
// that fail them into the rejected partition instead of dropping the whole
// proposal.
func (v *Validator) ValidateProposal(p *schemas.Proposal) error {
	switch {
	case p == nil:
		return &schemas.ValidationError{Reason: "proposal is nil"}
	case !agentIDPattern.MatchString(p.AgentID):
		return &schemas.ValidationError{Field: "agentId", Reason: "does not match the agent id pattern"}
	case !p.ProposalType.Valid():
		return &schemas.ValidationError{Field: "proposalType", Reason: fmt.Sprintf("unknown type %q", p.ProposalType)}
	case !p.Urgency.Valid():
		return &schemas.ValidationError{Field: "urgency", Reason: fmt.Sprintf("unknown urgency %q", p.Urgency)}
	case p.Title == "":
		return &schemas.ValidationError{Field: "title", Reason: "required"}
	case len(p.Actions) == 0:
		return &schemas.ValidationError{Field: "actions", Reason: "a proposal must carry at least one action"}
	}

	if math.IsNaN(p.Confidence) || math.IsInf(p.Confidence, 0) || p.Confidence < 0 || p.Confidence > 1 {
		return &schemas.ValidationError{Field: "confidence", Reason: "must be a finite number in [0,1]"}
	}

	for field, s := range map[string]string{
		"title":       p.Title,
		"description": p.Description,
		"rationale":   p.Rationale,
	} {
		if len(s) > v.limits.MaxStringLength {
			return &schemas.ValidationError{Field: field, Reason: fmt.Sprintf("exceeds %d characters", v.limits.MaxStringLength)}
		}
	}
	for field, list := range map[string][]string{
		"expectedOutcomes":     p.ExpectedOutcomes,
		"risks":                p.Risks,
		"mitigationStrategies": p.MitigationStrategies,
		"constraints":          p.Constraints,
		"prerequisites":        p.Prerequisites,
	} {
		if len(list) > v.limits.MaxArrayLength {
			return &schemas.ValidationError{Field: field, Reason: fmt.Sprintf("exceeds %d elements", v.limits.MaxArrayLength)}
		}
		for _, s := range list {
			if len(s) > v.limits.MaxStringLength {
				return &schemas.ValidationError{Field: field, Reason: fmt.Sprintf("element exceeds %d characters", v.limits.MaxStringLength)}
			}
		}
	}
	if len(p.Actions) > v.limits.MaxArrayLength {
		return &schemas.ValidationError{Field: "actions", Reason: fmt.Sprintf("exceeds %d elements", v.limits.MaxArrayLength)}
	}

	serialized, err := jsonAPI.Marshal(p)
	if err != nil {
		return &schemas.ValidationError{Reason: fmt.Sprintf("unserializable proposal: %v", err)}
	}
	if err := scanContent(serialized); err != nil {
		return err
	}

	for i, a := range p.Actions {
		if err := validateActionShape(a); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// validateActionShape checks structure and numeric finiteness, but not safe
// ranges.
func validateActionShape(a schemas.Action) error {
	if a.ControlVariable == "" {
		return &schemas.ValidationError{Field: "controlVariable", Reason: "required"}
	}
	if !a.Method.Valid() {
		return &schemas.ValidationError{Field: "executionMethod", Reason: fmt.Sprintf("unknown method %q", a.Method)}
	}
	for field, val := range map[string]float64{
		"currentValue":  a.CurrentValue,
		"proposedValue": a.ProposedValue,
		"adjustment":    a.Adjustment,
	} {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return &schemas.ValidationError{Field: field, Reason: "must be a finite number"}
		}
	}
	return nil
}

// ValidateAction checks one action against the configured safe range of its
// control variable: the proposed value must lie inside [min,max], both ends
// inclusive, and the commanded jump may not exceed five steps.
func (v *Validator) ValidateAction(a schemas.Action) error {
	if err := validateActionShape(a); err != nil {
		return err
	}
	r, ok := v.ranges[a.ControlVariable]
	if !ok {
		return &schemas.ValidationError{
			Field:  "controlVariable",
			Reason: fmt.Sprintf("%q is not a configured control variable", a.ControlVariable),
		}
	}
	if a.ProposedValue < r.Min || a.ProposedValue > r.Max {
		return &schemas.ValidationError{
			Field:  "proposedValue",
			Reason: fmt.Sprintf("%g is outside the safe range [%g, %g] for %s", a.ProposedValue, r.Min, r.Max, a.ControlVariable),
		}
	}
	if limit := 5 * r.Step; a.Magnitude() > limit {
		return &schemas.ValidationError{
			Field:  "adjustment",
			Reason: fmt.Sprintf("magnitude %g exceeds the %g ceiling (5 x step) for %s", a.Magnitude(), limit, a.ControlVariable),
		}
	}
	return nil
}

// scanContent rejects payloads containing known dangerous substrings.
func scanContent(serialized []byte) error {
	lowered := strings.ToLower(string(serialized))
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowered, pattern) {
			return &schemas.ValidationError{
				Field:  "payload",
				Reason: fmt.Sprintf("content matches dangerous pattern %q", pattern),
			}
		}
	}
	return nil
}
