package schemas

import "math"

// ProposalType classifies the intent of a specialist agent's proposal and,
// together with urgency, determines its resolution priority.
type ProposalType string

const (
	ProposalStability    ProposalType = "stability"
	ProposalQuality      ProposalType = "quality"
	ProposalEmissions    ProposalType = "emissions"
	ProposalOptimization ProposalType = "optimization"
	ProposalEmergency    ProposalType = "emergency"
)

// Valid reports whether t is a known proposal type.
func (t ProposalType) Valid() bool {
	switch t {
	case ProposalStability, ProposalQuality, ProposalEmissions, ProposalOptimization, ProposalEmergency:
		return true
	}
	return false
}

// Urgency expresses how quickly a proposal expects to be acted on.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Valid reports whether u is a known urgency level.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// ExecutionMethod describes how an action should be applied to the process.
type ExecutionMethod string

const (
	ExecuteImmediate   ExecutionMethod = "immediate"
	ExecuteScheduled   ExecutionMethod = "scheduled"
	ExecuteConditional ExecutionMethod = "conditional"
	ExecuteGradual     ExecutionMethod = "gradual"
)

// Valid reports whether m is a known execution method.
func (m ExecutionMethod) Valid() bool {
	switch m {
	case ExecuteImmediate, ExecuteScheduled, ExecuteConditional, ExecuteGradual:
		return true
	}
	return false
}

// Action is one proposed change to a controllable process variable.
type Action struct {
	ControlVariable      string          `json:"controlVariable"`
	CurrentValue         float64         `json:"currentValue"`
	ProposedValue        float64         `json:"proposedValue"`
	Adjustment           float64         `json:"adjustment"`
	Method               ExecutionMethod `json:"executionMethod"`
	SafetyChecksRequired bool            `json:"safetyChecksRequired"`
}

// Magnitude returns |proposed - current|, the commanded jump size.
func (a Action) Magnitude() float64 {
	return math.Abs(a.ProposedValue - a.CurrentValue)
}

// Proposal is a specialist agent's suggested intervention. Once validated it
// is treated as an immutable value record; the engine only derives state from
// it and never mutates it in place.
type Proposal struct {
	ProposalID           string                 `json:"proposalId"`
	AgentID              string                 `json:"agentId"`
	ProposalType         ProposalType           `json:"proposalType"`
	Urgency              Urgency                `json:"urgency"`
	Title                string                 `json:"title"`
	Description          string                 `json:"description,omitempty"`
	Rationale            string                 `json:"rationale,omitempty"`
	Actions              []Action               `json:"actions"`
	ExpectedOutcomes     []string               `json:"expectedOutcomes,omitempty"`
	Risks                []string               `json:"risks,omitempty"`
	MitigationStrategies []string               `json:"mitigationStrategies,omitempty"`
	SupportingData       map[string]interface{} `json:"supportingData,omitempty"`
	Confidence           float64                `json:"confidence"`
	Constraints          []string               `json:"constraints,omitempty"`
	Prerequisites        []string               `json:"prerequisites,omitempty"`
}

// ControlVariables returns the distinct variable names touched by the
// proposal's actions, in first-seen order.
func (p Proposal) ControlVariables() []string {
	seen := make(map[string]struct{}, len(p.Actions))
	vars := make([]string, 0, len(p.Actions))
	for _, a := range p.Actions {
		if _, ok := seen[a.ControlVariable]; ok {
			continue
		}
		seen[a.ControlVariable] = struct{}{}
		vars = append(vars, a.ControlVariable)
	}
	return vars
}
