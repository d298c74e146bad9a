package schemas

import "time"

// ConflictType identifies the kind of contention detected between proposals.
type ConflictType string

// ConflictControlVariable is raised when two proposals target the same
// controllable variable.
const ConflictControlVariable ConflictType = "control-variable-conflict"

// Severity grades how serious a detected conflict is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Conflict records contention between exactly two proposals.
type Conflict struct {
	Type      ConflictType `json:"type"`
	Severity  Severity     `json:"severity"`
	Agents    []string     `json:"agents"`
	Variables []string     `json:"variables"`
}

// Involves reports whether the conflict names the given agent.
func (c Conflict) Involves(agentID string) bool {
	for _, a := range c.Agents {
		if a == agentID {
			return true
		}
	}
	return false
}

// ExecutionStep is one ordered entry of a decision's execution plan.
type ExecutionStep struct {
	Sequence             int             `json:"sequence"`
	Action               Action          `json:"action"`
	Method               ExecutionMethod `json:"executionMethod"`
	SafetyChecksRequired bool            `json:"safetyChecksRequired"`
}

// ExecutionPlan orders the approved actions for dispatch and states the
// rollback posture. Rollback itself is the execution collaborator's
// responsibility; the engine only declares the policy.
type ExecutionPlan struct {
	Steps             []ExecutionStep `json:"steps"`
	EstimatedDuration time.Duration   `json:"estimatedDuration"`
	RollbackPolicy    string          `json:"rollbackPolicy"`
}

// Decision is the orchestration's final, append-only output for one
// workflow. Approved, rejected and modified always partition the union of
// all proposed actions.
type Decision struct {
	DecisionID      string        `json:"decisionId"`
	Timestamp       time.Time     `json:"timestamp"`
	SourceProposals []string      `json:"originalProposals"`
	Conflicts       []Conflict    `json:"conflicts"`
	Approved        []Action      `json:"approvedActions"`
	Rejected        []Action      `json:"rejectedActions"`
	Modified        []Action      `json:"modifiedActions"`
	Rationale       string        `json:"decisionRationale"`
	RiskSummary     string        `json:"riskEvaluation"`
	Plan            ExecutionPlan `json:"executionPlan"`
}

// ExecutionResult is the recorded outcome of dispatching one approved action.
type ExecutionResult struct {
	Action  Action `json:"action"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}
