package schemas

import "time"

// WorkflowStatus is the engine's stage discriminator. Transitions are
// strictly forward; completed and error are terminal.
type WorkflowStatus string

const (
	StatusInitializing WorkflowStatus = "initializing"
	StatusCollecting   WorkflowStatus = "collecting"
	StatusAnalyzing    WorkflowStatus = "analyzing"
	StatusResolving    WorkflowStatus = "resolving"
	StatusDeciding     WorkflowStatus = "deciding"
	StatusExecuting    WorkflowStatus = "executing"
	StatusCompleted    WorkflowStatus = "completed"
	StatusError        WorkflowStatus = "error"
)

// Terminal reports whether the workflow can advance no further.
func (s WorkflowStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// WorkflowState is the mutable state threaded through one orchestration run.
// It is exclusively owned by that run for its whole lifetime.
type WorkflowState struct {
	RequestID        string                 `json:"requestId"`
	ConversationID   string                 `json:"conversationId"`
	Trigger          string                 `json:"trigger"`
	Context          map[string]interface{} `json:"context,omitempty"`
	StartedAt        time.Time              `json:"startedAt"`
	Proposals        []Proposal             `json:"proposals,omitempty"`
	Conflicts        []Conflict             `json:"conflicts,omitempty"`
	Approved         []Action               `json:"approvedActions,omitempty"`
	Rejected         []Action               `json:"rejectedActions,omitempty"`
	Modified         []Action               `json:"modifiedActions,omitempty"`
	Decision         *Decision              `json:"decision,omitempty"`
	ExecutionResults []ExecutionResult      `json:"executionResults,omitempty"`
	Status           WorkflowStatus         `json:"status"`
	Cause            string                 `json:"cause,omitempty"`
}
