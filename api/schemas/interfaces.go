package schemas

import (
	"context"
	"time"
)

// -- Collaborator Interfaces --
//
// The components behind these interfaces (numeric models, field actuation,
// persistence, metrics transport) live outside this repository. The engine
// only depends on the contracts below.

// ProposalSource is one specialist agent the engine can solicit a proposal
// from during the collecting stage. A nil proposal with a nil error means
// the agent declined to propose for this trigger.
type ProposalSource interface {
	// AgentID returns the stable identifier of the backing agent.
	AgentID() string
	// RequestProposal asks the agent for an intervention given the trigger
	// and workflow context. Implementations must honor ctx cancellation.
	RequestProposal(ctx context.Context, trigger string, workflowContext map[string]interface{}) (*Proposal, error)
}

// CommandExecutor applies one approved action against the physical process.
type CommandExecutor interface {
	Execute(ctx context.Context, action Action) (ExecutionResult, error)
}

// Authenticator issues and verifies the bearer credentials attached to every
// A2A message.
type Authenticator interface {
	// IssueToken mints a credential asserting the given agent identity.
	IssueToken(agentID string) (string, error)
	// Verify checks a presented credential and returns the agent identity it
	// asserts. Failures are reported as *AuthenticationError.
	Verify(token string) (string, error)
}

// Event is one structured observability record emitted by the engine.
type Event struct {
	Name      string
	RequestID string
	Stage     WorkflowStatus
	Duration  time.Duration
	Err       error
}

// Sink receives engine events. Implementations must be safe for concurrent
// use and must not block the workflow.
type Sink interface {
	Emit(event Event)
}

// DecisionStore persists the audit record of a completed workflow.
type DecisionStore interface {
	SaveDecision(ctx context.Context, state *WorkflowState) error
}
