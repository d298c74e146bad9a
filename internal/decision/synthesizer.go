// Package decision assembles the final, auditable decision record for one
// orchestration workflow.
package decision

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
)

// RollbackPolicy is declared on every execution plan. Enforcement lives with
// the execution agent.
const RollbackPolicy = "automatic rollback on first failed step"

// Synthesizer turns resolver output into a Decision with rationale, risk
// summary and an ordered execution plan.
type Synthesizer struct {
	stepDuration time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewSynthesizer creates a decision synthesizer. stepDuration is the
// per-step estimate used to size the plan's total duration.
func NewSynthesizer(stepDuration time.Duration, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		stepDuration: stepDuration,
		logger:       logger.Named("synthesizer"),
		now:          time.Now,
	}
}

// Synthesize builds the Decision for one workflow. It verifies the partition
// invariant before emitting anything: approved, rejected and modified must
// together account for every action of every source proposal, with none
// counted twice.
func (s *Synthesizer) Synthesize(proposals []schemas.Proposal, conflicts []schemas.Conflict, approved, rejected, modified []schemas.Action) (*schemas.Decision, error) {
	total := 0
	sourceIDs := make([]string, 0, len(proposals))
	for _, p := range proposals {
		total += len(p.Actions)
		sourceIDs = append(sourceIDs, p.ProposalID)
	}
	partitioned := len(approved) + len(rejected) + len(modified)
	if partitioned != total {
		return nil, &schemas.ConflictResolutionError{
			Reason: fmt.Sprintf("resolution covers %d actions but proposals contain %d", partitioned, total),
		}
	}

	d := &schemas.Decision{
		DecisionID:      uuid.NewString(),
		Timestamp:       s.now().UTC(),
		SourceProposals: sourceIDs,
		Conflicts:       conflicts,
		Approved:        approved,
		Rejected:        rejected,
		Modified:        modified,
		Rationale:       rationale(proposals, conflicts, approved, rejected, modified),
		RiskSummary:     riskSummary(conflicts, rejected, modified),
		Plan:            s.plan(approved),
	}

	s.logger.Info("Decision synthesized",
		zap.String("decision_id", d.DecisionID),
		zap.Int("approved", len(approved)),
		zap.Int("rejected", len(rejected)),
		zap.Int("modified", len(modified)),
		zap.Int("conflicts", len(conflicts)),
	)
	return d, nil
}

// plan orders the approved actions for dispatch. Modified actions are not
// scheduled here: they go back to their owning agents as advisories rather
// than into the command stream.
func (s *Synthesizer) plan(approved []schemas.Action) schemas.ExecutionPlan {
	steps := make([]schemas.ExecutionStep, 0, len(approved))
	for i, a := range approved {
		steps = append(steps, schemas.ExecutionStep{
			Sequence:             i + 1,
			Action:               a,
			Method:               a.Method,
			SafetyChecksRequired: a.SafetyChecksRequired,
		})
	}
	return schemas.ExecutionPlan{
		Steps:             steps,
		EstimatedDuration: time.Duration(len(steps)) * s.stepDuration,
		RollbackPolicy:    RollbackPolicy,
	}
}

func rationale(proposals []schemas.Proposal, conflicts []schemas.Conflict, approved, rejected, modified []schemas.Action) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Considered %d proposal(s) from %s.", len(proposals), agentList(proposals))
	if len(conflicts) == 0 {
		b.WriteString(" No control variable contention was detected.")
	} else {
		fmt.Fprintf(&b, " Detected %d conflict(s) over %s; resolved by constitutional priority.",
			len(conflicts), variableList(conflicts))
	}
	fmt.Fprintf(&b, " Outcome: %d action(s) approved, %d modified for graceful de-confliction, %d rejected on safety grounds.",
		len(approved), len(modified), len(rejected))
	return b.String()
}

func riskSummary(conflicts []schemas.Conflict, rejected, modified []schemas.Action) string {
	// The label tracks contention alone.
	if len(conflicts) == 0 {
		if len(rejected) == 0 {
			return "low: no contention, all actions within safe operating ranges"
		}
		return fmt.Sprintf("low: no contention, %d action(s) rejected on safety grounds", len(rejected))
	}
	reasons := []string{fmt.Sprintf("%d resolved conflict(s)", len(conflicts))}
	if len(modified) > 0 {
		reasons = append(reasons, fmt.Sprintf("%d de-rated action(s)", len(modified)))
	}
	if len(rejected) > 0 {
		reasons = append(reasons, fmt.Sprintf("%d action(s) outside safe ranges", len(rejected)))
	}
	return "medium: " + strings.Join(reasons, ", ")
}

func agentList(proposals []schemas.Proposal) string {
	if len(proposals) == 0 {
		return "no agents"
	}
	ids := make([]string, 0, len(proposals))
	for _, p := range proposals {
		ids = append(ids, p.AgentID)
	}
	return strings.Join(ids, ", ")
}

func variableList(conflicts []schemas.Conflict) string {
	seen := make(map[string]struct{})
	var vars []string
	for _, c := range conflicts {
		for _, v := range c.Variables {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			vars = append(vars, v)
		}
	}
	return strings.Join(vars, ", ")
}
