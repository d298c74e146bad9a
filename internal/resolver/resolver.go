// Package resolver applies the constitution, a fixed priority ordering over
// proposal types, to turn a set of possibly conflicting proposals into
// approved, rejected and modified action lists.
package resolver

import (
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/internal/config"
	"github.com/xkilldash9x/foreman-cli/internal/validation"
)

// Resolution partitions the union of all proposed actions. Every input
// action lands in exactly one of the three lists.
type Resolution struct {
	Approved []schemas.Action
	Rejected []schemas.Action
	Modified []schemas.Action
}

// Resolver decides the fate of each proposed action. The constitution and
// safe ranges are immutable after construction, so a single Resolver serves
// all workflows concurrently.
type Resolver struct {
	constitution config.ConstitutionConfig
	validator    *validation.Validator
	logger       *zap.Logger
}

// NewResolver creates a constitutional resolver.
func NewResolver(constitution config.ConstitutionConfig, validator *validation.Validator, logger *zap.Logger) *Resolver {
	return &Resolver{
		constitution: constitution,
		validator:    validator,
		logger:       logger.Named("resolver"),
	}
}

// topPriority marks the classes the constitution never vetoes. Safety and
// quality proposals survive contention; only the safe-range check can still
// reject their actions.
const topPriority = 2

// Resolve sorts proposals by constitutional priority, arrival order breaking
// ties, and walks the sorted list:
//
//   - actions failing the safe-range check are rejected outright
//   - unconflicted proposals, and conflicted ones at priority 1 or 2, are
//     approved
//   - conflicted proposals below priority 2 have their actions modified:
//     adjustment halved, execution method forced to gradual
//
// Two top-priority proposals contending for the same variable would both be
// approved under a naive reading of the policy, re-introducing the conflict.
// The tie is broken by arrival order instead: the earlier proposal wins its
// approval, the later one is de-rated to modified.
func (r *Resolver) Resolve(proposals []schemas.Proposal, conflicts []schemas.Conflict) Resolution {
	ordered := make([]schemas.Proposal, len(proposals))
	copy(ordered, proposals)
	sort.SliceStable(ordered, func(i, j int) bool {
		return r.priorityOf(ordered[i]) < r.priorityOf(ordered[j])
	})

	var res Resolution
	claimed := make(map[string]string) // control variable -> approving agent
	for _, p := range ordered {
		prio := r.priorityOf(p)
		conflicted := involvedInConflict(p.AgentID, conflicts)
		approve := !conflicted || prio <= topPriority
		if approve && conflicted && prio <= topPriority {
			// Same-priority contention: a variable already claimed by an
			// earlier top-priority proposal cannot be claimed again.
			approve = !claimsTakenVariable(p, claimed)
		}

		for _, a := range p.Actions {
			if err := r.validator.ValidateAction(a); err != nil {
				r.logger.Warn("Action rejected by safety validation",
					zap.String("agent", p.AgentID),
					zap.String("control_variable", a.ControlVariable),
					zap.Error(err),
				)
				res.Rejected = append(res.Rejected, a)
				continue
			}
			if approve {
				res.Approved = append(res.Approved, a)
				claimed[a.ControlVariable] = p.AgentID
				continue
			}
			res.Modified = append(res.Modified, deRate(a))
		}

		r.logger.Debug("Proposal resolved",
			zap.String("agent", p.AgentID),
			zap.Int("priority", prio),
			zap.Bool("conflicted", conflicted),
			zap.Bool("approved", approve),
		)
	}
	return res
}

func (r *Resolver) priorityOf(p schemas.Proposal) int {
	return r.constitution.PriorityOf(string(p.ProposalType))
}

func involvedInConflict(agentID string, conflicts []schemas.Conflict) bool {
	for _, c := range conflicts {
		if c.Involves(agentID) {
			return true
		}
	}
	return false
}

func claimsTakenVariable(p schemas.Proposal, claimed map[string]string) bool {
	for _, a := range p.Actions {
		if owner, ok := claimed[a.ControlVariable]; ok && owner != p.AgentID {
			return true
		}
	}
	return false
}

// deRate halves an action's adjustment and forces gradual execution. The
// proposed value moves to the midpoint between current and the original
// target so the halved magnitude is reflected in both fields.
func deRate(a schemas.Action) schemas.Action {
	a.Adjustment /= 2
	a.ProposedValue = a.CurrentValue + (a.ProposedValue-a.CurrentValue)/2
	a.Method = schemas.ExecuteGradual
	a.SafetyChecksRequired = true
	return a
}
