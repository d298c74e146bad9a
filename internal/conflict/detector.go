// Package conflict finds resource contention between specialist proposals.
package conflict

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
)

// Detector flags control-variable overlap between proposals. It holds no
// mutable state and is safe for concurrent use across workflows.
type Detector struct {
	logger *zap.Logger
}

// NewDetector creates a conflict detector.
func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{logger: logger.Named("conflict_detector")}
}

// Detect compares every unordered pair of proposals and emits one conflict
// per pair whose actions touch at least one common control variable. Zero or
// one proposal yields no conflicts; a proposal never conflicts with itself.
// O(n^2 * k) for n proposals of k actions each, which is fine given n is
// bounded by the number of registered specialist agents.
func (d *Detector) Detect(proposals []schemas.Proposal) []schemas.Conflict {
	if len(proposals) < 2 {
		return nil
	}

	var conflicts []schemas.Conflict
	for i := 0; i < len(proposals); i++ {
		for j := i + 1; j < len(proposals); j++ {
			shared := intersectVariables(proposals[i], proposals[j])
			if len(shared) == 0 {
				continue
			}
			d.logger.Debug("Control variable contention detected",
				zap.String("agent_a", proposals[i].AgentID),
				zap.String("agent_b", proposals[j].AgentID),
				zap.Strings("variables", shared),
			)
			conflicts = append(conflicts, schemas.Conflict{
				Type:      schemas.ConflictControlVariable,
				Severity:  schemas.SeverityHigh,
				Agents:    []string{proposals[i].AgentID, proposals[j].AgentID},
				Variables: shared,
			})
		}
	}
	return conflicts
}

// intersectVariables returns the control variables referenced by both
// proposals, in a's first-seen order.
func intersectVariables(a, b schemas.Proposal) []string {
	inB := make(map[string]struct{})
	for _, v := range b.ControlVariables() {
		inB[v] = struct{}{}
	}
	var shared []string
	for _, v := range a.ControlVariables() {
		if _, ok := inB[v]; ok {
			shared = append(shared, v)
		}
	}
	return shared
}
