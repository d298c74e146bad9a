package decision

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
)

func newTestSynthesizer(t *testing.T) *Synthesizer {
	t.Helper()
	s := NewSynthesizer(30*time.Second, zaptest.NewLogger(t))
	s.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return s
}

func action(variable string, current, proposed float64, method schemas.ExecutionMethod) schemas.Action {
	return schemas.Action{
		ControlVariable:      variable,
		CurrentValue:         current,
		ProposedValue:        proposed,
		Adjustment:           proposed - current,
		Method:               method,
		SafetyChecksRequired: true,
	}
}

func TestSynthesizeNoConflicts(t *testing.T) {
	s := newTestSynthesizer(t)

	a := action("kiln_speed", 3.2, 3.3, schemas.ExecuteImmediate)
	proposals := []schemas.Proposal{{
		ProposalID:   "prop-1",
		AgentID:      "kiln_stability",
		ProposalType: schemas.ProposalStability,
		Actions:      []schemas.Action{a},
	}}

	d, err := s.Synthesize(proposals, nil, []schemas.Action{a}, nil, nil)
	require.NoError(t, err)

	_, parseErr := uuid.Parse(d.DecisionID)
	assert.NoError(t, parseErr)
	assert.Equal(t, []string{"prop-1"}, d.SourceProposals)
	assert.Equal(t, []schemas.Action{a}, d.Approved)
	assert.Empty(t, d.Rejected)
	assert.Empty(t, d.Modified)
	assert.Contains(t, d.Rationale, "1 action(s) approved")
	assert.Contains(t, d.RiskSummary, "low")
}

func TestSynthesizeRejectionsWithoutContentionStayLowRisk(t *testing.T) {
	s := newTestSynthesizer(t)

	approved := action("kiln_speed", 3.2, 3.3, schemas.ExecuteImmediate)
	rejected := action("fuel_rate", 100, 140, schemas.ExecuteImmediate)
	proposals := []schemas.Proposal{{
		ProposalID:   "prop-1",
		AgentID:      "kiln_stability",
		ProposalType: schemas.ProposalStability,
		Actions:      []schemas.Action{approved, rejected},
	}}

	d, err := s.Synthesize(proposals, nil, []schemas.Action{approved}, []schemas.Action{rejected}, nil)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(d.RiskSummary, "low:"), d.RiskSummary)
	assert.Contains(t, d.RiskSummary, "1 action(s) rejected on safety grounds")
}

func TestSynthesizePlanOrdersApprovedActions(t *testing.T) {
	s := newTestSynthesizer(t)

	a1 := action("kiln_speed", 3.2, 3.3, schemas.ExecuteImmediate)
	a2 := action("fuel_rate", 100, 103, schemas.ExecuteGradual)
	proposals := []schemas.Proposal{{
		ProposalID:   "prop-1",
		AgentID:      "kiln_stability",
		ProposalType: schemas.ProposalStability,
		Actions:      []schemas.Action{a1, a2},
	}}

	d, err := s.Synthesize(proposals, nil, []schemas.Action{a1, a2}, nil, nil)
	require.NoError(t, err)

	require.Len(t, d.Plan.Steps, 2)
	assert.Equal(t, 1, d.Plan.Steps[0].Sequence)
	assert.Equal(t, "kiln_speed", d.Plan.Steps[0].Action.ControlVariable)
	assert.Equal(t, schemas.ExecuteImmediate, d.Plan.Steps[0].Method)
	assert.Equal(t, 2, d.Plan.Steps[1].Sequence)
	assert.Equal(t, schemas.ExecuteGradual, d.Plan.Steps[1].Method)
	assert.Equal(t, 60*time.Second, d.Plan.EstimatedDuration)
	assert.Equal(t, RollbackPolicy, d.Plan.RollbackPolicy)
}

func TestSynthesizeModifiedActionsStayOutOfPlan(t *testing.T) {
	s := newTestSynthesizer(t)

	approvedAction := action("kiln_speed", 3.2, 3.3, schemas.ExecuteImmediate)
	modifiedAction := action("fuel_rate", 100, 98, schemas.ExecuteGradual)
	proposals := []schemas.Proposal{
		{ProposalID: "prop-1", AgentID: "kiln_stability", ProposalType: schemas.ProposalStability,
			Actions: []schemas.Action{approvedAction}},
		{ProposalID: "prop-2", AgentID: "combustion_opt", ProposalType: schemas.ProposalOptimization,
			Actions: []schemas.Action{modifiedAction}},
	}
	conflicts := []schemas.Conflict{{
		Type: schemas.ConflictControlVariable, Severity: schemas.SeverityHigh,
		Agents: []string{"kiln_stability", "combustion_opt"}, Variables: []string{"fuel_rate"},
	}}

	d, err := s.Synthesize(proposals, conflicts,
		[]schemas.Action{approvedAction}, nil, []schemas.Action{modifiedAction})
	require.NoError(t, err)

	require.Len(t, d.Plan.Steps, 1)
	assert.Equal(t, "kiln_speed", d.Plan.Steps[0].Action.ControlVariable)
	assert.Contains(t, d.Rationale, "fuel_rate")
	assert.Contains(t, d.RiskSummary, "medium")
	assert.Contains(t, d.RiskSummary, "1 resolved conflict(s)")
}

func TestSynthesizePartitionViolation(t *testing.T) {
	s := newTestSynthesizer(t)

	a := action("kiln_speed", 3.2, 3.3, schemas.ExecuteImmediate)
	proposals := []schemas.Proposal{{
		ProposalID:   "prop-1",
		AgentID:      "kiln_stability",
		ProposalType: schemas.ProposalStability,
		Actions:      []schemas.Action{a, action("fuel_rate", 100, 101, schemas.ExecuteImmediate)},
	}}

	// Only one of the two actions is accounted for.
	d, err := s.Synthesize(proposals, nil, []schemas.Action{a}, nil, nil)
	assert.Nil(t, d)

	var cErr *schemas.ConflictResolutionError
	require.ErrorAs(t, err, &cErr)
}

func TestSynthesizeEmptyWorkflow(t *testing.T) {
	s := newTestSynthesizer(t)

	d, err := s.Synthesize(nil, nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, d.Plan.Steps)
	assert.Equal(t, time.Duration(0), d.Plan.EstimatedDuration)
	assert.Contains(t, d.Rationale, "0 proposal(s)")
}
