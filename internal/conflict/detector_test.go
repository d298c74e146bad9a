package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
)

func proposalFor(agentID string, variables ...string) schemas.Proposal {
	p := schemas.Proposal{
		ProposalID:   "prop-" + agentID,
		AgentID:      agentID,
		ProposalType: schemas.ProposalOptimization,
	}
	for _, v := range variables {
		p.Actions = append(p.Actions, schemas.Action{
			ControlVariable: v,
			CurrentValue:    3.0,
			ProposedValue:   3.2,
			Method:          schemas.ExecuteImmediate,
		})
	}
	return p
}

func TestDetectNoProposals(t *testing.T) {
	d := NewDetector(zaptest.NewLogger(t))
	assert.Empty(t, d.Detect(nil))
	assert.Empty(t, d.Detect([]schemas.Proposal{proposalFor("kiln_stability", "kiln_speed")}))
}

func TestDetectDisjointVariables(t *testing.T) {
	d := NewDetector(zaptest.NewLogger(t))
	conflicts := d.Detect([]schemas.Proposal{
		proposalFor("kiln_stability", "kiln_speed"),
		proposalFor("emissions_compliance", "draft_pressure"),
	})
	assert.Empty(t, conflicts)
}

func TestDetectSharedVariable(t *testing.T) {
	d := NewDetector(zaptest.NewLogger(t))
	conflicts := d.Detect([]schemas.Proposal{
		proposalFor("kiln_stability", "kiln_speed", "fuel_rate"),
		proposalFor("quality_control", "fuel_rate"),
	})
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	assert.Equal(t, schemas.ConflictControlVariable, c.Type)
	assert.Equal(t, schemas.SeverityHigh, c.Severity)
	assert.Equal(t, []string{"kiln_stability", "quality_control"}, c.Agents)
	assert.Equal(t, []string{"fuel_rate"}, c.Variables)
}

func TestDetectOneConflictPerPair(t *testing.T) {
	d := NewDetector(zaptest.NewLogger(t))

	// Two shared variables between the same pair still produce a single
	// conflict record naming both variables.
	conflicts := d.Detect([]schemas.Proposal{
		proposalFor("kiln_stability", "kiln_speed", "fuel_rate"),
		proposalFor("quality_control", "fuel_rate", "kiln_speed"),
	})
	require.Len(t, conflicts, 1)
	assert.ElementsMatch(t, []string{"kiln_speed", "fuel_rate"}, conflicts[0].Variables)
}

func TestDetectThreeWayContention(t *testing.T) {
	d := NewDetector(zaptest.NewLogger(t))

	// Three proposals all touching fuel_rate conflict pairwise.
	conflicts := d.Detect([]schemas.Proposal{
		proposalFor("kiln_stability", "fuel_rate"),
		proposalFor("quality_control", "fuel_rate"),
		proposalFor("emissions_compliance", "fuel_rate"),
	})
	require.Len(t, conflicts, 3)

	pairs := make(map[string]bool)
	for _, c := range conflicts {
		require.Len(t, c.Agents, 2)
		pairs[c.Agents[0]+"|"+c.Agents[1]] = true
	}
	assert.True(t, pairs["kiln_stability|quality_control"])
	assert.True(t, pairs["kiln_stability|emissions_compliance"])
	assert.True(t, pairs["quality_control|emissions_compliance"])
}

func TestDetectDuplicateVariableWithinProposal(t *testing.T) {
	d := NewDetector(zaptest.NewLogger(t))

	// A proposal listing the same variable twice does not inflate the
	// shared-variable list.
	conflicts := d.Detect([]schemas.Proposal{
		proposalFor("kiln_stability", "fuel_rate", "fuel_rate"),
		proposalFor("quality_control", "fuel_rate"),
	})
	require.Len(t, conflicts, 1)
	assert.Equal(t, []string{"fuel_rate"}, conflicts[0].Variables)
}
