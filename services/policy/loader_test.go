package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hrops/policy-engine/models"
	"github.com/hrops/policy-engine/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRuleSetFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ruleset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleRuleSet = `
schema:
  leave_days:
    kind: number
  grade:
    kind: grade
    levels: [E7, E8, Directors, "MD & CEO"]
policies:
  - policy_id: POL_LEAVE
    policy_name: Leave Policy
    version: 3
    tags: [leave_request]
    rules:
      - rule_id: R_EXCESS
        action: REJECT
        severity: HIGH
        message: requested days exceed the annual limit
        condition:
          field: leave_days
          operator: ">"
          value: 18
      - rule_id: R_DISABLED
        action: WARN
        enabled: false
        condition:
          field: leave_days
          operator: ">"
          value: 10
  - policy_id: POL_SENIOR
    policy_name: Seniority Policy
    status: DRAFT
    rules:
      - rule_id: R_GRADE
        action: ESCALATE
        condition:
          logical: AND
          children:
            - field: grade
              operator: ">="
              value: Directors
            - field: leave_days
              operator: ">"
              value: 5
`

func TestLoadRuleSet(t *testing.T) {
	path := writeRuleSetFile(t, sampleRuleSet)

	rs, err := LoadRuleSet(path)
	require.NoError(t, err)
	require.Len(t, rs.Policies, 2)
	assert.Contains(t, rs.Schema, "grade")

	leave := rs.Policies[0]
	assert.Equal(t, "POL_LEAVE", leave.ID)
	assert.Equal(t, 3, leave.Version)
	assert.Equal(t, models.PolicyStatusActive, leave.Status, "file policies default to ACTIVE")
	assert.Equal(t, path, leave.SourceFile)
	require.Len(t, leave.Rules, 2)
	assert.True(t, leave.Rules[0].Enabled, "rules are enabled unless the file says otherwise")
	assert.False(t, leave.Rules[1].Enabled)
	assert.Equal(t, "POL_LEAVE", leave.Rules[0].PolicyID)

	senior := rs.Policies[1]
	assert.Equal(t, 1, senior.Version, "missing versions default to 1")
	assert.Equal(t, models.PolicyStatusDraft, senior.Status)

	t.Run("loaded conditions evaluate", func(t *testing.T) {
		rule := leave.Rules[0]
		require.NoError(t, rule.Validate(rs.Schema))

		operand, err := rule.Condition.Operand(models.KindNumber)
		require.NoError(t, err)
		assert.Equal(t, 18.0, operand.Number)
	})

	t.Run("nested groups survive the round trip", func(t *testing.T) {
		tree := senior.Rules[0].Condition
		require.False(t, tree.IsLeaf())
		require.Len(t, tree.Children, 2)
		assert.Equal(t, "grade", tree.Children[0].Field)
	})
}

func TestLoadRuleSetErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRuleSet(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeRuleSetFile(t, "policies: [")
		_, err := LoadRuleSet(path)
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("invalid schema", func(t *testing.T) {
		path := writeRuleSetFile(t, `
schema:
  grade:
    kind: grade
policies: []
`)
		_, err := LoadRuleSet(path)
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("missing policy id", func(t *testing.T) {
		path := writeRuleSetFile(t, `
schema: {}
policies:
  - policy_name: Anonymous
`)
		_, err := LoadRuleSet(path)
		require.Error(t, err)
	})

	t.Run("duplicate policy id", func(t *testing.T) {
		path := writeRuleSetFile(t, `
schema: {}
policies:
  - policy_id: POL_A
  - policy_id: POL_A
`)
		_, err := LoadRuleSet(path)
		require.Error(t, err)
	})
}
