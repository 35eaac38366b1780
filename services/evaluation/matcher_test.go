package evaluation

import (
	"encoding/json"
	"testing"

	"github.com/hrops/policy-engine/models"
	"github.com/stretchr/testify/assert"
)

func ruleWithCondition(condition models.ConditionNode) *models.Rule {
	return &models.Rule{ID: "R1", Action: models.ActionReject, Condition: condition, Enabled: true}
}

func child(id, field string, op models.Operator, value string) models.ConditionNode {
	return models.ConditionNode{ID: id, Field: field, Operator: op, Value: json.RawMessage(value)}
}

func TestMatchRuleAnd(t *testing.T) {
	rc, schema := testContext(), testSchema()

	t.Run("all match", func(t *testing.T) {
		rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalAnd, Children: []models.ConditionNode{
			child("A", "leave_days", models.OpGreaterThan, `18`),
			child("B", "leave_type", models.OpEqual, `"casual"`),
		}})
		rm := MatchRule(rule, rc, schema)
		assert.Equal(t, Match, rm.Result)
		assert.Equal(t, []string{"A", "B"}, rm.FiredLeaves)
	})

	t.Run("one no-match fails the conjunction", func(t *testing.T) {
		rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalAnd, Children: []models.ConditionNode{
			child("A", "leave_days", models.OpGreaterThan, `18`),
			child("B", "leave_type", models.OpEqual, `"sick"`),
		}})
		assert.Equal(t, NoMatch, MatchRule(rule, rc, schema).Result)
	})

	t.Run("no-match dominates indeterminate", func(t *testing.T) {
		rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalAnd, Children: []models.ConditionNode{
			child("A", "department", models.OpEqual, `"sales"`),
			child("B", "leave_type", models.OpEqual, `"sick"`),
		}})
		rm := MatchRule(rule, rc, schema)
		assert.Equal(t, NoMatch, rm.Result)
		assert.Equal(t, []string{"department"}, rm.MissingFields)
	})

	t.Run("indeterminate without a no-match stays indeterminate", func(t *testing.T) {
		rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalAnd, Children: []models.ConditionNode{
			child("A", "department", models.OpEqual, `"sales"`),
			child("B", "leave_type", models.OpEqual, `"casual"`),
		}})
		assert.Equal(t, Indeterminate, MatchRule(rule, rc, schema).Result)
	})
}

func TestMatchRuleOr(t *testing.T) {
	rc, schema := testContext(), testSchema()

	t.Run("short-circuits on first match in declared order", func(t *testing.T) {
		rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalOr, Children: []models.ConditionNode{
			child("A", "leave_days", models.OpGreaterThan, `18`),
			child("B", "leave_type", models.OpEqual, `"casual"`),
		}})
		rm := MatchRule(rule, rc, schema)
		assert.Equal(t, Match, rm.Result)
		// B would also match but was never attempted.
		assert.Equal(t, []string{"A"}, rm.FiredLeaves)
	})

	t.Run("all no-match", func(t *testing.T) {
		rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalOr, Children: []models.ConditionNode{
			child("A", "leave_days", models.OpGreaterThan, `30`),
			child("B", "leave_type", models.OpEqual, `"sick"`),
		}})
		assert.Equal(t, NoMatch, MatchRule(rule, rc, schema).Result)
	})

	t.Run("indeterminate branch keeps the disjunction unknown", func(t *testing.T) {
		rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalOr, Children: []models.ConditionNode{
			child("A", "department", models.OpEqual, `"sales"`),
			child("B", "leave_type", models.OpEqual, `"sick"`),
		}})
		assert.Equal(t, Indeterminate, MatchRule(rule, rc, schema).Result)
	})

	t.Run("match after an indeterminate sibling still matches", func(t *testing.T) {
		rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalOr, Children: []models.ConditionNode{
			child("A", "department", models.OpEqual, `"sales"`),
			child("B", "leave_type", models.OpEqual, `"casual"`),
		}})
		rm := MatchRule(rule, rc, schema)
		assert.Equal(t, Match, rm.Result)
		assert.Equal(t, []string{"B"}, rm.FiredLeaves)
	})
}

func TestMatchRuleNot(t *testing.T) {
	rc, schema := testContext(), testSchema()

	t.Run("inverts match", func(t *testing.T) {
		rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalNot, Children: []models.ConditionNode{
			child("A", "leave_type", models.OpEqual, `"casual"`),
		}})
		assert.Equal(t, NoMatch, MatchRule(rule, rc, schema).Result)
	})

	t.Run("inverts no-match", func(t *testing.T) {
		rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalNot, Children: []models.ConditionNode{
			child("A", "leave_type", models.OpEqual, `"sick"`),
		}})
		assert.Equal(t, Match, MatchRule(rule, rc, schema).Result)
	})

	t.Run("NOT of unknown is unknown", func(t *testing.T) {
		rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalNot, Children: []models.ConditionNode{
			child("A", "department", models.OpEqual, `"sales"`),
		}})
		assert.Equal(t, Indeterminate, MatchRule(rule, rc, schema).Result)
	})
}

func TestMatchRuleNested(t *testing.T) {
	rc, schema := testContext(), testSchema()

	// (leave_days > 18 AND NOT leave_type == "sick") with both sides true.
	rule := ruleWithCondition(models.ConditionNode{Logical: models.LogicalAnd, Children: []models.ConditionNode{
		child("A", "leave_days", models.OpGreaterThan, `18`),
		{Logical: models.LogicalNot, Children: []models.ConditionNode{
			child("B", "leave_type", models.OpEqual, `"sick"`),
		}},
	}})
	rm := MatchRule(rule, rc, schema)
	assert.Equal(t, Match, rm.Result)
	assert.Equal(t, []string{"A"}, rm.FiredLeaves, "the negated leaf itself did not fire")
}
