package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() Schema {
	return Schema{
		"leave_days": {Kind: KindNumber},
		"leave_type": {Kind: KindString},
		"start_date": {Kind: KindDate},
		"grade":      {Kind: KindGrade, Levels: []string{"E7", "E8", "Directors", "MD & CEO"}},
	}
}

func leaf(field string, op Operator, value string) ConditionNode {
	return ConditionNode{Field: field, Operator: op, Value: json.RawMessage(value)}
}

func TestConditionValidate(t *testing.T) {
	schema := testSchema()

	t.Run("valid leaf", func(t *testing.T) {
		c := leaf("leave_days", OpGreaterThan, `18`)
		assert.NoError(t, c.Validate(schema))
	})

	t.Run("unknown operator", func(t *testing.T) {
		c := leaf("leave_days", Operator("~="), `18`)
		assert.Error(t, c.Validate(schema))
	})

	t.Run("field not in schema", func(t *testing.T) {
		c := leaf("unknown_field", OpEqual, `1`)
		assert.Error(t, c.Validate(schema))
	})

	t.Run("ordering needs ordered kind", func(t *testing.T) {
		c := leaf("leave_type", OpGreaterThan, `"sick"`)
		assert.Error(t, c.Validate(schema))
	})

	t.Run("ordering on grade is fine", func(t *testing.T) {
		c := leaf("grade", OpGreaterOrEqual, `"Directors"`)
		assert.NoError(t, c.Validate(schema))
	})

	t.Run("operand type must match field kind", func(t *testing.T) {
		c := leaf("leave_days", OpGreaterThan, `"eighteen"`)
		assert.Error(t, c.Validate(schema))
	})

	t.Run("NOT needs exactly one child", func(t *testing.T) {
		c := ConditionNode{Logical: LogicalNot, Children: []ConditionNode{
			leaf("leave_days", OpGreaterThan, `18`),
			leaf("leave_days", OpLessThan, `5`),
		}}
		assert.Error(t, c.Validate(schema))

		c.Children = c.Children[:1]
		assert.NoError(t, c.Validate(schema))
	})

	t.Run("AND and OR need at least one child", func(t *testing.T) {
		for _, op := range []LogicalOp{LogicalAnd, LogicalOr} {
			c := ConditionNode{Logical: op}
			assert.Error(t, c.Validate(schema), string(op))
		}
	})

	t.Run("unknown logical operator", func(t *testing.T) {
		c := ConditionNode{Logical: LogicalOp("XOR"), Children: []ConditionNode{
			leaf("leave_days", OpEqual, `1`),
		}}
		assert.Error(t, c.Validate(schema))
	})

	t.Run("invalid child fails the group", func(t *testing.T) {
		c := ConditionNode{Logical: LogicalAnd, Children: []ConditionNode{
			leaf("leave_days", OpGreaterThan, `18`),
			leaf("missing", OpEqual, `1`),
		}}
		assert.Error(t, c.Validate(schema))
	})
}

func TestConditionOperand(t *testing.T) {
	t.Run("IN decodes as a set regardless of field kind", func(t *testing.T) {
		c := leaf("leave_type", OpIn, `["sick","casual"]`)
		v, err := c.Operand(KindString)
		require.NoError(t, err)
		assert.Equal(t, KindSet, v.Kind)
		assert.Equal(t, []string{"sick", "casual"}, v.Set)
	})

	t.Run("yaml raw values encode through", func(t *testing.T) {
		c := ConditionNode{Field: "leave_days", Operator: OpGreaterThan, RawValue: 18}
		v, err := c.Operand(KindNumber)
		require.NoError(t, err)
		assert.Equal(t, 18.0, v.Number)
	})

	t.Run("missing value errors", func(t *testing.T) {
		c := ConditionNode{Field: "leave_days", Operator: OpGreaterThan}
		_, err := c.Operand(KindNumber)
		assert.Error(t, err)
	})
}

func TestLeafID(t *testing.T) {
	withID := ConditionNode{ID: "C1", Field: "leave_days", Operator: OpGreaterThan}
	assert.Equal(t, "C1", withID.LeafID())

	anonymous := ConditionNode{Field: "leave_days", Operator: OpGreaterThan}
	assert.Equal(t, "leave_days>", anonymous.LeafID())
}

func TestLeaves(t *testing.T) {
	tree := ConditionNode{Logical: LogicalOr, Children: []ConditionNode{
		{ID: "A", Field: "leave_days", Operator: OpGreaterThan, Value: json.RawMessage(`18`)},
		{Logical: LogicalNot, Children: []ConditionNode{
			{ID: "B", Field: "leave_type", Operator: OpEqual, Value: json.RawMessage(`"sick"`)},
		}},
	}}
	assert.Equal(t, []string{"A", "B"}, tree.Leaves())
}
