package models

import (
	"encoding/json"
	"fmt"
)

// Operator is a leaf comparison operator.
type Operator string

const (
	OpGreaterThan    Operator = ">"
	OpLessThan       Operator = "<"
	OpGreaterOrEqual Operator = ">="
	OpLessOrEqual    Operator = "<="
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpIn             Operator = "IN"
)

// IsOrdering reports whether the operator compares by order rather than
// identity or membership.
func (op Operator) IsOrdering() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		return true
	}
	return false
}

func knownOperator(op Operator) bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual, OpEqual, OpNotEqual, OpIn:
		return true
	}
	return false
}

// LogicalOp combines child conditions in a group node.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "AND"
	LogicalOr  LogicalOp = "OR"
	LogicalNot LogicalOp = "NOT"
)

// ConditionNode is one node of a rule's condition tree. A node is either a
// leaf (Field, Operator, Value set) or a group (Logical, Children set).
type ConditionNode struct {
	// Leaf fields.
	ID       string          `json:"id,omitempty" yaml:"id,omitempty"`
	Field    string          `json:"field,omitempty" yaml:"field,omitempty"`
	Operator Operator        `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    json.RawMessage `json:"value,omitempty" yaml:"-"`

	// Group fields.
	Logical  LogicalOp       `json:"logical,omitempty" yaml:"logical,omitempty"`
	Children []ConditionNode `json:"children,omitempty" yaml:"children,omitempty"`

	// RawValue mirrors Value for YAML-authored rule sets, where operands
	// arrive as native YAML scalars or sequences rather than raw JSON.
	RawValue interface{} `json:"-" yaml:"value,omitempty"`
}

// IsLeaf reports whether the node is a leaf condition.
func (n *ConditionNode) IsLeaf() bool { return n.Logical == "" }

// LeafID returns the leaf's declared ID, or a stable synthetic one derived
// from the comparison itself so match reporting works for unlabeled leaves.
func (n *ConditionNode) LeafID() string {
	if n.ID != "" {
		return n.ID
	}
	return fmt.Sprintf("%s%s", n.Field, n.Operator)
}

// Operand decodes the leaf's comparison value against the field's declared
// kind. IN leaves always decode as sets.
func (n *ConditionNode) Operand(kind Kind) (Value, error) {
	raw := n.Value
	if raw == nil && n.RawValue != nil {
		encoded, err := json.Marshal(n.RawValue)
		if err != nil {
			return Value{}, fmt.Errorf("condition value: %w", err)
		}
		raw = encoded
	}
	if raw == nil {
		return Value{}, fmt.Errorf("condition on %q has no value", n.Field)
	}
	if n.Operator == OpIn {
		return DecodeValue(raw, KindSet)
	}
	return DecodeValue(raw, kind)
}

// Validate checks the structural invariants of the condition tree: recognized
// operators, group arity (NOT has exactly one child, AND/OR at least one),
// fields present in the schema, and operand types matching the declared field
// kind. Ordering operators require an ordered kind (number, date or grade).
func (n *ConditionNode) Validate(schema Schema) error {
	if n.IsLeaf() {
		return n.validateLeaf(schema)
	}
	switch n.Logical {
	case LogicalNot:
		if len(n.Children) != 1 {
			return fmt.Errorf("NOT group must have exactly one child, has %d", len(n.Children))
		}
	case LogicalAnd, LogicalOr:
		if len(n.Children) == 0 {
			return fmt.Errorf("%s group must have at least one child", n.Logical)
		}
	default:
		return fmt.Errorf("unknown logical operator %q", n.Logical)
	}
	for i := range n.Children {
		if err := n.Children[i].Validate(schema); err != nil {
			return err
		}
	}
	return nil
}

func (n *ConditionNode) validateLeaf(schema Schema) error {
	if n.Field == "" {
		return fmt.Errorf("condition leaf has no field")
	}
	if !knownOperator(n.Operator) {
		return fmt.Errorf("unknown operator %q on field %q", n.Operator, n.Field)
	}
	spec, ok := schema[n.Field]
	if !ok {
		return fmt.Errorf("field %q not declared in schema", n.Field)
	}
	if n.Operator.IsOrdering() {
		switch spec.Kind {
		case KindNumber, KindDate, KindGrade:
		default:
			return fmt.Errorf("operator %q needs an ordered field, %q is %s", n.Operator, n.Field, spec.Kind)
		}
	}
	if _, err := n.Operand(spec.Kind); err != nil {
		return fmt.Errorf("field %q: %w", n.Field, err)
	}
	return nil
}

// Leaves appends the IDs of every leaf in declaration order.
func (n *ConditionNode) Leaves() []string {
	if n.IsLeaf() {
		return []string{n.LeafID()}
	}
	var ids []string
	for i := range n.Children {
		ids = append(ids, n.Children[i].Leaves()...)
	}
	return ids
}
