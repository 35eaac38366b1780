package evaluation

import (
	"strconv"

	"github.com/hrops/policy-engine/models"
)

// MatchResult is the tri-state outcome of evaluating a condition. A leaf
// never fails hard: missing fields and runtime type mismatches evaluate
// INDETERMINATE so the rule matcher decides policy.
type MatchResult int

const (
	NoMatch MatchResult = iota
	Match
	Indeterminate
)

func (r MatchResult) String() string {
	switch r {
	case Match:
		return "MATCH"
	case Indeterminate:
		return "INDETERMINATE"
	}
	return "NO_MATCH"
}

// EvaluateLeaf evaluates a single leaf condition against the request context.
func EvaluateLeaf(leaf *models.ConditionNode, rc models.RequestContext, schema models.Schema) MatchResult {
	actual, ok := rc[leaf.Field]
	if !ok {
		return Indeterminate
	}

	kind := actual.Kind
	if spec, declared := schema[leaf.Field]; declared {
		kind = spec.Kind
	}

	operand, err := leaf.Operand(kind)
	if err != nil {
		return Indeterminate
	}

	switch leaf.Operator {
	case models.OpEqual, models.OpNotEqual:
		// A kind mismatch is not inequality; without coercion there is no
		// answer, so the leaf stays unknown.
		if !actual.ComparableWith(operand) {
			return Indeterminate
		}
		return boolResult(actual.Equal(operand) == (leaf.Operator == models.OpEqual))
	case models.OpIn:
		return evaluateMembership(actual, operand)
	case models.OpGreaterThan, models.OpLessThan, models.OpGreaterOrEqual, models.OpLessOrEqual:
		return evaluateOrdering(leaf.Operator, leaf.Field, actual, operand, schema)
	}
	return Indeterminate
}

func boolResult(matched bool) MatchResult {
	if matched {
		return Match
	}
	return NoMatch
}

// evaluateOrdering compares two values of an ordered kind. The declared value
// type must match the runtime type; no implicit coercion.
func evaluateOrdering(op models.Operator, field string, actual, operand models.Value, schema models.Schema) MatchResult {
	switch actual.Kind {
	case models.KindNumber:
		if operand.Kind != models.KindNumber {
			return Indeterminate
		}
		return compareOrdered(op, actual.Number, operand.Number)
	case models.KindDate:
		if operand.Kind != models.KindDate {
			return Indeterminate
		}
		// Calendar comparison: both sides are truncated to midnight UTC.
		return compareOrdered(op, float64(actual.Date.Unix()), float64(operand.Date.Unix()))
	case models.KindGrade, models.KindString:
		actualLevel, ok := schema.GradeLevel(field, actual.Str)
		if !ok {
			return Indeterminate
		}
		operandLevel, ok := schema.GradeLevel(field, operand.Str)
		if !ok {
			return Indeterminate
		}
		return compareOrdered(op, float64(actualLevel), float64(operandLevel))
	}
	return Indeterminate
}

func compareOrdered(op models.Operator, actual, operand float64) MatchResult {
	switch op {
	case models.OpGreaterThan:
		return boolResult(actual > operand)
	case models.OpLessThan:
		return boolResult(actual < operand)
	case models.OpGreaterOrEqual:
		return boolResult(actual >= operand)
	case models.OpLessOrEqual:
		return boolResult(actual <= operand)
	}
	return Indeterminate
}

// evaluateMembership checks IN against a set operand. String and grade values
// match by name; numbers match any member that parses to the same value.
func evaluateMembership(actual, operand models.Value) MatchResult {
	if operand.Kind != models.KindSet {
		return Indeterminate
	}
	switch actual.Kind {
	case models.KindString, models.KindGrade:
		for _, member := range operand.Set {
			if member == actual.Str {
				return Match
			}
		}
		return NoMatch
	case models.KindNumber:
		for _, member := range operand.Set {
			n, err := strconv.ParseFloat(member, 64)
			if err == nil && n == actual.Number {
				return Match
			}
		}
		return NoMatch
	case models.KindDate:
		for _, member := range operand.Set {
			d, err := models.ParseDate(member)
			if err == nil && d.Date.Equal(actual.Date) {
				return Match
			}
		}
		return NoMatch
	}
	return Indeterminate
}
