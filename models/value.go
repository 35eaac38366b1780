package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the runtime type of a field value.
type Kind string

const (
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindDate    Kind = "date"
	KindBoolean Kind = "boolean"
	KindSet     Kind = "set"
	// KindGrade is a string value ordered by a per-ruleset grade hierarchy
	// (e.g. E7 < E8 < Directors < MD & CEO).
	KindGrade Kind = "grade"
)

// DateLayout is the calendar-date wire format. Dates carry no time component;
// comparisons are calendar comparisons, never timestamp comparisons.
const DateLayout = "2006-01-02"

// Value is a typed field value: a request-context entry or a condition operand.
type Value struct {
	Kind   Kind
	Number float64
	Str    string
	Date   time.Time
	Bool   bool
	Set    []string
}

// NumberValue builds a numeric Value.
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// StringValue builds a string Value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// BoolValue builds a boolean Value.
func BoolValue(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

// SetValue builds a set Value from its members.
func SetValue(members ...string) Value { return Value{Kind: KindSet, Set: members} }

// GradeValue builds a grade Value. Ordering comes from the schema's hierarchy.
func GradeValue(name string) Value { return Value{Kind: KindGrade, Str: name} }

// DateValue builds a calendar-date Value, truncated to UTC midnight.
func DateValue(t time.Time) Value {
	return Value{Kind: KindDate, Date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in DateLayout form.
func ParseDate(s string) (Value, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Value{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateValue(t), nil
}

// Equal reports type-aware equality. Values of different kinds are never
// equal; grade and string values compare by name.
func (v Value) Equal(other Value) bool {
	if !v.ComparableWith(other) {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Number == other.Number
	case KindString, KindGrade:
		return v.Str == other.Str
	case KindDate:
		return v.Date.Equal(other.Date)
	case KindBoolean:
		return v.Bool == other.Bool
	case KindSet:
		if len(v.Set) != len(other.Set) {
			return false
		}
		for i := range v.Set {
			if v.Set[i] != other.Set[i] {
				return false
			}
		}
		return true
	}
	return false
}

// ComparableWith reports whether two values share a kind for comparison
// purposes. The evaluator treats operands of incomparable kinds as
// indeterminate rather than unequal.
func (v Value) ComparableWith(other Value) bool {
	if v.Kind == other.Kind {
		return true
	}
	// Grades are strings with an ordering attached.
	return (v.Kind == KindGrade && other.Kind == KindString) ||
		(v.Kind == KindString && other.Kind == KindGrade)
}

// String renders the value for log output and suggestion text.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		if v.Number == float64(int64(v.Number)) {
			return fmt.Sprintf("%d", int64(v.Number))
		}
		return fmt.Sprintf("%g", v.Number)
	case KindString, KindGrade:
		return v.Str
	case KindDate:
		return v.Date.Format(DateLayout)
	case KindBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case KindSet:
		return fmt.Sprintf("%v", v.Set)
	}
	return ""
}

// MarshalJSON renders the value as its natural JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Number)
	case KindString, KindGrade:
		return json.Marshal(v.Str)
	case KindDate:
		return json.Marshal(v.Date.Format(DateLayout))
	case KindBoolean:
		return json.Marshal(v.Bool)
	case KindSet:
		return json.Marshal(v.Set)
	}
	return nil, fmt.Errorf("cannot marshal value of kind %q", v.Kind)
}

// DecodeValue decodes a raw JSON value into a typed Value according to the
// declared field kind. There is no implicit coercion: a JSON string for a
// numeric field is an error, not a parse attempt.
func DecodeValue(raw json.RawMessage, kind Kind) (Value, error) {
	switch kind {
	case KindNumber:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, fmt.Errorf("expected number: %w", err)
		}
		return NumberValue(n), nil
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("expected string: %w", err)
		}
		return StringValue(s), nil
	case KindGrade:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("expected grade name: %w", err)
		}
		return GradeValue(s), nil
	case KindDate:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("expected date string: %w", err)
		}
		return ParseDate(s)
	case KindBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, fmt.Errorf("expected boolean: %w", err)
		}
		return BoolValue(b), nil
	case KindSet:
		var members []string
		if err := json.Unmarshal(raw, &members); err != nil {
			return Value{}, fmt.Errorf("expected string array: %w", err)
		}
		return SetValue(members...), nil
	}
	return Value{}, fmt.Errorf("unknown field kind %q", kind)
}

// InferValue decodes a raw JSON value by its JSON type. Used for context
// fields that have no schema entry: numbers, booleans and string arrays map
// directly, strings in DateLayout form become dates, everything else stays a
// plain string.
func InferValue(raw json.RawMessage) (Value, error) {
	var probe interface{}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Value{}, err
	}
	switch typed := probe.(type) {
	case float64:
		return NumberValue(typed), nil
	case bool:
		return BoolValue(typed), nil
	case string:
		if d, err := ParseDate(typed); err == nil {
			return d, nil
		}
		return StringValue(typed), nil
	case []interface{}:
		members := make([]string, 0, len(typed))
		for _, m := range typed {
			s, ok := m.(string)
			if !ok {
				return Value{}, fmt.Errorf("set members must be strings, got %T", m)
			}
			members = append(members, s)
		}
		return SetValue(members...), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", probe)
}
