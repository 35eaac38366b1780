package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FieldSpec declares the type of one request-context field. Grade fields
// additionally carry their ordered hierarchy, least senior first.
type FieldSpec struct {
	Kind   Kind     `json:"kind" yaml:"kind"`
	Levels []string `json:"levels,omitempty" yaml:"levels,omitempty"`
}

// Schema declares the types of all known request fields. It is supplied
// alongside the rule set so leave_days is known numeric, start_date known
// date, and so on.
type Schema map[string]FieldSpec

// GradeLevel resolves a grade name to its position in the field's hierarchy.
// Lookup is case-insensitive; unknown names do not resolve.
func (s Schema) GradeLevel(field, name string) (int, bool) {
	spec, ok := s[field]
	if !ok || spec.Kind != KindGrade {
		return 0, false
	}
	for i, level := range spec.Levels {
		if strings.EqualFold(level, name) {
			return i, true
		}
	}
	return 0, false
}

// Validate rejects schemas with unknown kinds or grade fields without levels.
func (s Schema) Validate() error {
	for field, spec := range s {
		switch spec.Kind {
		case KindNumber, KindString, KindDate, KindBoolean, KindSet:
		case KindGrade:
			if len(spec.Levels) == 0 {
				return fmt.Errorf("grade field %q declares no levels", field)
			}
		default:
			return fmt.Errorf("field %q has unknown kind %q", field, spec.Kind)
		}
	}
	return nil
}

// RequestContext is the flat field→value mapping a request is evaluated
// against. It is supplied per call and never persisted.
type RequestContext map[string]Value

// DecodeContext decodes a raw JSON object into a typed request context using
// the schema. Fields without a schema entry are decoded by their JSON type.
// Fields that fail to decode are dropped with a warning; conditions that need
// them later evaluate INDETERMINATE rather than failing the whole request.
// Fields decode in name order so the warnings, which end up on the decision,
// come out identically for identical input.
func DecodeContext(raw map[string]json.RawMessage, schema Schema) (RequestContext, []Warning) {
	fields := make([]string, 0, len(raw))
	for field := range raw {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	rc := make(RequestContext, len(raw))
	var warnings []Warning
	for _, field := range fields {
		var (
			value Value
			err   error
		)
		if spec, ok := schema[field]; ok {
			value, err = DecodeValue(raw[field], spec.Kind)
		} else {
			value, err = InferValue(raw[field])
		}
		if err != nil {
			warnings = append(warnings, Warning{
				Code:    WarningInvalidField,
				Field:   field,
				Message: fmt.Sprintf("field %q dropped: %v", field, err),
			})
			continue
		}
		rc[field] = value
	}
	return rc, warnings
}
