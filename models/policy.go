package models

import (
	"fmt"
	"time"
)

// PolicyStatus is the lifecycle state of a policy version.
type PolicyStatus string

const (
	PolicyStatusDraft   PolicyStatus = "DRAFT"
	PolicyStatusActive  PolicyStatus = "ACTIVE"
	PolicyStatusRetired PolicyStatus = "RETIRED"
)

// Severity ranks how serious a rule violation is.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Rank returns the severity's numeric order, higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// ActionClass is the closed decision-priority class a rule action maps to.
// Action names are open-ended strings (extraction may invent new ones), but
// every rule must resolve to exactly one class so the priority order stays
// total.
type ActionClass string

const (
	ClassApprove              ActionClass = "approve"
	ClassWarn                 ActionClass = "warn"
	ClassRequireDocumentation ActionClass = "require_documentation"
	ClassEscalate             ActionClass = "escalate"
	ClassReject               ActionClass = "reject"
)

// Priority returns the class's position in the fixed total order
// REJECT > ESCALATE > REQUIRE_DOCUMENTATION > WARN > APPROVE.
func (c ActionClass) Priority() int {
	switch c {
	case ClassReject:
		return 5
	case ClassEscalate:
		return 4
	case ClassRequireDocumentation:
		return 3
	case ClassWarn:
		return 2
	case ClassApprove:
		return 1
	}
	return 0
}

// Well-known action names produced by the extraction collaborator.
const (
	ActionEligible             = "ELIGIBLE"
	ActionApprove              = "APPROVE"
	ActionReject               = "REJECT"
	ActionWarn                 = "WARN"
	ActionEscalate             = "ESCALATE"
	ActionRequireDocumentation = "REQUIRE_DOCUMENTATION"
	ActionLapseDays            = "LAPSE_DAYS"
)

// ClassifyAction maps an action name to its priority class. Unknown names do
// not classify; such a rule must declare Class explicitly or it is malformed.
func ClassifyAction(action string) (ActionClass, bool) {
	switch action {
	case ActionEligible, ActionApprove:
		return ClassApprove, true
	case ActionReject:
		return ClassReject, true
	case ActionWarn, ActionLapseDays:
		return ClassWarn, true
	case ActionEscalate:
		return ClassEscalate, true
	case ActionRequireDocumentation:
		return ClassRequireDocumentation, true
	}
	return "", false
}

// RemediationHints carries structured remediation data authored on the rule,
// used by suggestion synthesis when the rule is violated.
type RemediationHints struct {
	// AdjustableField names the request attribute the requester controls
	// (e.g. leave_days); threshold suggestions only apply to such fields.
	AdjustableField string `json:"adjustable_field,omitempty" yaml:"adjustable_field,omitempty"`

	// Blackout window the rule guards, in calendar-date form.
	BlackoutStart string `json:"blackout_start,omitempty" yaml:"blackout_start,omitempty"`
	BlackoutEnd   string `json:"blackout_end,omitempty" yaml:"blackout_end,omitempty"`

	// Date-range field names; default to start_date / end_date.
	StartField string `json:"start_field,omitempty" yaml:"start_field,omitempty"`
	EndField   string `json:"end_field,omitempty" yaml:"end_field,omitempty"`
}

// Rule is a single condition-action pair extracted from a policy document.
type Rule struct {
	ID        string        `json:"rule_id" yaml:"rule_id"`
	PolicyID  string        `json:"policy_id" yaml:"policy_id"`
	Condition ConditionNode `json:"condition" yaml:"condition"`
	Action    string        `json:"action" yaml:"action"`
	// Class overrides action-name classification for novel action names.
	Class    ActionClass `json:"class,omitempty" yaml:"class,omitempty"`
	Severity Severity    `json:"severity" yaml:"severity"`
	Message  string      `json:"message" yaml:"message"`
	Enabled  bool        `json:"enabled" yaml:"enabled"`

	// Eligibility metadata carried through to approvals.
	Allocation *int   `json:"allocation,omitempty" yaml:"allocation,omitempty"`
	Period     string `json:"period,omitempty" yaml:"period,omitempty"`

	// Documentation demanded by REQUIRE_DOCUMENTATION rules.
	RequiredDoc string `json:"required_doc,omitempty" yaml:"required_doc,omitempty"`

	Hints *RemediationHints `json:"hints,omitempty" yaml:"hints,omitempty"`
}

// PriorityClass resolves the rule's decision-priority class.
func (r *Rule) PriorityClass() (ActionClass, bool) {
	if r.Class != "" {
		if r.Class.Priority() == 0 {
			return "", false
		}
		return r.Class, true
	}
	return ClassifyAction(r.Action)
}

// Validate checks the rule's structural invariants against the field schema.
// A failing rule is excluded from evaluation, never a fatal error.
func (r *Rule) Validate(schema Schema) error {
	if r.ID == "" {
		return fmt.Errorf("rule has no ID")
	}
	if _, ok := r.PriorityClass(); !ok {
		return fmt.Errorf("rule %s: action %q maps to no priority class", r.ID, r.Action)
	}
	if err := r.Condition.Validate(schema); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	return nil
}

// Policy is a named, versioned collection of rules derived from one source
// document. A policy owns its rules; deleting the policy deletes them.
type Policy struct {
	ID         string       `json:"policy_id" yaml:"policy_id"`
	Name       string       `json:"policy_name" yaml:"policy_name"`
	Version    int          `json:"version" yaml:"version"`
	Status     PolicyStatus `json:"status" yaml:"status"`
	Tags       []string     `json:"tags" yaml:"tags"`
	Rules      []Rule       `json:"rules" yaml:"rules"`
	SourceFile string       `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	CreatedAt  time.Time    `json:"created_at" yaml:"-"`
	UpdatedAt  time.Time    `json:"updated_at" yaml:"-"`
}

// NewPolicy creates a draft policy version.
func NewPolicy(id, name string, version int, tags []string) *Policy {
	now := time.Now().UTC()
	return &Policy{
		ID:        id,
		Name:      name,
		Version:   version,
		Status:    PolicyStatusDraft,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
