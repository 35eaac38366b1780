package models

// Outcome is the aggregate decision for a request.
type Outcome string

const (
	OutcomeApprove              Outcome = "APPROVE"
	OutcomeWarn                 Outcome = "WARN"
	OutcomeEscalate             Outcome = "ESCALATE"
	OutcomeReject               Outcome = "REJECT"
	OutcomeRequireDocumentation Outcome = "REQUIRE_DOCUMENTATION"
)

// OutcomeForClass maps a winning priority class to its decision outcome.
func OutcomeForClass(c ActionClass) Outcome {
	switch c {
	case ClassReject:
		return OutcomeReject
	case ClassEscalate:
		return OutcomeEscalate
	case ClassRequireDocumentation:
		return OutcomeRequireDocumentation
	case ClassWarn:
		return OutcomeWarn
	}
	return OutcomeApprove
}

// WarningCode identifies a non-fatal evaluation condition. Warnings are
// attached to the decision for observability, never raised as errors.
type WarningCode string

const (
	// WarningMalformedRule marks a rule excluded for violating a structural
	// invariant (unknown operator, bad group arity, type mismatch).
	WarningMalformedRule WarningCode = "malformed_rule"
	// WarningMissingField marks a rule left indeterminate because the
	// request context lacks a field its conditions need.
	WarningMissingField WarningCode = "missing_field"
	// WarningInvalidField marks a context field dropped during decoding.
	WarningInvalidField WarningCode = "invalid_field"
	// WarningRuleConflict marks two matched rules in the same priority
	// class carrying different actions.
	WarningRuleConflict WarningCode = "rule_conflict"
)

// Warning is one non-fatal evaluation note.
type Warning struct {
	Code    WarningCode `json:"code"`
	RuleID  string      `json:"rule_id,omitempty"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

// Approval records a matched eligibility rule with its allocation.
type Approval struct {
	RuleID     string `json:"rule_id"`
	Allocation *int   `json:"allocation,omitempty"`
	Period     string `json:"period,omitempty"`
}

// Violation records a matched non-approve rule.
type Violation struct {
	RuleID      string   `json:"rule_id"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	RequiredDoc string   `json:"required_doc,omitempty"`
}

// Suggestion is a concrete remediation proposal, ranked by the estimated
// likelihood that applying it turns the decision into an approval.
type Suggestion struct {
	Text string `json:"text"`
	// Alternative is a partial request-context patch the requester could
	// apply, e.g. {"end_date": "2025-01-31"}.
	Alternative map[string]Value `json:"alternative,omitempty"`
	Score       float64          `json:"score"`
}

// Decision is the aggregate outcome of evaluating all applicable rules
// against one request. It is produced fresh per evaluation and never mutated.
type Decision struct {
	RequestID         string       `json:"request_id"`
	Outcome           Outcome      `json:"decision"`
	PrimaryReason     string       `json:"primary_reason"`
	PrimaryRuleID     string       `json:"primary_rule_id,omitempty"`
	ContributingRules []string     `json:"applicable_rules"`
	ViolatedRules     []string     `json:"violated_rules"`
	Approvals         []Approval   `json:"approvals"`
	Violations        []Violation  `json:"violations"`
	Suggestions       []Suggestion `json:"suggestions,omitempty"`
	Warnings          []Warning    `json:"warnings,omitempty"`
}
