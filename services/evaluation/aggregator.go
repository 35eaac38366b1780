package evaluation

import (
	"fmt"

	"github.com/hrops/policy-engine/models"
)

// Mode selects what the aggregator does when no rule matches at all.
type Mode string

const (
	// ModeWhitelist treats the absence of a matching approval rule as a
	// rejection: no positive match is not proof of compliance.
	ModeWhitelist Mode = "whitelist"
	// ModeBlacklist approves anything no rule prohibits.
	ModeBlacklist Mode = "blacklist"
)

// matchedRule is one rule that matched the request, in iteration order.
type matchedRule struct {
	rule  *models.Rule
	class models.ActionClass
}

// Aggregate runs the rule matcher across every enabled rule of the selected
// policies (policy-relevance order, then declaration order) and resolves the
// aggregate decision. The evaluation always completes: malformed rules and
// missing fields degrade to warnings on the decision, never to errors.
func Aggregate(ranked []RankedPolicy, rc models.RequestContext, schema models.Schema, mode Mode) *models.Decision {
	decision := &models.Decision{
		ContributingRules: []string{},
		ViolatedRules:     []string{},
		Approvals:         []models.Approval{},
		Violations:        []models.Violation{},
	}

	if len(ranked) == 0 {
		decision.Outcome = models.OutcomeEscalate
		decision.PrimaryReason = "no applicable policy found"
		return decision
	}

	var matched []matchedRule
	for _, rp := range ranked {
		for i := range rp.Policy.Rules {
			rule := &rp.Policy.Rules[i]
			if !rule.Enabled {
				continue
			}
			if err := rule.Validate(schema); err != nil {
				decision.Warnings = append(decision.Warnings, models.Warning{
					Code:    models.WarningMalformedRule,
					RuleID:  rule.ID,
					Message: fmt.Sprintf("rule excluded: %v", err),
				})
				continue
			}

			rm := MatchRule(rule, rc, schema)
			switch rm.Result {
			case Indeterminate:
				// Insufficient data is distinct from "does not violate".
				for _, field := range rm.MissingFields {
					decision.Warnings = append(decision.Warnings, models.Warning{
						Code:    models.WarningMissingField,
						RuleID:  rule.ID,
						Field:   field,
						Message: fmt.Sprintf("rule %s indeterminate: context lacks field %q", rule.ID, field),
					})
				}
			case Match:
				class, _ := rule.PriorityClass()
				matched = append(matched, matchedRule{rule: rule, class: class})
				decision.ContributingRules = append(decision.ContributingRules, rule.ID)
				recordMatch(decision, rule, class)
			}
		}
	}

	decision.Warnings = append(decision.Warnings, conflictWarnings(matched)...)

	if len(matched) == 0 {
		applyDefault(decision, mode)
		return decision
	}

	primary := primaryRule(matched)
	decision.Outcome = models.OutcomeForClass(winningClass(matched))
	decision.PrimaryReason = primary.Message
	decision.PrimaryRuleID = primary.ID
	if decision.Outcome == models.OutcomeApprove && decision.PrimaryReason == "" {
		decision.PrimaryReason = "request complies with all policies"
	}
	return decision
}

func recordMatch(decision *models.Decision, rule *models.Rule, class models.ActionClass) {
	if class == models.ClassApprove {
		decision.Approvals = append(decision.Approvals, models.Approval{
			RuleID:     rule.ID,
			Allocation: rule.Allocation,
			Period:     rule.Period,
		})
		return
	}
	decision.ViolatedRules = append(decision.ViolatedRules, rule.ID)
	decision.Violations = append(decision.Violations, models.Violation{
		RuleID:      rule.ID,
		Message:     rule.Message,
		Severity:    rule.Severity,
		RequiredDoc: rule.RequiredDoc,
	})
}

// winningClass picks the highest-priority class among the matches. The order
// REJECT > ESCALATE > REQUIRE_DOCUMENTATION > WARN > APPROVE is total and
// fixed: one matched REJECT rule forces a rejection no matter how many
// approval rules also matched.
func winningClass(matched []matchedRule) models.ActionClass {
	winner := matched[0].class
	for _, m := range matched[1:] {
		if m.class.Priority() > winner.Priority() {
			winner = m.class
		}
	}
	return winner
}

// primaryRule picks the reason source: within the winning class, the rule
// with the highest declared severity, earliest match winning ties.
func primaryRule(matched []matchedRule) *models.Rule {
	winner := winningClass(matched)
	var primary *models.Rule
	for _, m := range matched {
		if m.class != winner {
			continue
		}
		if primary == nil || m.rule.Severity.Rank() > primary.Severity.Rank() {
			primary = m.rule
		}
	}
	return primary
}

// applyDefault resolves a request no rule matched according to the
// evaluation mode. The mode is an explicit input, never inferred from the
// rule set's contents.
func applyDefault(decision *models.Decision, mode Mode) {
	if mode == ModeBlacklist {
		decision.Outcome = models.OutcomeApprove
		decision.PrimaryReason = "no rule prohibits this request"
		return
	}
	decision.Outcome = models.OutcomeReject
	decision.PrimaryReason = "request matches no eligibility rule"
}

// conflictWarnings reports matched rules in the same priority class carrying
// different actions. Both rules stay in the decision; severity and priority
// already picked a winner deterministically, but the overlap is surfaced so
// the rule author can fix it upstream.
func conflictWarnings(matched []matchedRule) []models.Warning {
	var warnings []models.Warning
	for i := 0; i < len(matched); i++ {
		for j := i + 1; j < len(matched); j++ {
			if matched[i].class != matched[j].class {
				continue
			}
			if matched[i].rule.Action == matched[j].rule.Action {
				continue
			}
			warnings = append(warnings, models.Warning{
				Code:   models.WarningRuleConflict,
				RuleID: matched[i].rule.ID,
				Message: fmt.Sprintf("rules %s and %s overlap with different actions (%s vs %s)",
					matched[i].rule.ID, matched[j].rule.ID, matched[i].rule.Action, matched[j].rule.Action),
			})
		}
	}
	return warnings
}
