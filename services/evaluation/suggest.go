package evaluation

import (
	"context"
	"fmt"
	"sort"

	"github.com/hrops/policy-engine/models"
)

// MaxSuggestions caps the suggestion list attached to a decision.
const MaxSuggestions = 3

// SuggestionProvider is the contract for an external generative collaborator
// that proposes additional remediations. The core only defines the contract;
// the rule-based synthesizer below guarantees at least one suggestion exists
// even when no provider is wired.
type SuggestionProvider interface {
	Suggest(ctx context.Context, decision *models.Decision, rc models.RequestContext) ([]models.Suggestion, error)
}

// Synthesizer derives concrete remediation proposals from a violated rule.
type Synthesizer struct {
	adjustable map[string]struct{}
}

// NewSynthesizer builds a synthesizer. adjustableFields names the request
// attributes a requester can change on their own (day counts, amounts);
// threshold suggestions only apply to those, or to a field the rule's own
// hints declare adjustable.
func NewSynthesizer(adjustableFields []string) *Synthesizer {
	adjustable := make(map[string]struct{}, len(adjustableFields))
	for _, f := range adjustableFields {
		adjustable[f] = struct{}{}
	}
	return &Synthesizer{adjustable: adjustable}
}

// Synthesize computes remediation suggestions for a non-approve decision, in
// priority order: threshold reduction, blackout shift, then the escalation
// fallback that is always present. At most MaxSuggestions, highest impact
// first, fully deterministic.
func (s *Synthesizer) Synthesize(violated *models.Rule, rc models.RequestContext, schema models.Schema) []models.Suggestion {
	var suggestions []models.Suggestion

	if violated != nil {
		if sug, ok := s.thresholdSuggestion(violated, schema); ok {
			suggestions = append(suggestions, sug)
		}
		if sug, ok := blackoutShiftSuggestion(violated, rc); ok {
			suggestions = append(suggestions, sug)
		}
	}

	suggestions = append(suggestions, models.Suggestion{
		Text:  "Escalate to an approver for a manual exception",
		Score: 0.1,
	})

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions
}

// thresholdSuggestion proposes reducing an adjustable numeric attribute to
// the violated threshold, e.g. leave_days > 18 matched with 25 requested
// becomes "reduce leave_days to 18".
func (s *Synthesizer) thresholdSuggestion(rule *models.Rule, schema models.Schema) (models.Suggestion, bool) {
	leaf := s.findThresholdLeaf(&rule.Condition, rule.Hints, schema)
	if leaf == nil {
		return models.Suggestion{}, false
	}
	operand, err := leaf.Operand(models.KindNumber)
	if err != nil {
		return models.Suggestion{}, false
	}

	target := operand.Number
	if leaf.Operator == models.OpGreaterOrEqual {
		target--
	}
	targetValue := models.NumberValue(target)
	return models.Suggestion{
		Text:        fmt.Sprintf("Reduce %s to %s to comply", leaf.Field, targetValue.String()),
		Alternative: map[string]models.Value{leaf.Field: targetValue},
		Score:       0.9,
	}, true
}

func (s *Synthesizer) findThresholdLeaf(node *models.ConditionNode, hints *models.RemediationHints, schema models.Schema) *models.ConditionNode {
	if node.IsLeaf() {
		if node.Operator != models.OpGreaterThan && node.Operator != models.OpGreaterOrEqual {
			return nil
		}
		if spec, ok := schema[node.Field]; !ok || spec.Kind != models.KindNumber {
			return nil
		}
		if !s.isAdjustable(node.Field, hints) {
			return nil
		}
		return node
	}
	// NOT inverts the threshold's direction; skip rather than suggest the
	// opposite of what would help.
	if node.Logical == models.LogicalNot {
		return nil
	}
	for i := range node.Children {
		if leaf := s.findThresholdLeaf(&node.Children[i], hints, schema); leaf != nil {
			return leaf
		}
	}
	return nil
}

func (s *Synthesizer) isAdjustable(field string, hints *models.RemediationHints) bool {
	if hints != nil && hints.AdjustableField == field {
		return true
	}
	_, ok := s.adjustable[field]
	return ok
}

// blackoutShiftSuggestion proposes moving a requested date range to start the
// day after the rule's blackout window ends, preserving the original span.
func blackoutShiftSuggestion(rule *models.Rule, rc models.RequestContext) (models.Suggestion, bool) {
	hints := rule.Hints
	if hints == nil || hints.BlackoutEnd == "" {
		return models.Suggestion{}, false
	}
	blackoutEnd, err := models.ParseDate(hints.BlackoutEnd)
	if err != nil {
		return models.Suggestion{}, false
	}

	startField := hints.StartField
	if startField == "" {
		startField = "start_date"
	}
	endField := hints.EndField
	if endField == "" {
		endField = "end_date"
	}

	start, ok := rc[startField]
	if !ok || start.Kind != models.KindDate {
		return models.Suggestion{}, false
	}
	end, ok := rc[endField]
	if !ok || end.Kind != models.KindDate {
		return models.Suggestion{}, false
	}

	duration := end.Date.Sub(start.Date)
	if duration < 0 {
		return models.Suggestion{}, false
	}

	newStart := models.DateValue(blackoutEnd.Date.AddDate(0, 0, 1))
	newEnd := models.DateValue(newStart.Date.Add(duration))
	return models.Suggestion{
		Text: fmt.Sprintf("Shift the requested range to %s – %s, after the restricted period ends",
			newStart.String(), newEnd.String()),
		Alternative: map[string]models.Value{
			startField: newStart,
			endField:   newEnd,
		},
		Score: 0.7,
	}, true
}

// mergeProviderSuggestions appends external suggestions after the rule-based
// ones without disturbing their order, still capped at MaxSuggestions.
func mergeProviderSuggestions(base, extra []models.Suggestion) []models.Suggestion {
	for _, s := range extra {
		if len(base) >= MaxSuggestions {
			break
		}
		base = append(base, s)
	}
	return base
}
