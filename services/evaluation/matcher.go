package evaluation

import (
	"github.com/hrops/policy-engine/models"
)

// RuleMatch is the result of evaluating a rule's full condition tree.
type RuleMatch struct {
	Result MatchResult
	// FiredLeaves lists, in declared order, the leaves that actually
	// evaluated MATCH. OR groups short-circuit, so unattempted siblings
	// never appear here.
	FiredLeaves []string
	// MissingFields lists context fields the tree needed but could not
	// resolve. Surfaced as warnings only when they leave the rule
	// indeterminate.
	MissingFields []string
}

// MatchRule evaluates the rule's condition tree against the request context.
// A root INDETERMINATE is reported as such, not folded into NO_MATCH here;
// the aggregator treats it as a non-match but flags insufficient data.
func MatchRule(rule *models.Rule, rc models.RequestContext, schema models.Schema) RuleMatch {
	m := &treeMatcher{rc: rc, schema: schema}
	result := m.eval(&rule.Condition)
	return RuleMatch{
		Result:        result,
		FiredLeaves:   m.fired,
		MissingFields: m.missing,
	}
}

type treeMatcher struct {
	rc      models.RequestContext
	schema  models.Schema
	fired   []string
	missing []string
}

func (m *treeMatcher) eval(node *models.ConditionNode) MatchResult {
	if node.IsLeaf() {
		return m.evalLeaf(node)
	}

	switch node.Logical {
	case models.LogicalNot:
		// NOT of unknown is still unknown.
		switch m.eval(&node.Children[0]) {
		case Match:
			return NoMatch
		case NoMatch:
			return Match
		default:
			return Indeterminate
		}

	case models.LogicalAnd:
		// A definite NO_MATCH dominates an unknown sibling; any unknown
		// without a NO_MATCH leaves the conjunction unknown.
		result := Match
		for i := range node.Children {
			switch m.eval(&node.Children[i]) {
			case NoMatch:
				result = NoMatch
			case Indeterminate:
				if result != NoMatch {
					result = Indeterminate
				}
			}
		}
		return result

	case models.LogicalOr:
		// Short-circuits on the first MATCH in declared order; later
		// siblings are never attempted.
		sawIndeterminate := false
		for i := range node.Children {
			switch m.eval(&node.Children[i]) {
			case Match:
				return Match
			case Indeterminate:
				sawIndeterminate = true
			}
		}
		if sawIndeterminate {
			return Indeterminate
		}
		return NoMatch
	}
	return Indeterminate
}

func (m *treeMatcher) evalLeaf(leaf *models.ConditionNode) MatchResult {
	if _, ok := m.rc[leaf.Field]; !ok {
		m.missing = append(m.missing, leaf.Field)
	}
	result := EvaluateLeaf(leaf, m.rc, m.schema)
	if result == Match {
		m.fired = append(m.fired, leaf.LeafID())
	}
	return result
}
