package models

// RuleSet is an immutable snapshot of the active policy corpus plus the
// field schema it was extracted with. Evaluations read a snapshot for their
// whole duration; concurrent policy updates produce a new snapshot instead
// of mutating one in flight.
type RuleSet struct {
	Policies []*Policy
	Schema   Schema
}

// RuleCount returns the total number of rules across all policies.
func (rs *RuleSet) RuleCount() int {
	n := 0
	for _, p := range rs.Policies {
		n += len(p.Rules)
	}
	return n
}
