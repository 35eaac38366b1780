package evaluation

import (
	"sort"
	"strings"

	"github.com/hrops/policy-engine/models"
)

// RankedPolicy pairs a selected policy with its relevance score.
type RankedPolicy struct {
	Policy *models.Policy
	Score  float64
}

// SelectPolicies narrows the rule corpus to the policies relevant to the
// request: ACTIVE policies whose applicability tags intersect the request's
// declared entity set, ranked by the fraction of entities the tags cover.
// Ties break by policy ID ascending for determinism. An empty result is not
// an error; the aggregator escalates it.
func SelectPolicies(policies []*models.Policy, entities []string) []RankedPolicy {
	if len(entities) == 0 {
		return nil
	}

	var ranked []RankedPolicy
	for _, p := range policies {
		if p.Status != models.PolicyStatusActive {
			continue
		}
		matched := 0
		for _, entity := range entities {
			if hasTag(p.Tags, entity) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		ranked = append(ranked, RankedPolicy{
			Policy: p,
			Score:  float64(matched) / float64(len(entities)),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Policy.ID < ranked[j].Policy.ID
	})
	return ranked
}

func hasTag(tags []string, entity string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, entity) {
			return true
		}
	}
	return false
}
