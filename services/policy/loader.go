package policy

import (
	"fmt"
	"os"
	"time"

	"github.com/hrops/policy-engine/models"
	"github.com/hrops/policy-engine/services"
	"gopkg.in/yaml.v3"
)

// ruleSetFile is the on-disk YAML layout for an operator-authored rule set:
// the field schema followed by the policies it types.
type ruleSetFile struct {
	Schema   models.Schema `yaml:"schema"`
	Policies []filePolicy  `yaml:"policies"`
}

type filePolicy struct {
	ID      string     `yaml:"policy_id"`
	Name    string     `yaml:"policy_name"`
	Version int        `yaml:"version"`
	Status  string     `yaml:"status"`
	Tags    []string   `yaml:"tags"`
	Rules   []fileRule `yaml:"rules"`
}

// fileRule mirrors models.Rule with a tri-state enabled flag so rules are
// enabled unless the file says otherwise.
type fileRule struct {
	ID          string                   `yaml:"rule_id"`
	Condition   models.ConditionNode     `yaml:"condition"`
	Action      string                   `yaml:"action"`
	Class       models.ActionClass       `yaml:"class"`
	Severity    models.Severity          `yaml:"severity"`
	Message     string                   `yaml:"message"`
	Enabled     *bool                    `yaml:"enabled"`
	Allocation  *int                     `yaml:"allocation"`
	Period      string                   `yaml:"period"`
	RequiredDoc string                   `yaml:"required_doc"`
	Hints       *models.RemediationHints `yaml:"hints"`
}

// LoadRuleSet reads a YAML rule-set file into an immutable snapshot. Schema
// and policy structure must be sound; individual rule conditions are left to
// evaluation-time validation so one bad rule does not block the whole file.
func LoadRuleSet(path string) (*models.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal,
			fmt.Sprintf("failed to read rule set file %s", path), err)
	}

	var file ruleSetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, services.ErrInvalidPolicy.WithDetail("file", path).WithDetail("reason", err.Error())
	}
	if err := file.Schema.Validate(); err != nil {
		return nil, services.ErrInvalidSchema.WithDetail("file", path).WithDetail("reason", err.Error())
	}

	now := time.Now().UTC()
	seen := make(map[string]struct{}, len(file.Policies))
	policies := make([]*models.Policy, 0, len(file.Policies))
	for i, fp := range file.Policies {
		if fp.ID == "" {
			return nil, services.ErrInvalidPolicy.WithDetail("file", path).
				WithDetail("reason", fmt.Sprintf("policy %d has no policy_id", i))
		}
		if _, dup := seen[fp.ID]; dup {
			return nil, services.ErrInvalidPolicy.WithDetail("file", path).
				WithDetail("reason", fmt.Sprintf("duplicate policy_id %s", fp.ID))
		}
		seen[fp.ID] = struct{}{}

		policies = append(policies, &models.Policy{
			ID:         fp.ID,
			Name:       fp.Name,
			Version:    versionOrDefault(fp.Version),
			Status:     statusOrDefault(fp.Status),
			Tags:       fp.Tags,
			Rules:      fileRules(fp),
			SourceFile: path,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	return &models.RuleSet{Policies: policies, Schema: file.Schema}, nil
}

func fileRules(fp filePolicy) []models.Rule {
	rules := make([]models.Rule, 0, len(fp.Rules))
	for _, fr := range fp.Rules {
		enabled := true
		if fr.Enabled != nil {
			enabled = *fr.Enabled
		}
		rules = append(rules, models.Rule{
			ID:          fr.ID,
			PolicyID:    fp.ID,
			Condition:   fr.Condition,
			Action:      fr.Action,
			Class:       fr.Class,
			Severity:    fr.Severity,
			Message:     fr.Message,
			Enabled:     enabled,
			Allocation:  fr.Allocation,
			Period:      fr.Period,
			RequiredDoc: fr.RequiredDoc,
			Hints:       fr.Hints,
		})
	}
	return rules
}

// versionOrDefault treats a file without explicit versions as version 1.
func versionOrDefault(v int) int {
	if v <= 0 {
		return 1
	}
	return v
}

// statusOrDefault treats file-authored policies as ACTIVE unless told
// otherwise; a rule-set file exists to be evaluated against.
func statusOrDefault(s string) models.PolicyStatus {
	if s == "" {
		return models.PolicyStatusActive
	}
	return models.PolicyStatus(s)
}
