package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hrops/policy-engine/app"
	"github.com/hrops/policy-engine/config"
	"github.com/hrops/policy-engine/models"
	"github.com/hrops/policy-engine/repositories/memory"
	"github.com/hrops/policy-engine/services/evaluation"
	"github.com/hrops/policy-engine/services/policy"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestDeps wires real services over the in-memory repository so handler
// tests exercise the full request path.
func newTestDeps(t *testing.T) *app.Dependencies {
	t.Helper()

	repo := memory.NewRepository()
	require.NoError(t, repo.SaveSchema(context.Background(), models.Schema{
		"leave_days": {Kind: models.KindNumber},
		"leave_type": {Kind: models.KindString},
	}))

	logger := zap.NewNop()
	policyService := policy.NewService(repo, repo, policy.NewSnapshotCache(4, time.Minute), logger)
	evaluator := evaluation.NewService(policyService, evaluation.NewSynthesizer([]string{"leave_days"}), logger)

	return &app.Dependencies{
		Config: &config.Config{
			Environment: "test",
			Evaluation:  config.EvaluationConfig{Mode: "whitelist", AdjustableFields: []string{"leave_days"}},
		},
		Logger:        logger,
		Policies:      repo,
		Schemas:       repo,
		PolicyService: policyService,
		Evaluator:     evaluator,
	}
}

// seedActivePolicy installs an ACTIVE leave policy through the service so the
// snapshot and cache behave as they would in production.
func seedActivePolicy(t *testing.T, deps *app.Dependencies) {
	t.Helper()
	ctx := context.Background()

	_, err := deps.PolicyService.CreatePolicy(ctx, &models.Policy{
		ID:      "POL_LEAVE",
		Name:    "Leave Policy",
		Version: 1,
		Tags:    []string{"leave_request"},
		Rules: []models.Rule{
			{
				ID:        "R_ELIGIBLE",
				Action:    models.ActionEligible,
				Condition: models.ConditionNode{Field: "leave_days", Operator: models.OpLessOrEqual, Value: json.RawMessage(`30`)},
				Enabled:   true,
			},
			{
				ID:        "R_EXCESS",
				Action:    models.ActionReject,
				Severity:  models.SeverityHigh,
				Message:   "requested days exceed the annual limit",
				Condition: models.ConditionNode{Field: "leave_days", Operator: models.OpGreaterThan, Value: json.RawMessage(`18`)},
				Enabled:   true,
				Hints:     &models.RemediationHints{AdjustableField: "leave_days"},
			},
		},
	})
	require.NoError(t, err)

	_, err = deps.PolicyService.ActivatePolicy(ctx, "POL_LEAVE", 1)
	require.NoError(t, err)
}
