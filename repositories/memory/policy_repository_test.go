package memory

import (
	"context"
	"testing"

	"github.com/hrops/policy-engine/models"
	"github.com/hrops/policy-engine/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedPolicy(id string, version int, status models.PolicyStatus) *models.Policy {
	return &models.Policy{ID: id, Name: id, Version: version, Status: status}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, storedPolicy("POL_A", 1, models.PolicyStatusDraft)))

	t.Run("duplicate version conflicts", func(t *testing.T) {
		err := repo.Create(ctx, storedPolicy("POL_A", 1, models.PolicyStatusDraft))
		assert.True(t, services.IsConflictError(err))
	})

	got, err := repo.Get(ctx, "POL_A", 1)
	require.NoError(t, err)
	assert.Equal(t, "POL_A", got.ID)

	_, err = repo.Get(ctx, "POL_A", 9)
	assert.True(t, services.IsNotFoundError(err))
}

func TestRepositoryVersionQueries(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, storedPolicy("POL_A", 1, models.PolicyStatusRetired)))
	require.NoError(t, repo.Create(ctx, storedPolicy("POL_A", 2, models.PolicyStatusActive)))
	require.NoError(t, repo.Create(ctx, storedPolicy("POL_A", 3, models.PolicyStatusDraft)))

	latest, err := repo.LatestVersion(ctx, "POL_A")
	require.NoError(t, err)
	assert.Equal(t, 3, latest)

	active, err := repo.ActiveVersion(ctx, "POL_A")
	require.NoError(t, err)
	assert.Equal(t, 2, active)

	none, err := repo.LatestVersion(ctx, "POL_B")
	require.NoError(t, err)
	assert.Equal(t, 0, none)
}

func TestRepositoryListOrdering(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, storedPolicy("POL_B", 1, models.PolicyStatusActive)))
	require.NoError(t, repo.Create(ctx, storedPolicy("POL_A", 2, models.PolicyStatusActive)))
	require.NoError(t, repo.Create(ctx, storedPolicy("POL_A", 1, models.PolicyStatusRetired)))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "POL_A", all[0].ID)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "POL_B", all[2].ID)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
}

func TestRepositoryUpdateStatusAndDelete(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, storedPolicy("POL_A", 1, models.PolicyStatusDraft)))
	require.NoError(t, repo.UpdateStatus(ctx, "POL_A", 1, models.PolicyStatusActive))

	got, err := repo.Get(ctx, "POL_A", 1)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyStatusActive, got.Status)

	assert.True(t, services.IsNotFoundError(repo.UpdateStatus(ctx, "POL_A", 2, models.PolicyStatusActive)))

	require.NoError(t, repo.Delete(ctx, "POL_A"))
	assert.True(t, services.IsNotFoundError(repo.Delete(ctx, "POL_A")))
}

func TestNewFromRuleSet(t *testing.T) {
	rs := &models.RuleSet{
		Policies: []*models.Policy{storedPolicy("POL_A", 1, models.PolicyStatusActive)},
		Schema:   models.Schema{"leave_days": {Kind: models.KindNumber}},
	}
	repo := NewFromRuleSet(rs)

	active, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)

	schema, err := repo.GetSchema(context.Background())
	require.NoError(t, err)
	assert.Contains(t, schema, "leave_days")
}
