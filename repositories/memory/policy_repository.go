package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hrops/policy-engine/models"
	"github.com/hrops/policy-engine/services"
)

type versionKey struct {
	id      string
	version int
}

// Repository is an in-memory implementation of the policy and schema
// repositories. It backs file-loaded deployments, where the rule set comes
// from YAML at startup, and the test suite.
type Repository struct {
	mu       sync.RWMutex
	policies map[versionKey]*models.Policy
	schema   models.Schema
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		policies: make(map[versionKey]*models.Policy),
		schema:   models.Schema{},
	}
}

// NewFromRuleSet seeds a repository from a loaded snapshot.
func NewFromRuleSet(rs *models.RuleSet) *Repository {
	repo := NewRepository()
	for _, p := range rs.Policies {
		repo.policies[versionKey{p.ID, p.Version}] = p
	}
	if rs.Schema != nil {
		repo.schema = rs.Schema
	}
	return repo
}

// Create stores a new policy version.
func (r *Repository) Create(_ context.Context, policy *models.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := versionKey{policy.ID, policy.Version}
	if _, exists := r.policies[key]; exists {
		return services.ErrDuplicateVersion.WithDetail("policy_id", policy.ID).WithDetail("version", policy.Version)
	}
	r.policies[key] = policy
	return nil
}

// Get fetches one policy version.
func (r *Repository) Get(_ context.Context, id string, version int) (*models.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policy, ok := r.policies[versionKey{id, version}]
	if !ok {
		return nil, services.ErrPolicyNotFound.WithDetail("policy_id", id).WithDetail("version", version)
	}
	return policy, nil
}

// List returns every stored policy version, ordered by ID then version.
func (r *Repository) List(_ context.Context) ([]*models.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policies := make([]*models.Policy, 0, len(r.policies))
	for _, p := range r.policies {
		policies = append(policies, p)
	}
	sortPolicies(policies)
	return policies, nil
}

// ListActive returns the ACTIVE version of every policy.
func (r *Repository) ListActive(_ context.Context) ([]*models.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var policies []*models.Policy
	for _, p := range r.policies {
		if p.Status == models.PolicyStatusActive {
			policies = append(policies, p)
		}
	}
	sortPolicies(policies)
	return policies, nil
}

// LatestVersion returns the highest stored version for a policy, or 0.
func (r *Repository) LatestVersion(_ context.Context, id string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	latest := 0
	for key := range r.policies {
		if key.id == id && key.version > latest {
			latest = key.version
		}
	}
	return latest, nil
}

// ActiveVersion returns the ACTIVE version for a policy, or 0.
func (r *Repository) ActiveVersion(_ context.Context, id string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for key, p := range r.policies {
		if key.id == id && p.Status == models.PolicyStatusActive {
			return key.version, nil
		}
	}
	return 0, nil
}

// UpdateStatus moves one policy version to a new lifecycle status.
func (r *Repository) UpdateStatus(_ context.Context, id string, version int, status models.PolicyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	policy, ok := r.policies[versionKey{id, version}]
	if !ok {
		return services.ErrPolicyNotFound.WithDetail("policy_id", id).WithDetail("version", version)
	}
	policy.Status = status
	return nil
}

// InTransaction runs fn directly. Each in-memory operation is already
// atomic under the repository mutex; there is no multi-step rollback.
func (r *Repository) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Delete removes every version of a policy.
func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for key := range r.policies {
		if key.id == id {
			delete(r.policies, key)
			found = true
		}
	}
	if !found {
		return services.ErrPolicyNotFound.WithDetail("policy_id", id)
	}
	return nil
}

// GetSchema returns the stored field schema.
func (r *Repository) GetSchema(_ context.Context) (models.Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.schema, nil
}

// SaveSchema replaces the field schema.
func (r *Repository) SaveSchema(_ context.Context, schema models.Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schema = schema
	return nil
}

func sortPolicies(policies []*models.Policy) {
	sort.Slice(policies, func(i, j int) bool {
		if policies[i].ID != policies[j].ID {
			return policies[i].ID < policies[j].ID
		}
		return policies[i].Version < policies[j].Version
	})
}
