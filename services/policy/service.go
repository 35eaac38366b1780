package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/hrops/policy-engine/models"
	"github.com/hrops/policy-engine/repositories"
	"github.com/hrops/policy-engine/services"
	"go.uber.org/zap"
)

const snapshotKey = "active"

// Service manages the policy corpus: versioned ingestion, lifecycle
// transitions, and the immutable rule-set snapshots evaluations run against.
type Service struct {
	policies repositories.PolicyRepository
	schemas  repositories.SchemaRepository
	cache    *SnapshotCache
	logger   *zap.Logger
}

// NewService creates a policy service. cache may be nil to disable snapshot
// caching entirely.
func NewService(policies repositories.PolicyRepository, schemas repositories.SchemaRepository, cache *SnapshotCache, logger *zap.Logger) *Service {
	return &Service{
		policies: policies,
		schemas:  schemas,
		cache:    cache,
		logger:   logger,
	}
}

// Snapshot returns the rule set built from the ACTIVE version of every policy
// plus the current field schema. The returned value is shared and must not be
// mutated; mutating operations invalidate the cache so the next call rebuilds.
func (s *Service) Snapshot(ctx context.Context) (*models.RuleSet, error) {
	if s.cache != nil {
		if cached := s.cache.Get(snapshotKey); cached != nil {
			return cached, nil
		}
	}

	policies, err := s.policies.ListActive(ctx)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to list active policies", err)
	}
	schema, err := s.schemas.GetSchema(ctx)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to load field schema", err)
	}

	snapshot := &models.RuleSet{Policies: policies, Schema: schema}
	if s.cache != nil {
		s.cache.Set(snapshotKey, snapshot)
	}

	s.logger.Debug("rule set snapshot rebuilt",
		zap.Int("policies", len(snapshot.Policies)),
		zap.Int("rules", snapshot.RuleCount()))
	return snapshot, nil
}

// CreatePolicy ingests a new policy version as a DRAFT. Versions are strictly
// monotonic per policy ID; re-submitting an existing or older version is a
// conflict, never an overwrite.
func (s *Service) CreatePolicy(ctx context.Context, policy *models.Policy) (*models.Policy, error) {
	if err := s.validateDefinition(ctx, policy); err != nil {
		return nil, err
	}

	latest, err := s.policies.LatestVersion(ctx, policy.ID)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to check policy versions", err)
	}
	if policy.Version == latest {
		return nil, services.ErrDuplicateVersion.WithDetail("policy_id", policy.ID).WithDetail("version", policy.Version)
	}
	if policy.Version < latest {
		return nil, services.ErrStaleVersion.WithDetail("policy_id", policy.ID).
			WithDetail("version", policy.Version).
			WithDetail("latest", latest)
	}

	now := time.Now().UTC()
	policy.Status = models.PolicyStatusDraft
	policy.CreatedAt = now
	policy.UpdatedAt = now
	for i := range policy.Rules {
		policy.Rules[i].PolicyID = policy.ID
	}

	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to store policy", err)
	}

	s.logger.Info("policy version created",
		zap.String("policy_id", policy.ID),
		zap.Int("version", policy.Version),
		zap.Int("rules", len(policy.Rules)))
	return policy, nil
}

// ActivatePolicy promotes a DRAFT version to ACTIVE, retiring whichever
// version of the same policy was active before. At most one version of a
// policy is ACTIVE at any time.
func (s *Service) ActivatePolicy(ctx context.Context, id string, version int) (*models.Policy, error) {
	policy, err := s.getPolicy(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if policy.Status != models.PolicyStatusDraft {
		return nil, services.ErrBadTransition.WithDetail("policy_id", id).
			WithDetail("version", version).
			WithDetail("status", string(policy.Status))
	}

	current, err := s.policies.ActiveVersion(ctx, id)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to check active version", err)
	}

	// Retiring the old version and activating the new one is one atomic
	// step; a failure between them must not leave the policy without an
	// ACTIVE version.
	err = s.policies.InTransaction(ctx, func(ctx context.Context) error {
		if current != 0 {
			if err := s.policies.UpdateStatus(ctx, id, current, models.PolicyStatusRetired); err != nil {
				return fmt.Errorf("failed to retire active version: %w", err)
			}
		}
		return s.policies.UpdateStatus(ctx, id, version, models.PolicyStatusActive)
	})
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to activate policy", err)
	}
	policy.Status = models.PolicyStatusActive
	s.invalidate()

	s.logger.Info("policy activated",
		zap.String("policy_id", id),
		zap.Int("version", version),
		zap.Int("retired_version", current))
	return policy, nil
}

// RetirePolicy moves an ACTIVE version to RETIRED without a replacement.
func (s *Service) RetirePolicy(ctx context.Context, id string, version int) (*models.Policy, error) {
	policy, err := s.getPolicy(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if policy.Status != models.PolicyStatusActive {
		return nil, services.ErrBadTransition.WithDetail("policy_id", id).
			WithDetail("version", version).
			WithDetail("status", string(policy.Status))
	}

	if err := s.policies.UpdateStatus(ctx, id, version, models.PolicyStatusRetired); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to retire policy", err)
	}
	policy.Status = models.PolicyStatusRetired
	s.invalidate()

	s.logger.Info("policy retired", zap.String("policy_id", id), zap.Int("version", version))
	return policy, nil
}

// GetPolicy fetches one policy version. Version 0 means the latest.
func (s *Service) GetPolicy(ctx context.Context, id string, version int) (*models.Policy, error) {
	if version == 0 {
		latest, err := s.policies.LatestVersion(ctx, id)
		if err != nil {
			return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to resolve latest version", err)
		}
		if latest == 0 {
			return nil, services.ErrPolicyNotFound.WithDetail("policy_id", id)
		}
		version = latest
	}
	return s.getPolicy(ctx, id, version)
}

// ListPolicies returns every stored policy version.
func (s *Service) ListPolicies(ctx context.Context) ([]*models.Policy, error) {
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to list policies", err)
	}
	return policies, nil
}

// DeletePolicy removes every version of a policy together with its rules.
func (s *Service) DeletePolicy(ctx context.Context, id string) error {
	latest, err := s.policies.LatestVersion(ctx, id)
	if err != nil {
		return services.NewDomainError(services.ErrorTypeInternal, "failed to check policy versions", err)
	}
	if latest == 0 {
		return services.ErrPolicyNotFound.WithDetail("policy_id", id)
	}
	if err := s.policies.Delete(ctx, id); err != nil {
		return services.NewDomainError(services.ErrorTypeInternal, "failed to delete policy", err)
	}
	s.invalidate()

	s.logger.Info("policy deleted", zap.String("policy_id", id))
	return nil
}

// GetSchema returns the current field schema.
func (s *Service) GetSchema(ctx context.Context) (models.Schema, error) {
	schema, err := s.schemas.GetSchema(ctx)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to load field schema", err)
	}
	return schema, nil
}

// SaveSchema replaces the field schema and invalidates cached snapshots.
func (s *Service) SaveSchema(ctx context.Context, schema models.Schema) error {
	if err := schema.Validate(); err != nil {
		return services.ErrInvalidSchema.WithDetail("reason", err.Error())
	}
	if err := s.schemas.SaveSchema(ctx, schema); err != nil {
		return services.NewDomainError(services.ErrorTypeInternal, "failed to store field schema", err)
	}
	s.invalidate()

	s.logger.Info("field schema updated", zap.Int("fields", len(schema)))
	return nil
}

// CacheStats exposes snapshot cache counters for the readiness endpoint.
func (s *Service) CacheStats() CacheStats {
	if s.cache == nil {
		return CacheStats{}
	}
	return s.cache.Stats()
}

// validateDefinition checks a submitted policy's structural invariants
// against the current schema. Rule conditions that fail validation reject the
// whole submission here; at evaluation time the same check only excludes the
// rule with a warning, but an author submitting a policy should hear about it
// immediately.
func (s *Service) validateDefinition(ctx context.Context, policy *models.Policy) error {
	if policy == nil || policy.ID == "" {
		return services.ErrInvalidPolicy.WithDetail("reason", "policy ID is required")
	}
	if policy.Name == "" {
		return services.ErrInvalidPolicy.WithDetail("reason", "policy name is required")
	}
	if policy.Version <= 0 {
		return services.ErrInvalidPolicy.WithDetail("reason", "version must be a positive integer")
	}

	schema, err := s.schemas.GetSchema(ctx)
	if err != nil {
		return services.NewDomainError(services.ErrorTypeInternal, "failed to load field schema", err)
	}
	for i := range policy.Rules {
		if err := policy.Rules[i].Validate(schema); err != nil {
			return services.ErrInvalidPolicy.WithDetail("reason", fmt.Sprintf("rule %d: %v", i, err))
		}
	}
	return nil
}

func (s *Service) getPolicy(ctx context.Context, id string, version int) (*models.Policy, error) {
	policy, err := s.policies.Get(ctx, id, version)
	if err != nil {
		if services.IsNotFoundError(err) {
			return nil, err
		}
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to fetch policy", err)
	}
	return policy, nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Invalidate(snapshotKey)
	}
}
