package repositories

import (
	"context"

	"github.com/hrops/policy-engine/models"
)

// PolicyRepository is the persistence contract for policy versions and their
// rules. A policy version is immutable once created; lifecycle moves through
// status updates only.
type PolicyRepository interface {
	// Create stores a new policy version together with its rules.
	Create(ctx context.Context, policy *models.Policy) error

	// Get fetches one policy version.
	Get(ctx context.Context, id string, version int) (*models.Policy, error)

	// List returns every stored policy version, all statuses included.
	List(ctx context.Context) ([]*models.Policy, error)

	// ListActive returns the ACTIVE version of every policy.
	ListActive(ctx context.Context) ([]*models.Policy, error)

	// LatestVersion returns the highest stored version for a policy ID,
	// or 0 when none exists.
	LatestVersion(ctx context.Context, id string) (int, error)

	// ActiveVersion returns the currently ACTIVE version for a policy ID,
	// or 0 when none is active.
	ActiveVersion(ctx context.Context, id string) (int, error)

	// UpdateStatus moves one policy version to a new lifecycle status.
	UpdateStatus(ctx context.Context, id string, version int, status models.PolicyStatus) error

	// Delete removes every version of a policy and all of its rules.
	Delete(ctx context.Context, id string) error

	// InTransaction runs fn atomically. Repository calls made with the
	// context passed to fn join the transaction; multi-step lifecycle
	// transitions commit or roll back as one.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SchemaRepository stores the field schema the rule corpus is typed against.
type SchemaRepository interface {
	// GetSchema returns the current field schema. An empty schema is valid;
	// unschema'd fields fall back to inference.
	GetSchema(ctx context.Context) (models.Schema, error)

	// SaveSchema replaces the field schema.
	SaveSchema(ctx context.Context, schema models.Schema) error
}
