package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hrops/policy-engine/models"
	"github.com/hrops/policy-engine/repositories"
	"github.com/hrops/policy-engine/services"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PolicyRepository implements the repositories.PolicyRepository interface
type PolicyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *DB, logger *zap.Logger) repositories.PolicyRepository {
	return &PolicyRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new policy version together with its rules, atomically.
func (r *PolicyRepository) Create(ctx context.Context, policy *models.Policy) error {
	return r.db.InTransaction(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.db)

		query := `
			INSERT INTO policies (policy_id, version, name, status, tags, source_file, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := executor.ExecContext(ctx, query,
			policy.ID,
			policy.Version,
			policy.Name,
			policy.Status,
			pq.Array(policy.Tags),
			nullString(policy.SourceFile),
			policy.CreatedAt,
			policy.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return services.ErrDuplicateVersion.
					WithDetail("policy_id", policy.ID).
					WithDetail("version", policy.Version)
			}
			return fmt.Errorf("failed to create policy: %w", err)
		}

		for i := range policy.Rules {
			if err := r.insertRule(ctx, executor, policy, i); err != nil {
				return err
			}
		}

		r.logger.Debug("policy created",
			zap.String("policy_id", policy.ID),
			zap.Int("version", policy.Version),
			zap.Int("rules", len(policy.Rules)))
		return nil
	})
}

func (r *PolicyRepository) insertRule(ctx context.Context, executor Executor, policy *models.Policy, i int) error {
	rule := &policy.Rules[i]

	condition, err := json.Marshal(rule.Condition)
	if err != nil {
		return fmt.Errorf("failed to encode condition for rule %s: %w", rule.ID, err)
	}
	var hints []byte
	if rule.Hints != nil {
		if hints, err = json.Marshal(rule.Hints); err != nil {
			return fmt.Errorf("failed to encode hints for rule %s: %w", rule.ID, err)
		}
	}

	query := `
		INSERT INTO rules (rule_id, policy_id, version, position, condition, action, class, severity,
		                   message, enabled, allocation, period, required_doc, hints)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = executor.ExecContext(ctx, query,
		rule.ID,
		policy.ID,
		policy.Version,
		i,
		condition,
		rule.Action,
		nullString(string(rule.Class)),
		rule.Severity,
		rule.Message,
		rule.Enabled,
		rule.Allocation,
		nullString(rule.Period),
		nullString(rule.RequiredDoc),
		nullBytes(hints),
	)
	if err != nil {
		return fmt.Errorf("failed to create rule %s: %w", rule.ID, err)
	}
	return nil
}

// InTransaction runs fn within a database transaction.
func (r *PolicyRepository) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.InTransaction(ctx, fn)
}

// Get fetches one policy version with its rules.
func (r *PolicyRepository) Get(ctx context.Context, id string, version int) (*models.Policy, error) {
	query := `
		SELECT policy_id, version, name, status, tags, source_file, created_at, updated_at
		FROM policies
		WHERE policy_id = $1 AND version = $2
	`

	executor := GetExecutor(ctx, r.db)
	policy, err := scanPolicy(executor.QueryRowContext(ctx, query, id, version))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrPolicyNotFound.
				WithDetail("policy_id", id).
				WithDetail("version", version)
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	if err := r.loadRules(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// List returns every stored policy version, all statuses included.
func (r *PolicyRepository) List(ctx context.Context) ([]*models.Policy, error) {
	query := `
		SELECT policy_id, version, name, status, tags, source_file, created_at, updated_at
		FROM policies
		ORDER BY policy_id, version
	`
	return r.queryPolicies(ctx, query)
}

// ListActive returns the ACTIVE version of every policy.
func (r *PolicyRepository) ListActive(ctx context.Context) ([]*models.Policy, error) {
	query := `
		SELECT policy_id, version, name, status, tags, source_file, created_at, updated_at
		FROM policies
		WHERE status = 'ACTIVE'
		ORDER BY policy_id
	`
	return r.queryPolicies(ctx, query)
}

// LatestVersion returns the highest stored version for a policy, or 0.
func (r *PolicyRepository) LatestVersion(ctx context.Context, id string) (int, error) {
	query := `SELECT COALESCE(MAX(version), 0) FROM policies WHERE policy_id = $1`

	executor := GetExecutor(ctx, r.db)
	var version int
	if err := executor.QueryRowContext(ctx, query, id).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get latest version: %w", err)
	}
	return version, nil
}

// ActiveVersion returns the ACTIVE version for a policy, or 0.
func (r *PolicyRepository) ActiveVersion(ctx context.Context, id string) (int, error) {
	query := `SELECT COALESCE(MAX(version), 0) FROM policies WHERE policy_id = $1 AND status = 'ACTIVE'`

	executor := GetExecutor(ctx, r.db)
	var version int
	if err := executor.QueryRowContext(ctx, query, id).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get active version: %w", err)
	}
	return version, nil
}

// UpdateStatus moves one policy version to a new lifecycle status.
func (r *PolicyRepository) UpdateStatus(ctx context.Context, id string, version int, status models.PolicyStatus) error {
	query := `
		UPDATE policies
		SET status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE policy_id = $1 AND version = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, version, status)
	if err != nil {
		return fmt.Errorf("failed to update policy status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return services.ErrPolicyNotFound.
			WithDetail("policy_id", id).
			WithDetail("version", version)
	}

	r.logger.Debug("policy status updated",
		zap.String("policy_id", id),
		zap.Int("version", version),
		zap.String("status", string(status)))
	return nil
}

// Delete removes every version of a policy; rules cascade.
func (r *PolicyRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM policies WHERE policy_id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return services.ErrPolicyNotFound.WithDetail("policy_id", id)
	}

	r.logger.Debug("policy deleted", zap.String("policy_id", id))
	return nil
}

// queryPolicies is a helper method to query multiple policies with rules
func (r *PolicyRepository) queryPolicies(ctx context.Context, query string, args ...interface{}) ([]*models.Policy, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.Policy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating policy rows: %w", err)
	}

	for _, policy := range policies {
		if err := r.loadRules(ctx, policy); err != nil {
			return nil, err
		}
	}
	return policies, nil
}

// loadRules fetches a policy version's rules in declaration order.
func (r *PolicyRepository) loadRules(ctx context.Context, policy *models.Policy) error {
	query := `
		SELECT rule_id, condition, action, class, severity, message, enabled,
		       allocation, period, required_doc, hints
		FROM rules
		WHERE policy_id = $1 AND version = $2
		ORDER BY position
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, policy.ID, policy.Version)
	if err != nil {
		return fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rule        models.Rule
			condition   []byte
			class       sql.NullString
			period      sql.NullString
			requiredDoc sql.NullString
			hints       []byte
		)
		err := rows.Scan(
			&rule.ID,
			&condition,
			&rule.Action,
			&class,
			&rule.Severity,
			&rule.Message,
			&rule.Enabled,
			&rule.Allocation,
			&period,
			&requiredDoc,
			&hints,
		)
		if err != nil {
			return fmt.Errorf("failed to scan rule: %w", err)
		}

		if err := json.Unmarshal(condition, &rule.Condition); err != nil {
			return fmt.Errorf("failed to decode condition for rule %s: %w", rule.ID, err)
		}
		if len(hints) > 0 {
			rule.Hints = &models.RemediationHints{}
			if err := json.Unmarshal(hints, rule.Hints); err != nil {
				return fmt.Errorf("failed to decode hints for rule %s: %w", rule.ID, err)
			}
		}
		rule.PolicyID = policy.ID
		rule.Class = models.ActionClass(class.String)
		rule.Period = period.String
		rule.RequiredDoc = requiredDoc.String
		policy.Rules = append(policy.Rules, rule)
	}
	return rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPolicy(row rowScanner) (*models.Policy, error) {
	policy := &models.Policy{}
	var sourceFile sql.NullString
	err := row.Scan(
		&policy.ID,
		&policy.Version,
		&policy.Name,
		&policy.Status,
		pq.Array(&policy.Tags),
		&sourceFile,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	policy.SourceFile = sourceFile.String
	return policy, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
