package postgres

import (
	"context"
	"fmt"

	"github.com/hrops/policy-engine/models"
	"github.com/hrops/policy-engine/repositories"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// SchemaRepository implements the repositories.SchemaRepository interface
type SchemaRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSchemaRepository creates a new schema repository
func NewSchemaRepository(db *DB, logger *zap.Logger) repositories.SchemaRepository {
	return &SchemaRepository{
		db:     db,
		logger: logger,
	}
}

// GetSchema returns the stored field schema.
func (r *SchemaRepository) GetSchema(ctx context.Context) (models.Schema, error) {
	query := `SELECT field, kind, levels FROM schema_fields`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema fields: %w", err)
	}
	defer rows.Close()

	schema := models.Schema{}
	for rows.Next() {
		var (
			field  string
			kind   string
			levels []string
		)
		if err := rows.Scan(&field, &kind, pq.Array(&levels)); err != nil {
			return nil, fmt.Errorf("failed to scan schema field: %w", err)
		}
		schema[field] = models.FieldSpec{Kind: models.Kind(kind), Levels: levels}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema rows: %w", err)
	}
	return schema, nil
}

// SaveSchema replaces the field schema atomically.
func (r *SchemaRepository) SaveSchema(ctx context.Context, schema models.Schema) error {
	return r.db.InTransaction(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.db)

		if _, err := executor.ExecContext(ctx, `DELETE FROM schema_fields`); err != nil {
			return fmt.Errorf("failed to clear schema fields: %w", err)
		}

		query := `INSERT INTO schema_fields (field, kind, levels) VALUES ($1, $2, $3)`
		for field, spec := range schema {
			if _, err := executor.ExecContext(ctx, query, field, string(spec.Kind), pq.Array(spec.Levels)); err != nil {
				return fmt.Errorf("failed to store schema field %s: %w", field, err)
			}
		}

		r.logger.Debug("field schema stored", zap.Int("fields", len(schema)))
		return nil
	})
}
