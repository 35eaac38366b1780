package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hrops/policy-engine/config"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Policy versions. A version is immutable once created; lifecycle
		-- moves through the status column only.
		CREATE TABLE IF NOT EXISTS policies (
			policy_id   VARCHAR(100) NOT NULL,
			version     INTEGER NOT NULL,
			name        VARCHAR(255) NOT NULL,
			status      VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
			tags        TEXT[] NOT NULL DEFAULT '{}',
			source_file VARCHAR(500),
			created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (policy_id, version)
		);

		-- Rules owned by a policy version. Condition trees and remediation
		-- hints are stored as JSONB documents.
		CREATE TABLE IF NOT EXISTS rules (
			rule_id      VARCHAR(100) NOT NULL,
			policy_id    VARCHAR(100) NOT NULL,
			version      INTEGER NOT NULL,
			position     INTEGER NOT NULL,
			condition    JSONB NOT NULL,
			action       VARCHAR(100) NOT NULL,
			class        VARCHAR(50),
			severity     VARCHAR(20) NOT NULL DEFAULT 'MEDIUM',
			message      TEXT NOT NULL DEFAULT '',
			enabled      BOOLEAN NOT NULL DEFAULT true,
			allocation   INTEGER,
			period       VARCHAR(50),
			required_doc VARCHAR(255),
			hints        JSONB,
			PRIMARY KEY (policy_id, version, rule_id),
			FOREIGN KEY (policy_id, version) REFERENCES policies(policy_id, version) ON DELETE CASCADE
		);

		-- Field schema the rule corpus is typed against. Grade fields carry
		-- their ordered hierarchy, least senior first.
		CREATE TABLE IF NOT EXISTS schema_fields (
			field  VARCHAR(100) PRIMARY KEY,
			kind   VARCHAR(20) NOT NULL,
			levels TEXT[]
		);

		CREATE INDEX IF NOT EXISTS idx_policies_status ON policies(status);
		CREATE INDEX IF NOT EXISTS idx_rules_policy ON rules(policy_id, version);

		-- One ACTIVE version per policy, enforced at the storage layer too.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_policies_one_active
			ON policies(policy_id) WHERE status = 'ACTIVE';
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}
