package app

import (
	"context"
	"fmt"

	"github.com/hrops/policy-engine/config"
	"github.com/hrops/policy-engine/repositories"
	"github.com/hrops/policy-engine/repositories/memory"
	"github.com/hrops/policy-engine/repositories/postgres"
	"github.com/hrops/policy-engine/services/evaluation"
	"github.com/hrops/policy-engine/services/policy"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil when serving a YAML rule-set file
	Logger *zap.Logger

	// Repositories
	Policies repositories.PolicyRepository
	Schemas  repositories.SchemaRepository

	// Services
	PolicyService *policy.Service
	Evaluator     *evaluation.Service

	cacheStop chan struct{}
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.UseFileStore() {
		if err := deps.initFileStore(cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
	} else {
		if err := deps.initDatabase(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initFileStore loads the YAML rule set into an in-memory repository.
func (d *Dependencies) initFileStore(cfg *config.Config) error {
	ruleSet, err := policy.LoadRuleSet(cfg.Policy.RuleSetFile)
	if err != nil {
		return err
	}

	repo := memory.NewFromRuleSet(ruleSet)
	d.Policies = repo
	d.Schemas = repo

	d.Logger.Info("rule set loaded from file",
		zap.String("file", cfg.Policy.RuleSetFile),
		zap.Int("policies", len(ruleSet.Policies)),
		zap.Int("rules", ruleSet.RuleCount()))
	return nil
}

// initDatabase initializes the PostgreSQL connection and repositories.
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return err
	}
	d.DB = db

	if err := db.InitSchema(ctx); err != nil {
		return err
	}

	d.Policies = postgres.NewPolicyRepository(db, d.Logger)
	d.Schemas = postgres.NewSchemaRepository(db, d.Logger)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices wires the policy service, snapshot cache and evaluator.
func (d *Dependencies) initServices(cfg *config.Config) {
	cache := policy.NewSnapshotCache(cfg.Policy.CacheSize, cfg.Policy.CacheTTL)
	d.cacheStop = make(chan struct{})
	go cache.StartCleanupWorker(cfg.Policy.CacheCleanup, d.cacheStop)

	d.PolicyService = policy.NewService(d.Policies, d.Schemas, cache, d.Logger)

	synth := evaluation.NewSynthesizer(cfg.Evaluation.AdjustableFields)
	d.Evaluator = evaluation.NewService(d.PolicyService, synth, d.Logger,
		evaluation.WithMode(evaluation.Mode(cfg.Evaluation.Mode)))
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.cacheStop != nil {
		close(d.cacheStop)
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
