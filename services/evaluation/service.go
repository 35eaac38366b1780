package evaluation

import (
	"context"
	"encoding/json"

	"github.com/hrops/policy-engine/models"
	"github.com/hrops/policy-engine/services"
	"go.uber.org/zap"
)

// RuleSetProvider supplies the immutable rule-set snapshot an evaluation
// runs against. Fetching happens at the boundary; the evaluation itself
// never blocks on I/O.
type RuleSetProvider interface {
	Snapshot(ctx context.Context) (*models.RuleSet, error)
}

// EvaluationRequest is one request to evaluate.
type EvaluationRequest struct {
	RequestID   string
	RequestType string
	// Entities are the declared entity references matched against policy
	// applicability tags. RequestType is always included.
	Entities []string
	// Context is the raw field→value mapping; typed against the snapshot's
	// schema during evaluation.
	Context map[string]json.RawMessage
}

// Service runs the full evaluation pipeline: selector → aggregator →
// suggestion synthesis.
type Service struct {
	ruleSets RuleSetProvider
	synth    *Synthesizer
	provider SuggestionProvider
	mode     Mode
	logger   *zap.Logger
}

// Option configures the evaluation service.
type Option func(*Service)

// WithMode sets the default-outcome mode (whitelist unless told otherwise).
func WithMode(mode Mode) Option {
	return func(s *Service) { s.mode = mode }
}

// WithSuggestionProvider wires an external generative collaborator. Its
// proposals are appended after the rule-based ones, still capped.
func WithSuggestionProvider(p SuggestionProvider) Option {
	return func(s *Service) { s.provider = p }
}

// NewService creates an evaluation service.
func NewService(ruleSets RuleSetProvider, synth *Synthesizer, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		ruleSets: ruleSets,
		synth:    synth,
		mode:     ModeWhitelist,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate produces the aggregate decision for one request. The only hard
// failure is invalid input shape; everything inside evaluation degrades to
// warnings on the returned decision.
func (s *Service) Evaluate(ctx context.Context, req EvaluationRequest) (*models.Decision, error) {
	snapshot, err := s.ruleSets.Snapshot(ctx)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInternal, "failed to load rule set", err)
	}
	return s.evaluateAgainst(ctx, snapshot, req)
}

// evaluateAgainst runs the pipeline against a pinned snapshot.
func (s *Service) evaluateAgainst(ctx context.Context, snapshot *models.RuleSet, req EvaluationRequest) (*models.Decision, error) {
	if req.Context == nil {
		return nil, services.ErrInvalidContext
	}

	rc, contextWarnings := models.DecodeContext(req.Context, snapshot.Schema)

	entities := req.Entities
	if req.RequestType != "" && !containsString(entities, req.RequestType) {
		entities = append([]string{req.RequestType}, entities...)
	}

	ranked := SelectPolicies(snapshot.Policies, entities)
	decision := Aggregate(ranked, rc, snapshot.Schema, s.mode)
	decision.RequestID = req.RequestID
	decision.Warnings = append(contextWarnings, decision.Warnings...)

	if decision.Outcome != models.OutcomeApprove {
		decision.Suggestions = s.synth.Synthesize(s.primaryViolatedRule(decision, ranked), rc, snapshot.Schema)
		if s.provider != nil {
			extra, perr := s.provider.Suggest(ctx, decision, rc)
			if perr != nil {
				s.logger.Warn("suggestion provider failed",
					zap.String("request_id", req.RequestID),
					zap.Error(perr))
			} else {
				decision.Suggestions = mergeProviderSuggestions(decision.Suggestions, extra)
			}
		}
	}

	s.logger.Info("request evaluated",
		zap.String("request_id", req.RequestID),
		zap.String("request_type", req.RequestType),
		zap.String("decision", string(decision.Outcome)),
		zap.Int("policies", len(ranked)),
		zap.Int("contributing_rules", len(decision.ContributingRules)),
		zap.Int("warnings", len(decision.Warnings)))

	return decision, nil
}

// EvaluateBatch evaluates several requests against one snapshot, fetched
// once, so a cache rotation mid-batch cannot split the batch across rule-set
// versions. Per-request failures surface as per-request results, not a batch
// error.
func (s *Service) EvaluateBatch(ctx context.Context, reqs []EvaluationRequest) []BatchResult {
	results := make([]BatchResult, 0, len(reqs))

	snapshot, err := s.ruleSets.Snapshot(ctx)
	if err != nil {
		wrapped := services.NewDomainError(services.ErrorTypeInternal, "failed to load rule set", err)
		for _, req := range reqs {
			results = append(results, BatchResult{RequestID: req.RequestID, Err: wrapped})
		}
		return results
	}

	for _, req := range reqs {
		decision, err := s.evaluateAgainst(ctx, snapshot, req)
		results = append(results, BatchResult{
			RequestID: req.RequestID,
			Decision:  decision,
			Err:       err,
		})
	}
	return results
}

// BatchResult is one outcome of a batch evaluation.
type BatchResult struct {
	RequestID string
	Decision  *models.Decision
	Err       error
}

// primaryViolatedRule resolves the decision's primary rule back to its
// definition so the synthesizer can inspect its condition tree and hints.
func (s *Service) primaryViolatedRule(decision *models.Decision, ranked []RankedPolicy) *models.Rule {
	if decision.PrimaryRuleID == "" {
		return nil
	}
	for _, rp := range ranked {
		for i := range rp.Policy.Rules {
			if rp.Policy.Rules[i].ID == decision.PrimaryRuleID {
				return &rp.Policy.Rules[i]
			}
		}
	}
	return nil
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
