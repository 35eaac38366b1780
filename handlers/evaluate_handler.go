package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hrops/policy-engine/app"
	"github.com/hrops/policy-engine/middleware"
	"github.com/hrops/policy-engine/models"
	"github.com/hrops/policy-engine/services/evaluation"
	"github.com/hrops/policy-engine/utils"
	"go.uber.org/zap"
)

// EvaluateRequest is the body of a single evaluation call.
type EvaluateRequest struct {
	RequestID   string                     `json:"request_id"`
	RequestType string                     `json:"request_type" validate:"required"`
	Entities    []string                   `json:"entities"`
	Context     map[string]json.RawMessage `json:"context" validate:"required"`
}

// BatchEvaluateRequest is the body of a batch evaluation call.
type BatchEvaluateRequest struct {
	Requests []EvaluateRequest `json:"requests" validate:"required,min=1,max=100,dive"`
}

// EvaluateResponse wraps a decision with the evaluation timestamp. The
// decision itself carries no timestamp so identical inputs against the same
// rule set stay byte-identical.
type EvaluateResponse struct {
	*models.Decision
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// BatchEvaluateResponse is the result of a batch evaluation. Failed entries
// carry an error message in place of a decision.
type BatchEvaluateResponse struct {
	Results     []BatchEntry `json:"results"`
	EvaluatedAt time.Time    `json:"evaluated_at"`
}

// BatchEntry is one entry of a batch response.
type BatchEntry struct {
	RequestID string           `json:"request_id"`
	Decision  *models.Decision `json:"decision,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// EvaluateHandler handles POST /api/v1/evaluate
func EvaluateHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EvaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
			return
		}
		if err := utils.ValidateStruct(&req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		decision, err := deps.Evaluator.Evaluate(r.Context(), toEvaluationRequest(req, middleware.GetRequestIDFromContext(r.Context())))
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		_ = utils.WriteJSON(w, http.StatusOK, EvaluateResponse{
			Decision:    decision,
			EvaluatedAt: time.Now().UTC(),
		})
	}
}

// BatchEvaluateHandler handles POST /api/v1/evaluate/batch
func BatchEvaluateHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BatchEvaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
			return
		}
		if err := utils.ValidateStruct(&req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		requests := make([]evaluation.EvaluationRequest, 0, len(req.Requests))
		for _, entry := range req.Requests {
			// Batch entries need distinct IDs, so there is no shared fallback.
			requests = append(requests, toEvaluationRequest(entry, ""))
		}

		results := deps.Evaluator.EvaluateBatch(r.Context(), requests)
		entries := make([]BatchEntry, 0, len(results))
		failed := 0
		for _, res := range results {
			entry := BatchEntry{RequestID: res.RequestID, Decision: res.Decision}
			if res.Err != nil {
				entry.Error = res.Err.Error()
				failed++
			}
			entries = append(entries, entry)
		}

		if failed > 0 {
			deps.Logger.Warn("batch evaluation had failures",
				zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
				zap.Int("failed", failed),
				zap.Int("total", len(results)))
		}

		_ = utils.WriteJSON(w, http.StatusOK, BatchEvaluateResponse{
			Results:     entries,
			EvaluatedAt: time.Now().UTC(),
		})
	}
}

// toEvaluationRequest builds the service request, filling a missing request
// ID from the fallback or a fresh UUID.
func toEvaluationRequest(req EvaluateRequest, fallback string) evaluation.EvaluationRequest {
	requestID := req.RequestID
	if requestID == "" {
		requestID = fallback
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return evaluation.EvaluationRequest{
		RequestID:   requestID,
		RequestType: req.RequestType,
		Entities:    req.Entities,
		Context:     req.Context,
	}
}
