package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hrops/policy-engine/app"
	"github.com/hrops/policy-engine/models"
	"github.com/hrops/policy-engine/utils"
)

// CreatePolicyRequest represents a request to ingest a policy version
type CreatePolicyRequest struct {
	PolicyID string        `json:"policy_id" validate:"required"`
	Name     string        `json:"policy_name" validate:"required"`
	Version  int           `json:"version" validate:"required,gt=0"`
	Tags     []string      `json:"tags"`
	Rules    []models.Rule `json:"rules" validate:"required,min=1"`
}

// ListPoliciesHandler handles GET /api/v1/policies
func ListPoliciesHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		policies, err := deps.PolicyService.ListPolicies(r.Context())
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, policies)
	}
}

// CreatePolicyHandler handles POST /api/v1/policies
func CreatePolicyHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePolicyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
			return
		}
		if err := utils.ValidateStruct(&req); err != nil {
			HandleValidationError(w, err, deps.Logger)
			return
		}

		policy := &models.Policy{
			ID:      req.PolicyID,
			Name:    req.Name,
			Version: req.Version,
			Tags:    req.Tags,
			Rules:   req.Rules,
		}
		created, err := deps.PolicyService.CreatePolicy(r.Context(), policy)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteCreated(w, created)
	}
}

// GetPolicyHandler handles GET /api/v1/policies/{id}. The optional version
// query parameter selects a version; the latest is returned otherwise.
func GetPolicyHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		version := 0
		if versionStr := r.URL.Query().Get("version"); versionStr != "" {
			parsed, err := strconv.Atoi(versionStr)
			if err != nil || parsed <= 0 {
				_ = utils.WriteBadRequest(w, "Invalid version parameter", nil)
				return
			}
			version = parsed
		}

		policy, err := deps.PolicyService.GetPolicy(r.Context(), id, version)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, policy)
	}
}

// ActivatePolicyHandler handles POST /api/v1/policies/{id}/versions/{version}/activate
func ActivatePolicyHandler(deps *app.Dependencies) http.HandlerFunc {
	return lifecycleHandler(deps, deps.PolicyService.ActivatePolicy)
}

// RetirePolicyHandler handles POST /api/v1/policies/{id}/versions/{version}/retire
func RetirePolicyHandler(deps *app.Dependencies) http.HandlerFunc {
	return lifecycleHandler(deps, deps.PolicyService.RetirePolicy)
}

// DeletePolicyHandler handles DELETE /api/v1/policies/{id}
func DeletePolicyHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := deps.PolicyService.DeletePolicy(r.Context(), id); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		utils.WriteNoContent(w)
	}
}

// GetSchemaHandler handles GET /api/v1/schema
func GetSchemaHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schema, err := deps.PolicyService.GetSchema(r.Context())
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, schema)
	}
}

// PutSchemaHandler handles PUT /api/v1/schema
func PutSchemaHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var schema models.Schema
		if err := json.NewDecoder(r.Body).Decode(&schema); err != nil {
			_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
			return
		}
		if err := deps.PolicyService.SaveSchema(r.Context(), schema); err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, schema)
	}
}

// lifecycleHandler wraps the shared shape of activate/retire endpoints.
func lifecycleHandler(deps *app.Dependencies, transition func(ctx context.Context, id string, version int) (*models.Policy, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		version, err := strconv.Atoi(chi.URLParam(r, "version"))
		if err != nil || version <= 0 {
			_ = utils.WriteBadRequest(w, "Invalid version parameter", nil)
			return
		}

		policy, err := transition(r.Context(), id, version)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}
		_ = utils.WriteOK(w, policy)
	}
}
