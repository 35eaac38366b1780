package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hrops/policy-engine/app"
	"go.uber.org/zap"
)

// HealthCheck returns a simple health check handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ReadinessCheck performs a more thorough readiness check
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := "ready"

		if deps.DB != nil {
			if err := deps.DB.HealthCheck(ctx); err != nil {
				status = "not_ready"
				checks["database"] = "unhealthy"
				deps.Logger.Error("database health check failed", zap.Error(err))
			} else {
				checks["database"] = "healthy"
			}
		} else {
			checks["storage"] = "file"
		}

		if snapshot, err := deps.PolicyService.Snapshot(ctx); err != nil {
			status = "not_ready"
			checks["rule_set"] = "unavailable"
			deps.Logger.Error("rule set check failed", zap.Error(err))
		} else if len(snapshot.Policies) == 0 {
			checks["rule_set"] = "empty"
		} else {
			checks["rule_set"] = "loaded"
		}

		response := map[string]interface{}{
			"status": status,
			"checks": checks,
			"cache":  deps.PolicyService.CacheStats(),
		}

		w.Header().Set("Content-Type", "application/json")
		if status == "ready" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"version":     "0.1.0",
			"environment": deps.Config.Environment,
			"mode":        deps.Config.Evaluation.Mode,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
