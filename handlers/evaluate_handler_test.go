package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hrops/policy-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestEvaluateHandler(t *testing.T) {
	deps := newTestDeps(t)
	seedActivePolicy(t, deps)
	handler := EvaluateHandler(deps)

	t.Run("rejecting decision with remediation", func(t *testing.T) {
		w := postJSON(t, handler, "/api/v1/evaluate", EvaluateRequest{
			RequestID:   "REQ-1",
			RequestType: "leave_request",
			Context: map[string]json.RawMessage{
				"leave_days": json.RawMessage(`25`),
			},
		})
		require.Equal(t, http.StatusOK, w.Code)

		var response EvaluateResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

		assert.Equal(t, "REQ-1", response.RequestID)
		assert.Equal(t, models.OutcomeReject, response.Outcome)
		assert.Equal(t, "R_EXCESS", response.PrimaryRuleID)
		assert.NotEmpty(t, response.Suggestions)
		assert.False(t, response.EvaluatedAt.IsZero())
	})

	t.Run("approving decision", func(t *testing.T) {
		w := postJSON(t, handler, "/api/v1/evaluate", EvaluateRequest{
			RequestType: "leave_request",
			Context: map[string]json.RawMessage{
				"leave_days": json.RawMessage(`10`),
			},
		})
		require.Equal(t, http.StatusOK, w.Code)

		var response EvaluateResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, models.OutcomeApprove, response.Outcome)
		assert.NotEmpty(t, response.RequestID, "missing request IDs are generated")
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", strings.NewReader(`{`))
		w := httptest.NewRecorder()
		handler(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing context fails validation", func(t *testing.T) {
		w := postJSON(t, handler, "/api/v1/evaluate", EvaluateRequest{
			RequestType: "leave_request",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing request type fails validation", func(t *testing.T) {
		w := postJSON(t, handler, "/api/v1/evaluate", EvaluateRequest{
			Context: map[string]json.RawMessage{"leave_days": json.RawMessage(`5`)},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBatchEvaluateHandler(t *testing.T) {
	deps := newTestDeps(t)
	seedActivePolicy(t, deps)
	handler := BatchEvaluateHandler(deps)

	t.Run("mixed batch keeps failures per entry", func(t *testing.T) {
		w := postJSON(t, handler, "/api/v1/evaluate/batch", BatchEvaluateRequest{
			Requests: []EvaluateRequest{
				{RequestID: "B-1", RequestType: "leave_request", Context: map[string]json.RawMessage{"leave_days": json.RawMessage(`10`)}},
				{RequestID: "B-2", RequestType: "leave_request", Context: map[string]json.RawMessage{"leave_days": json.RawMessage(`25`)}},
			},
		})
		require.Equal(t, http.StatusOK, w.Code)

		var response BatchEvaluateResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response.Results, 2)

		assert.Equal(t, models.OutcomeApprove, response.Results[0].Decision.Outcome)
		assert.Equal(t, models.OutcomeReject, response.Results[1].Decision.Outcome)
		assert.Empty(t, response.Results[0].Error)
	})

	t.Run("entries without IDs get distinct ones", func(t *testing.T) {
		w := postJSON(t, handler, "/api/v1/evaluate/batch", BatchEvaluateRequest{
			Requests: []EvaluateRequest{
				{RequestType: "leave_request", Context: map[string]json.RawMessage{"leave_days": json.RawMessage(`1`)}},
				{RequestType: "leave_request", Context: map[string]json.RawMessage{"leave_days": json.RawMessage(`2`)}},
			},
		})
		require.Equal(t, http.StatusOK, w.Code)

		var response BatchEvaluateResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response.Results, 2)
		assert.NotEmpty(t, response.Results[0].RequestID)
		assert.NotEqual(t, response.Results[0].RequestID, response.Results[1].RequestID)
	})

	t.Run("empty batch fails validation", func(t *testing.T) {
		w := postJSON(t, handler, "/api/v1/evaluate/batch", BatchEvaluateRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
