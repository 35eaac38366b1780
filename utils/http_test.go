package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("writes payload and content type", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteJSON(w, http.StatusOK, map[string]string{"hello": "world"}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"hello":"world"}`, w.Body.String())
	})

	t.Run("nil payload leaves an empty body", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteJSON(w, http.StatusAccepted, nil))
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestSuccessWriters(t *testing.T) {
	t.Run("WriteOK wraps the data envelope", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteOK(w, map[string]int{"count": 3}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":{"count":3}}`, w.Body.String())
	})

	t.Run("WriteCreated", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteCreated(w, "made"))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("WriteNoContent", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteNoContent(w)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestErrorWriters(t *testing.T) {
	decode := func(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
		t.Helper()
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		return body
	}

	t.Run("bad request with details", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteBadRequest(w, "Invalid version parameter", map[string]interface{}{"version": "zero"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "bad_request", body.Error)
		assert.Equal(t, "zero", body.Details["version"])
	})

	t.Run("not found default message", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteNotFound(w, ""))

		body := decode(t, w)
		assert.Equal(t, "not_found", body.Error)
		assert.Equal(t, "Resource not found", body.Message)
	})

	t.Run("conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteConflict(w, "policy version already exists", nil))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("internal error default message", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteInternalServerError(w, ""))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", decode(t, w).Message)
	})
}
