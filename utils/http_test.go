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
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusOK, map[string]string{"message": "test"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteJSON(w, http.StatusNoContent, nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteOK(w, map[string]string{"result": "success"}))

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "success", response.Data.(map[string]interface{})["result"])
}

func TestErrorWriters(t *testing.T) {
	tests := []struct {
		name        string
		write       func(w http.ResponseWriter) error
		wantStatus  int
		wantError   string
		wantMessage string
	}{
		{"bad request", func(w http.ResponseWriter) error { return WriteBadRequest(w, "bad limit", nil) }, http.StatusBadRequest, "bad_request", "bad limit"},
		{"unauthorized default", func(w http.ResponseWriter) error { return WriteUnauthorized(w, "") }, http.StatusUnauthorized, "unauthorized", "Authentication required"},
		{"forbidden", func(w http.ResponseWriter) error { return WriteForbidden(w, "nope", nil) }, http.StatusForbidden, "forbidden", "nope"},
		{"not found default", func(w http.ResponseWriter) error { return WriteNotFound(w, "") }, http.StatusNotFound, "not_found", "Resource not found"},
		{"unavailable", func(w http.ResponseWriter) error { return WriteServiceUnavailable(w, "") }, http.StatusServiceUnavailable, "service_unavailable", "Service unavailable"},
		{"internal", func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") }, http.StatusInternalServerError, "internal_error", "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.wantStatus, w.Code)
			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantError, response.Error)
			assert.Equal(t, tt.wantMessage, response.Message)
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		status    int
		wantError string
	}{
		{http.StatusBadRequest, "bad_request"},
		{http.StatusUnauthorized, "unauthorized"},
		{http.StatusForbidden, "forbidden"},
		{http.StatusNotFound, "not_found"},
		{http.StatusServiceUnavailable, "service_unavailable"},
		{http.StatusTeapot, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantError, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, WriteError(w, tt.status, "msg", map[string]interface{}{"k": "v"}))

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.wantError, response.Error)
			assert.Equal(t, "v", response.Details["k"])
		})
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?limit=25&offset=abc", nil)

	v, err := QueryInt(r, "limit", 10)
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	v, err = QueryInt(r, "days", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = QueryInt(r, "offset", 0)
	assert.EqualError(t, err, "offset must be an integer")
}
