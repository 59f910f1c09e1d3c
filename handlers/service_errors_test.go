package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/governed-notebook/services"
	"github.com/upb/governed-notebook/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"validation error", services.ErrInvalidInput, http.StatusBadRequest, "bad_request"},
		{"unauthorized error", services.ErrInvalidToken, http.StatusUnauthorized, "unauthorized"},
		{"forbidden error", services.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"policy violation", services.NewPolicyViolation("statement must start with SELECT", "DELETE"), http.StatusForbidden, "forbidden"},
		{"export denied", services.NewExportDenied("os.WriteFile", "out.csv"), http.StatusForbidden, "forbidden"},
		{"store unavailable", services.WrapStoreUnavailable("failed to list execution logs", errors.New("dial tcp")), http.StatusServiceUnavailable, "service_unavailable"},
		{"configuration", services.ErrMissingDataStore, http.StatusServiceUnavailable, "service_unavailable"},
		{"internal error", services.ErrInternal, http.StatusInternalServerError, "internal_error"},
		{"unknown error", errors.New("some unknown error"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

			assert.Equal(t, tt.expectedError, response.Error)
			assert.NotEmpty(t, response.Message)
		})
	}
}

func TestHandleServiceErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, services.NewPolicyViolation("forbidden keyword", "DROP"), zap.NewNop())

	assert.Equal(t, http.StatusForbidden, w.Code)

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	assert.Equal(t, "forbidden keyword", response.Details["reason"])
	assert.Equal(t, "DROP", response.Details["token"])
}

func TestHandleServiceErrorNil(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, nil, zap.NewNop())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("field errors", func(t *testing.T) {
		err := &utils.ValidationError{
			Message: "Validation failed",
			Fields:  map[string]string{"Code": "Code is required"},
		}

		w := httptest.NewRecorder()
		HandleValidationError(w, err, logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Validation failed", response.Message)
		assert.Equal(t, "Code is required", response.Details["Code"])
	})

	t.Run("generic error", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleValidationError(w, errors.New("invalid request body"), logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "invalid request body", response.Message)
	})
}
