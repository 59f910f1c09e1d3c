package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeStoreUnavailable, "insert failed", baseErr)

	assert.Equal(t, ErrorTypeStoreUnavailable, domainErr.Type)
	assert.Equal(t, "insert failed", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeStoreUnavailable,
				Message: "append failed",
				Err:     errors.New("connection refused"),
			},
			wantMsg: "store_unavailable: append failed (connection refused)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypePolicyViolation,
				Message: "only SELECT statements are allowed",
			},
			wantMsg: "policy_violation: only SELECT statements are allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "export denial matches sentinel",
			err:    NewExportDenied("file_open_write", "report.csv"),
			target: ErrExportDenied,
			want:   true,
		},
		{
			name:   "policy violation does not match export sentinel",
			err:    NewPolicyViolation("forbidden_token", "DROP"),
			target: ErrExportDenied,
			want:   false,
		},
		{
			name:   "wrapped error still matches",
			err:    fmt.Errorf("cell failed: %w", NewExportDenied("serialize_csv", "")),
			target: ErrExportDenied,
			want:   true,
		},
		{
			name:   "plain error",
			err:    errors.New("boom"),
			target: ErrStoreUnavailable,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestNewExportDenied(t *testing.T) {
	t.Run("file target", func(t *testing.T) {
		err := NewExportDenied("file_open_write", "report.csv")
		assert.Contains(t, err.Error(), "report.csv")
		assert.Equal(t, "report.csv", err.Details["filename"])
		assert.Equal(t, "file_open_write", err.Details["operation"])
	})

	t.Run("method target", func(t *testing.T) {
		err := NewExportDenied("serialize_pickle", "")
		assert.Contains(t, err.Error(), "serialize_pickle is not allowed")
	})
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsExportDeniedError(NewExportDenied("numeric_save", "")))
	assert.True(t, IsPolicyViolationError(NewPolicyViolation("not_select", "")))
	assert.True(t, IsStoreUnavailableError(WrapStoreUnavailable("x", errors.New("y"))))
	assert.True(t, IsConfigurationError(ErrMissingDataStore))
	assert.True(t, IsValidationError(ErrInvalidInput))
	assert.True(t, IsUnauthorizedError(ErrInvalidToken))
	assert.True(t, IsForbiddenError(ErrForbidden))
	assert.False(t, IsExportDeniedError(errors.New("plain")))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
}

func TestGetErrorDetails(t *testing.T) {
	err := NewPolicyViolation("forbidden_token", "DELETE")
	details := GetErrorDetails(fmt.Errorf("wrapped: %w", err))
	require.NotNil(t, details)
	assert.Equal(t, "DELETE", details["token"])
	assert.Equal(t, "forbidden_token", details["reason"])

	assert.Nil(t, GetErrorDetails(errors.New("plain")))
}
