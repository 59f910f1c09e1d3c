package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cellBody struct {
	Code    string `validate:"required,max=64"`
	Timeout int    `validate:"gte=0,lte=600"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		err := ValidateStruct(&cellBody{Code: "1 + 1", Timeout: 30})
		assert.NoError(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		err := ValidateStruct(&cellBody{})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, "Code is required", GetValidationFields(err)["Code"])
	})

	t.Run("too long", func(t *testing.T) {
		err := ValidateStruct(&cellBody{Code: strings.Repeat("x", 65)})
		require.Error(t, err)
		assert.Equal(t, "Code must be at most 64", GetValidationFields(err)["Code"])
	})

	t.Run("out of range", func(t *testing.T) {
		err := ValidateStruct(&cellBody{Code: "x", Timeout: 601})
		require.Error(t, err)
		assert.Contains(t, GetValidationFields(err), "Timeout")
	})
}

func TestNewValidationError(t *testing.T) {
	err := ValidateStruct(&cellBody{Timeout: -1})
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)

	assert.Equal(t, "Validation failed", validationErr.Message)
	assert.Contains(t, validationErr.Fields, "Code")
	assert.Contains(t, validationErr.Fields, "Timeout")
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{Message: "test"}))
	assert.False(t, IsValidationError(assert.AnError))
}

func TestGetValidationFields(t *testing.T) {
	fields := map[string]string{"field1": "error1"}

	assert.Equal(t, fields, GetValidationFields(&ValidationError{Message: "test", Fields: fields}))
	assert.Nil(t, GetValidationFields(assert.AnError))
}
