// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInput(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"key"},
		"properties": map[string]interface{}{
			"key": map[string]interface{}{"type": "string"},
		},
	}

	res := ValidateInput(map[string]interface{}{"key": "welcome"}, schema)
	assert.True(t, res.Valid)

	res = ValidateInput(map[string]interface{}{}, schema)
	require.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "REQUIRED", res.Errors[0].Code)
	assert.Contains(t, res.Error(), "key")

	assert.True(t, ValidateInput(nil, nil).Valid)
}

func TestValidateStruct(t *testing.T) {
	type payload struct {
		Key   string `validate:"required"`
		Email string `validate:"omitempty,email"`
	}

	assert.True(t, ValidateStruct(payload{Key: "k"}).Valid)

	res := ValidateStruct(payload{Email: "nope"})
	require.False(t, res.Valid)
	assert.Len(t, res.Errors, 2)
	assert.Equal(t, []string{"payload.Key: failed on 'required' rule", "payload.Email: failed on 'email' rule"}, res.GetErrorMessages())
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("ann@example.com"))
	assert.False(t, IsEmail(""))
	assert.False(t, IsEmail("{{data.email}}"))
}
