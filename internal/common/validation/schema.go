// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

var validate = validator.New()

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator exposes the shared validator instance.
func Validator() *validator.Validate {
	return validate
}

// ValidateInput validates a decoded job payload against a JSON schema document.
func ValidateInput(input interface{}, schema map[string]interface{}) *ValidationResult {
	if len(schema) == 0 {
		return &ValidationResult{Valid: true}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(input))
	if err != nil {
		return &ValidationResult{
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "SCHEMA_ERROR"}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out
}

// ValidateStruct runs validate tags on v.
func ValidateStruct(v interface{}) *ValidationResult {
	err := validate.Struct(v)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	out := &ValidationResult{}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out.Errors = append(out.Errors, ValidationError{Field: "(root)", Message: err.Error(), Code: "INVALID"})
		return out
	}
	for _, fe := range fieldErrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("failed on '%s' rule", fe.Tag()),
			Code:    strings.ToUpper(fe.Tag()),
		})
	}
	return out
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, e := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return messages
}

func (vr *ValidationResult) Error() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}

// IsEmail reports whether s is a single syntactically valid address.
func IsEmail(s string) bool {
	return s != "" && validate.Var(s, "email") == nil
}
