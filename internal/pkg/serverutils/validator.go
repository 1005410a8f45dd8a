// FILE: internal/pkg/serverutils/validator.go
package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest runs struct tag validation and flattens the result into a
// single human-readable error.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var problems []string
	for _, fieldErr := range validationErrors {
		switch fieldErr.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", strings.ToLower(fieldErr.Field())))
		case "max":
			problems = append(problems, fmt.Sprintf("%s must be at most %s characters", strings.ToLower(fieldErr.Field()), fieldErr.Param()))
		case "min":
			problems = append(problems, fmt.Sprintf("%s must be at least %s characters", strings.ToLower(fieldErr.Field()), fieldErr.Param()))
		case "oneof":
			problems = append(problems, fmt.Sprintf("%s must be one of: %s", strings.ToLower(fieldErr.Field()), fieldErr.Param()))
		case "uuid":
			problems = append(problems, fmt.Sprintf("%s must be a valid uuid", strings.ToLower(fieldErr.Field())))
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid", strings.ToLower(fieldErr.Field())))
		}
	}
	return fmt.Errorf("%s", strings.Join(problems, "; "))
}
