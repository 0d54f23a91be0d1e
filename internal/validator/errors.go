package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field failure
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	fields := make([]string, len(ve))
	for i, e := range ve {
		fields[i] = e.Field
	}
	return fmt.Sprintf("validation failed: %d field errors (%s)", len(ve), strings.Join(fields, ", "))
}

// NewValidationError builds a one-entry ValidationErrors for rules checked outside struct tags
func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message, Value: value, Rule: "business_logic"}}
}

// ToValidationErrors converts go-playground errors into ValidationErrors
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   sanitizedValue(fe),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "hexadecimal":
		return "must be hexadecimal"
	case "username":
		return "must be 3-50 characters of letters, digits, '.', '_' or '-'"
	case "password":
		return fmt.Sprintf("must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)
	case "payment_method":
		return "must be one of: bank_transfer momo zalo_pay"
	case "user_role":
		return "must be one of: user admin banned"
	case "order_action":
		return "must be one of: approve reject"
	case "course_tags":
		return fmt.Sprintf("must contain at most %d tags of at most %d characters", MaxTags, MaxTagLength)
	case "rating":
		return "must be between 1 and 5"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

// sanitizedValue keeps secrets out of error payloads
func sanitizedValue(fe validator.FieldError) interface{} {
	switch fe.Tag() {
	case "password":
		return nil
	}
	name := strings.ToLower(fe.Field())
	if strings.Contains(name, "password") || strings.Contains(name, "token") {
		return nil
	}
	return fe.Value()
}
