package validator

import (
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 72 // bcrypt input limit
	MaxTags           = 20
	MaxTagLength      = 50
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,50}$`)

// Validator wraps go-playground/validator with the marketplace rules registered
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with all custom rules registered
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report json names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerBusinessRules()
	return v
}

// Validate checks s against its struct tags. The result is nil or ValidationErrors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// Var validates a single value against a tag expression
func (v *Validator) Var(field interface{}, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

func (v *Validator) registerBusinessRules() {
	v.validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	v.validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		n := utf8.RuneCountInString(fl.Field().String())
		return n >= MinPasswordLength && len(fl.Field().String()) <= MaxPasswordLength
	})

	v.validate.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return models.PaymentMethod(fl.Field().String()).IsValid()
	})

	v.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	v.validate.RegisterValidation("order_action", func(fl validator.FieldLevel) bool {
		switch models.OrderAction(fl.Field().String()) {
		case models.OrderActionApprove, models.OrderActionReject:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("rating", func(fl validator.FieldLevel) bool {
		r := fl.Field().Int()
		return r >= models.MinRating && r <= models.MaxRating
	})

	v.validate.RegisterValidation("course_tags", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Slice {
			return false
		}
		if field.Len() > MaxTags {
			return false
		}
		for i := 0; i < field.Len(); i++ {
			tag := strings.TrimSpace(field.Index(i).String())
			if tag == "" || utf8.RuneCountInString(tag) > MaxTagLength {
				return false
			}
		}
		return true
	})
}
