package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,18}[0-9]$`)
)

// Setup configures gin's binding validator to report JSON field names and
// registers the custom tags used by request DTOs.
func Setup() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	Register(v)
	return nil
}

// Register applies the project conventions to a validator instance.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})
}

// FormatValidationErrors converts validator.ValidationErrors into a map of
// field name to human-readable message.
func FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errs
	}
	for _, e := range ve {
		errs[e.Field()] = formatFieldError(e)
	}
	return errs
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Minimum length is %s", e.Param())
	case "max":
		return fmt.Sprintf("Maximum length is %s", e.Param())
	case "email":
		return "Must be a valid email address"
	case "url":
		return "Must be a valid URL"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", e.Param())
	case "phone":
		return "Must be a valid phone number"
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", e.Param())
	default:
		return fmt.Sprintf("Validation failed on '%s'", e.Tag())
	}
}

// IsValidEmail checks if the email format is valid
func IsValidEmail(email string) bool {
	if strings.TrimSpace(email) == "" {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidPhone checks if the phone number format is valid
func IsValidPhone(phone string) bool {
	if strings.TrimSpace(phone) == "" {
		return false
	}
	return phoneRegex.MatchString(phone)
}
