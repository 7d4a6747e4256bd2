// Package validation validates request bodies with go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"tafe-weather-api/internal/common/models"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	// Australian landline or mobile, e.g. 0412345678.
	auPhone = regexp.MustCompile(`^0[2-478]\d{8}$`)
)

// FieldError is one failed rule on one field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// RequestValidationError collects every failed rule of a request.
type RequestValidationError struct {
	errors []FieldError
}

func (ve *RequestValidationError) Errors() []FieldError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i, e := range ve.errors {
		messages[i] = e.Message
	}
	return strings.Join(messages, "; ")
}

// Fields maps each failing field to its message, for error response context.
func (ve *RequestValidationError) Fields() map[string]any {
	out := make(map[string]any, len(ve.errors))
	for _, e := range ve.errors {
		out[e.Field] = e.Message
	}
	return out
}

// GetValidator returns the shared validator with the custom rules registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// report json names, not Go field names
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})

		_ = validate.RegisterValidation("auphone", func(fl validator.FieldLevel) bool {
			return auPhone.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return models.Role(fl.Field().String()).Valid()
		})
		_ = validate.RegisterValidation("userstatus", func(fl validator.FieldLevel) bool {
			s := models.UserStatus(fl.Field().String())
			return s == models.StatusActive || s == models.StatusInactive
		})
	})
	return validate
}

// ValidateStruct returns nil or a *RequestValidationError.
func ValidateStruct(s any) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{errors: []FieldError{{Field: "body", Tag: "unknown", Message: err.Error()}}}
	}

	out := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		out[i] = FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: translate(fe)}
	}
	return &RequestValidationError{errors: out}
}

var messages = map[string]string{
	"required":   "%s is required",
	"email":      "%s must be a valid email address",
	"auphone":    "%s must be an Australian phone number",
	"role":       "%s must be one of admin, teacher, student, sensor",
	"userstatus": "%s must be active or inactive",
	"latitude":   "%s must be a valid latitude (-90 to 90)",
	"longitude":  "%s must be a valid longitude (-180 to 180)",
}

var messagesWithParam = map[string]string{
	"oneof":   "%s must be one of: %s",
	"eqfield": "%s must match %s",
	"gte":     "%s must be greater than or equal to %s",
	"lte":     "%s must be less than or equal to %s",
}

func translate(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if tmpl, ok := messages[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := messagesWithParam[tag]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}

	isString := fe.Kind() == reflect.String
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must contain at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must contain at most %s", field, param)
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}
