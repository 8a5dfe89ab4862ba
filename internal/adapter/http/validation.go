package http

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"loanflow/pkg/id"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	Code    string       `json:"code"`
	Details []FieldError `json:"details,omitempty"`
}

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	// caller-supplied document id
	_ = v.RegisterValidation("docid", func(fl validator.FieldLevel) bool {
		return id.Valid(fl.Field().String())
	})
	// no NaN or ±Inf
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "docid":
			out = append(out, FieldError{Field: field, Message: "must be 1-64 characters of letters, digits, '-' or '_'"})
		case "finite":
			out = append(out, FieldError{Field: field, Message: "must be a finite number"})
		case "gt":
			out = append(out, FieldError{Field: field, Message: "must be greater than " + e.Param()})
		case "gte":
			out = append(out, FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "max":
			out = append(out, FieldError{Field: field, Message: "must be at most " + e.Param() + " characters"})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}
