package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

// ValidationError represents a single failing field.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// NewValidator builds a validator that reports fields by their JSON names
// and knows the masked-card and password-length rules.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("last4", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) == 4 && isDigits(s)
	})
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != 5 || s[2] != '/' {
			return false
		}
		mm := s[:2]
		return mm >= "01" && mm <= "12" && isDigits(s[3:])
	})
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})
	return v
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// FormatValidationErrors converts validator.ValidationErrors into a slice of ValidationError
func FormatValidationErrors(err error) []ValidationError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]ValidationError, len(ve))
	for i, fe := range ve {
		field := fieldPath(fe.Namespace())
		out[i] = ValidationError{Field: field, Tag: fe.Tag()}
		switch fe.Tag() {
		case "required":
			out[i].Message = fmt.Sprintf("%s is required", field)
		case "email":
			out[i].Message = fmt.Sprintf("%s must be a valid email address", field)
		case "min":
			out[i].Message = fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		case "max":
			out[i].Message = fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		case "oneof":
			out[i].Message = fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		case "last4":
			out[i].Message = fmt.Sprintf("%s must be the last four digits of the card", field)
		case "expiry":
			out[i].Message = fmt.Sprintf("%s must be in MM/YY format", field)
		case "bcryptlen":
			out[i].Message = fmt.Sprintf("%s must be at most %d bytes long", field, MaxPasswordBytes)
		default:
			out[i].Message = fmt.Sprintf("%s failed on the '%s' rule", field, fe.Tag())
		}
	}
	return out
}

// fieldPath drops the root struct name: "createEnrolleeReq.address.city" -> "address.city".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
