// Package validation checks path parameters and request bodies against
// declared field rules. Shape problems are always reported as Violations,
// never as errors or panics.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/idna"
)

// bcrypt ignores input past this many bytes, and newer releases reject it.
const maxPasswordBytes = 72

// FieldError describes one rule a field failed.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Violations is the failure side of a validation result. An empty list means success.
type Violations []FieldError

// Failed reports whether any rule was violated.
func (v Violations) Failed() bool {
	return len(v) > 0
}

// Validator evaluates field rules. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("emaildomain", validEmailDomain)
	_ = v.RegisterValidation("passwordbytes", validPasswordBytes)

	return &Validator{validate: v}
}

// Struct validates s against its `validate` tags.
func (v *Validator) Struct(s any) Violations {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return toViolations(err, "")
}

func toViolations(err error, field string) Violations {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return Violations{{Field: fieldOr(field, "body"), Rule: "invalid", Message: err.Error()}}
	}

	out := make(Violations, 0, len(validationErrors))
	for _, fe := range validationErrors {
		out = append(out, FieldError{
			Field:   fieldOr(field, fe.Field()),
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: message(fe.Tag(), fe.Param()),
		})
	}
	return out
}

func fieldOr(field, fallback string) string {
	if field != "" {
		return field
	}
	return fallback
}

func jsonFieldName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return sf.Name
	}
	return name
}

func validEmailDomain(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	at := strings.LastIndex(value, "@")
	if at < 0 || at == len(value)-1 {
		return false
	}
	ascii, err := idna.Lookup.ToASCII(value[at+1:])
	return err == nil && strings.Contains(ascii, ".")
}

func validPasswordBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= maxPasswordBytes
}

func message(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "emaildomain":
		return "must use a valid email domain"
	case "min":
		if param == "1" {
			return "must not be empty"
		}
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "passwordbytes":
		return fmt.Sprintf("must be at most %d bytes", maxPasswordBytes)
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "number":
		return "must be a base-10 integer"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
