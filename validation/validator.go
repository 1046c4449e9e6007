package validation

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/skillsenselab/livescribe/errors"
)

// FieldError names one field that failed a check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates field checks so a handler can report every
// problem with a request at once instead of the first one it hits.
type Validator struct {
	failed []FieldError
}

// New returns an empty Validator.
func New() *Validator { return &Validator{} }

// AddError records a failed check for field.
func (v *Validator) AddError(field, message string) {
	v.failed = append(v.failed, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool { return len(v.failed) > 0 }

// Errors returns the failed checks in the order they were recorded.
func (v *Validator) Errors() []FieldError { return v.failed }

// Validate folds the failed checks into one AppError, or returns nil
// when everything passed. The full list rides along in the details.
func (v *Validator) Validate() *errors.AppError {
	if len(v.failed) == 0 {
		return nil
	}
	parts := make([]string, len(v.failed))
	for i, f := range v.failed {
		parts[i] = f.Field + ": " + f.Message
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", v.failed)
}

// Required fails when value is empty or whitespace.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// MaxLength fails when value is longer than limit characters.
func (v *Validator) MaxLength(field, value string, limit int) *Validator {
	if utf8.RuneCountInString(value) > limit {
		v.AddError(field, fmt.Sprintf("must be %d characters or less", limit))
	}
	return v
}

// Range fails when value lies outside [lo, hi].
func (v *Validator) Range(field string, value, lo, hi int) *Validator {
	if value < lo || value > hi {
		v.AddError(field, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
	return v
}

// OneOf fails when a non-empty value is not in allowed. Empty values
// pass so optional fields can share the check.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value != "" && !slices.Contains(allowed, value) {
		v.AddError(field, "must be one of: "+strings.Join(allowed, ", "))
	}
	return v
}

// Custom fails with message when ok is false.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}
