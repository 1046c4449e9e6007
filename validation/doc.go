// Package validation provides request and configuration validation.
//
// Two styles are supported: a fluent Validator for handler-level checks
// on individual fields, and struct-tag validation via
// github.com/go-playground/validator/v10 for configuration structs.
// Both produce coded application errors with per-field details.
package validation
