package validation

import (
	"strings"
	"testing"

	"github.com/skillsenselab/livescribe/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New().Required("from", "").Required("to", "Alice")

	if !v.HasErrors() {
		t.Fatal("expected errors")
	}
	fieldErrs := v.Errors()
	if len(fieldErrs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(fieldErrs))
	}
	if fieldErrs[0].Field != "from" {
		t.Errorf("expected error on 'from', got %q", fieldErrs[0].Field)
	}
}

func TestValidatorWhitespaceIsEmpty(t *testing.T) {
	v := New().Required("speaker", "   ")
	if !v.HasErrors() {
		t.Error("whitespace-only value should fail Required")
	}
}

func TestValidatorRange(t *testing.T) {
	v := New().Range("num_speakers", 40, 0, 32)
	if !v.HasErrors() {
		t.Error("expected range error for 40")
	}

	v = New().Range("num_speakers", 4, 0, 32)
	if v.HasErrors() {
		t.Errorf("unexpected errors: %v", v.Errors())
	}
}

func TestValidatorOneOf(t *testing.T) {
	allowed := []string{"microphone", "system"}

	if v := New().OneOf("source", "microphone", allowed); v.HasErrors() {
		t.Errorf("unexpected errors: %v", v.Errors())
	}
	if v := New().OneOf("source", "tape", allowed); !v.HasErrors() {
		t.Error("expected error for disallowed value")
	}
	// Empty is allowed; pair with Required when the field is mandatory.
	if v := New().OneOf("source", "", allowed); v.HasErrors() {
		t.Error("empty value should pass OneOf")
	}
}

func TestValidatorCustom(t *testing.T) {
	v := New().Custom(2 > 1, "min_speakers", "must not exceed max_speakers")
	if v.HasErrors() {
		t.Errorf("unexpected errors: %v", v.Errors())
	}
	v = New().Custom(5 <= 3, "min_speakers", "must not exceed max_speakers")
	if !v.HasErrors() {
		t.Error("expected error for failed condition")
	}
}

func TestValidatorMaxLengthCountsCharacters(t *testing.T) {
	if v := New().MaxLength("to", strings.Repeat("é", 64), 64); v.HasErrors() {
		t.Error("64 multibyte characters should pass a 64-character limit")
	}
}

func TestValidatorAccumulatesInOrder(t *testing.T) {
	v := New().Required("from", "").Required("to", "")
	errs := v.Errors()
	if len(errs) != 2 || errs[0].Field != "from" || errs[1].Field != "to" {
		t.Errorf("unexpected order: %v", errs)
	}
}

func TestValidatorProducesAppError(t *testing.T) {
	appErr := New().Required("from", "").MaxLength("to", strings.Repeat("x", 100), 64).Validate()
	if appErr == nil {
		t.Fatal("expected AppError")
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok {
		t.Fatalf("expected []FieldError details, got %T", appErr.Details["fields"])
	}
	if len(fields) != 2 {
		t.Errorf("expected 2 field errors, got %d", len(fields))
	}
}

func TestValidatorNoErrors(t *testing.T) {
	if err := New().Required("from", "SPEAKER_00").Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

type sampleSection struct {
	Strategy string  `mapstructure:"strategy" validate:"oneof=health priority round_robin"`
	MinSec   float64 `mapstructure:"min_sec" validate:"gt=0"`
	MaxSec   float64 `mapstructure:"max_sec" validate:"gtefield=MinSec"`
}

func TestStructValidate(t *testing.T) {
	ok := sampleSection{Strategy: "health", MinSec: 2.0, MaxSec: 5.0}
	if err := Validate(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := sampleSection{Strategy: "random", MinSec: 2.0, MaxSec: 1.0}
	err := Validate(bad)
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr, isApp := errors.AsAppError(err)
	if !isApp {
		t.Fatalf("expected AppError, got %T", err)
	}
	msg := appErr.Message
	if !strings.Contains(msg, "strategy") {
		t.Errorf("error should name the strategy field by its mapstructure tag: %s", msg)
	}
	if !strings.Contains(msg, "max_sec") {
		t.Errorf("error should name the max_sec field: %s", msg)
	}
}
