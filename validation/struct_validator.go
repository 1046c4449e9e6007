package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/skillsenselab/livescribe/errors"
)

var getValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Configuration structs carry mapstructure tags; report those in
	// error messages so they match the YAML keys.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" || name == "" {
			return toSnakeCase(fld.Name)
		}
		return name
	})
	return v
})

// Validate checks a struct against its `validate` tags, e.g.
// `validate:"required,oneof=console json"`, descending into nested
// structs.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Validation("validation failed")
	}

	failed := make([]FieldError, len(verrs))
	parts := make([]string, len(verrs))
	for i, e := range verrs {
		failed[i] = FieldError{Field: e.Field(), Message: messageFor(e)}
		parts[i] = failed[i].Field + ": " + failed[i].Message
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail("fields", failed)
}

// Message templates per validate tag. A %s slot receives the tag
// parameter.
var tagMessages = map[string]string{
	"required": "is required",
	"min":      "must be at least %s",
	"gte":      "must be at least %s",
	"max":      "must be at most %s",
	"lte":      "must be at most %s",
	"gt":       "must be greater than %s",
	"eq":       "must equal %s",
	"gtefield": "must be at least the value of %s",
	"oneof":    "must be one of: %s",
	"url":      "must be a valid URL",
}

func messageFor(e validator.FieldError) string {
	tmpl, ok := tagMessages[e.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, e.Param())
	}
	return tmpl
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
