package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}

// jsonFieldName reports fields by their wire name, falling back to the Go name.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

// Failure is one rule a field broke.
type Failure struct {
	Field string
	Tag   string
	Param string
}

func (f Failure) String() string {
	return fmt.Sprintf("field '%s' %s", f.Field, describe(f.Tag, f.Param))
}

// ValidationError lists every rule a struct broke, in field order.
type ValidationError struct {
	Failures []Failure
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

// FailedTag returns the rule field broke, or "" if it passed.
func (e *ValidationError) FailedTag(field string) string {
	for _, f := range e.Failures {
		if f.Field == field {
			return f.Tag
		}
	}
	return ""
}

// Validate checks s against its `validate` struct tags. Rule violations are
// returned as *ValidationError; anything else (such as a non-struct argument)
// is returned as is.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	failures := make([]Failure, len(fieldErrs))
	for i, fe := range fieldErrs {
		failures[i] = Failure{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
	}
	return &ValidationError{Failures: failures}
}

func describe(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "oneof":
		return "must be one of: " + param
	default:
		return fmt.Sprintf("failed on '%s' validation", tag)
	}
}
