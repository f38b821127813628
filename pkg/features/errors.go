package features

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownDiseaseError reports a disease code outside the supported set.
type UnknownDiseaseError struct {
	Code string
}

func (e *UnknownDiseaseError) Error() string {
	return fmt.Sprintf("unknown disease code %q", e.Code)
}

// MissingFeaturesError lists every required feature absent from a submission,
// in schema order.
type MissingFeaturesError struct {
	Disease Code
	Names   []string
}

func (e *MissingFeaturesError) Error() string {
	return fmt.Sprintf("%s: missing required features: %s", e.Disease, strings.Join(e.Names, ", "))
}

// IncompleteAssemblyError means Assemble ran on a submission that would not
// have passed Validate.
type IncompleteAssemblyError struct {
	Disease Code
	Name    string
}

func (e *IncompleteAssemblyError) Error() string {
	return fmt.Sprintf("%s: cannot assemble vector, feature %q has no value and no default (validate first)", e.Disease, e.Name)
}

// NonNumericFeatureError reports a submitted value that cannot be read as a
// finite number.
type NonNumericFeatureError struct {
	Name  string
	Value interface{}
	Err   error
}

func (e *NonNumericFeatureError) Error() string {
	return fmt.Sprintf("feature %q: value %v is not numeric", e.Name, e.Value)
}

func (e *NonNumericFeatureError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is caused by the user's data, as
// opposed to a caller bug or a model failure.
func IsValidationError(err error) bool {
	var missing *MissingFeaturesError
	var nonNumeric *NonNumericFeatureError
	return errors.As(err, &missing) || errors.As(err, &nonNumeric)
}

// InvalidFields returns the feature names a validation error refers to.
func InvalidFields(err error) []string {
	var missing *MissingFeaturesError
	if errors.As(err, &missing) {
		return append([]string(nil), missing.Names...)
	}
	var nonNumeric *NonNumericFeatureError
	if errors.As(err, &nonNumeric) {
		return []string{nonNumeric.Name}
	}
	return nil
}
