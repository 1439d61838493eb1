package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Text   string `json:"text" validate:"required,min=5,max=10"`
	Rating int    `json:"rating" validate:"gte=1,lte=5"`
	Kind   string `json:"kind,omitempty" validate:"omitempty,oneof=a b"`
	Raw    string `validate:"omitempty,max=2"`
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(testStruct{Text: "hello", Rating: 3, Kind: "a"}))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	err := Validate(testStruct{Rating: 3})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Len(t, valErr.Failures, 1)
	assert.Equal(t, Failure{Field: "text", Tag: "required"}, valErr.Failures[0])
	assert.Equal(t, "required", valErr.FailedTag("text"))
	assert.Empty(t, valErr.FailedTag("rating"))
}

func TestValidate_FallsBackToGoFieldName(t *testing.T) {
	err := Validate(testStruct{Text: "hello", Rating: 1, Raw: "abc"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "max", valErr.FailedTag("Raw"))
}

func TestValidate_MinMax(t *testing.T) {
	err := Validate(testStruct{Text: "hey", Rating: 9})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, err.Error(), "field 'text' must be at least 5 characters")
	assert.Contains(t, err.Error(), "field 'rating' must be less than or equal to 5")
	assert.Equal(t, "min", valErr.FailedTag("text"))
	assert.Equal(t, "lte", valErr.FailedTag("rating"))
}

func TestValidate_CountsRunesNotBytes(t *testing.T) {
	// Five multi-byte characters satisfy min=5.
	assert.NoError(t, Validate(testStruct{Text: "ééééé", Rating: 2}))
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(testStruct{Text: "hello", Rating: 1, Kind: "z"})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "oneof", valErr.FailedTag("kind"))
	assert.Contains(t, err.Error(), "must be one of: a b")
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(testStruct{Rating: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'text'")
	assert.Contains(t, err.Error(), "is required")
}

func TestValidate_NonStructPassesThrough(t *testing.T) {
	err := Validate(42)
	require.Error(t, err)

	var valErr *ValidationError
	assert.False(t, errors.As(err, &valErr))
}
