package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/utafrali/reviewfeed/pkg/errors"
	"github.com/utafrali/reviewfeed/pkg/validator"
)

// Review text and rating bounds. Lengths count Unicode code points.
const (
	MinReviewLength = 5
	MaxReviewLength = 1000
	MinRating       = 1
	MaxRating       = 5
)

// Rejection messages shown to the submitter verbatim.
const (
	MsgReviewRequired = "review required"
	MsgTooShort       = "too short"
	MsgInvalidRating  = "invalid rating"
)

// RawSubmission is a submission as received on the wire. Rating may be a
// JSON number or a numeric string.
type RawSubmission struct {
	Rating     json.RawMessage `json:"rating"`
	UserReview string          `json:"user_review"`
}

// Submission is a normalized submission ready for augmentation.
type Submission struct {
	UserReview string `json:"user_review" validate:"required,min=5,max=1000"`
	Rating     int    `json:"rating" validate:"gte=1,lte=5"`
}

// Validate normalizes raw and checks it. NUL characters are removed and
// invalid UTF-8 replaced before any rule runs. Rules apply in order and the first
// failure wins: non-empty text, minimum length, truncation to
// MaxReviewLength, rating in range. Failures are 400 AppErrors with code
// VALIDATION_ERROR.
func Validate(raw RawSubmission) (Submission, error) {
	sub := Submission{
		UserReview: Truncate(strings.TrimSpace(storableText(raw.UserReview)), MaxReviewLength),
	}
	if rating, ok := ParseRating(raw.Rating); ok {
		sub.Rating = rating
	}

	err := validator.Validate(sub)
	if err == nil {
		return sub, nil
	}

	var vErr *validator.ValidationError
	if !errors.As(err, &vErr) {
		return Submission{}, err
	}
	switch vErr.FailedTag("user_review") {
	case "required":
		return Submission{}, apperrors.Validation(MsgReviewRequired)
	case "min":
		return Submission{}, apperrors.Validation(MsgTooShort)
	}
	return Submission{}, apperrors.Validation(MsgInvalidRating)
}

// storableText drops NUL characters and replaces invalid UTF-8, neither of
// which a PostgreSQL text column accepts.
func storableText(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}

// Truncate cuts s to at most n code points.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// ParseRating accepts an integral JSON number (4 or 4.0) or a string
// holding one ("4", " 4 "). Anything else is rejected.
func ParseRating(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(text)
	} else if raw[0] != '-' && (raw[0] < '0' || raw[0] > '9') {
		return 0, false
	}

	if n, err := strconv.Atoi(text); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
