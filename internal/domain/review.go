package domain

import (
	"strings"
	"time"
)

// Review is an accepted, augmented submission. It is never mutated after
// the store assigns ID and CreatedAt.
type Review struct {
	ID                 int64     `json:"id"`
	Rating             int       `json:"rating"`
	UserReview         string    `json:"user_review"`
	AISummary          string    `json:"ai_summary"`
	AIResponse         string    `json:"ai_response"`
	RecommendedActions string    `json:"recommended_actions"`
	CreatedAt          time.Time `json:"created_at"`
}

// Augmentation is the generated text attached to a review.
type Augmentation struct {
	Summary  string
	Response string
	Actions  string
}

// Complete reports whether every generated field carries non-blank text.
func (a Augmentation) Complete() bool {
	return strings.TrimSpace(a.Summary) != "" &&
		strings.TrimSpace(a.Response) != "" &&
		strings.TrimSpace(a.Actions) != ""
}

// NewReview builds an unsaved review from a validated submission and its
// augmentation. ID and CreatedAt are left for the store to assign.
func NewReview(sub Submission, aug Augmentation) *Review {
	return &Review{
		Rating:             sub.Rating,
		UserReview:         sub.UserReview,
		AISummary:          strings.TrimSpace(aug.Summary),
		AIResponse:         strings.TrimSpace(aug.Response),
		RecommendedActions: strings.TrimSpace(aug.Actions),
	}
}
