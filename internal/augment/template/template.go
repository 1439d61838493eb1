// Package template is a deterministic augmentation provider. It needs no
// network access and returns canned text chosen by rating.
package template

import (
	"context"

	"github.com/utafrali/reviewfeed/internal/domain"
)

const summary = "Review provides customer feedback."

var responses = map[int]string{
	5: "Thank you so much for the wonderful 5-star review! We're thrilled you had such a great experience with us. Your positive feedback truly motivates our team!",
	4: "Thank you for your 4-star review! We're glad you enjoyed your experience. We'd love to hear what could make it even better!",
	3: "Thank you for your feedback. We appreciate you taking the time to share. We're always working to improve our service!",
	2: "Thank you for letting us know about your experience. We're sorry it wasn't quite what you expected. We'd like to make it right!",
	1: "We sincerely apologize that your experience fell short of expectations. Your feedback is important, and we'd like the opportunity to improve.",
}

// Provider implements augment.Augmenter with fixed copy.
type Provider struct{}

// New returns a template provider.
func New() *Provider {
	return &Provider{}
}

// Augment returns the canned texts for rating. It fails only when ctx is done.
func (p *Provider) Augment(ctx context.Context, rating int, _ string) (domain.Augmentation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Augmentation{}, err
	}
	return domain.Augmentation{
		Summary:  summary,
		Response: Response(rating),
		Actions:  Actions(rating),
	}, nil
}

// Response returns the reply for rating. Unknown ratings get the neutral reply.
func Response(rating int) string {
	if r, ok := responses[rating]; ok {
		return r
	}
	return responses[3]
}

// Actions returns the recommended actions for rating.
func Actions(rating int) string {
	switch {
	case rating >= 4:
		return "1. Share this feedback with the team to reinforce best practices. 2. Feature this positive review in marketing."
	case rating == 3:
		return "1. Identify specific pain points mentioned. 2. Create improvement plan and track progress."
	default:
		return "1. Contact customer immediately to resolve issues. 2. Implement corrective actions and follow up."
	}
}
