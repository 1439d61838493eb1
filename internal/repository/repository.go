package repository

import (
	"context"

	"github.com/utafrali/reviewfeed/internal/domain"
)

// ReviewRepository defines durable storage for accepted reviews.
type ReviewRepository interface {
	// Append assigns the next id and created_at to review, stores it and
	// folds its rating into the durable rollup. Ids start at 1 and increase
	// by one with no gaps. On error nothing is stored.
	Append(ctx context.Context, review *domain.Review) error

	// List returns up to limit reviews, newest first.
	List(ctx context.Context, limit int) ([]domain.Review, error)

	// Count returns the number of stored reviews.
	Count(ctx context.Context) (int64, error)

	// Page returns up to limit reviews, newest first, and the number of
	// stored reviews, both read from one consistent view of the store.
	Page(ctx context.Context, limit int) ([]domain.Review, int64, error)

	// Stats returns the durable rollup.
	Stats(ctx context.Context) (domain.Rollup, error)
}
