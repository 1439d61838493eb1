// Package memory is a process-local review store for development and tests.
// Contents are lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/utafrali/reviewfeed/internal/domain"
)

// ReviewRepository implements repository.ReviewRepository in memory.
type ReviewRepository struct {
	mu      sync.RWMutex
	reviews []domain.Review
	rollup  domain.Rollup
	now     func() time.Time
}

// NewReviewRepository creates an empty in-memory repository.
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{now: func() time.Time { return time.Now().UTC() }}
}

// Append stores review with the next id.
func (r *ReviewRepository) Append(ctx context.Context, review *domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	review.ID = int64(len(r.reviews)) + 1
	review.CreatedAt = r.now()
	r.reviews = append(r.reviews, *review)
	r.rollup.Add(review.Rating)
	return nil
}

// List returns up to limit reviews, newest first.
func (r *ReviewRepository) List(ctx context.Context, limit int) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newest(limit), nil
}

// Page returns List and Count under one read lock.
func (r *ReviewRepository) Page(ctx context.Context, limit int) ([]domain.Review, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.newest(limit), int64(len(r.reviews)), nil
}

// newest must be called with mu held.
func (r *ReviewRepository) newest(limit int) []domain.Review {
	n := min(max(limit, 0), len(r.reviews))
	out := make([]domain.Review, 0, n)
	for i := len(r.reviews) - 1; i >= len(r.reviews)-n; i-- {
		out = append(out, r.reviews[i])
	}
	return out
}

// Count returns the number of stored reviews.
func (r *ReviewRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.reviews)), nil
}

// Stats returns the rollup of every stored review.
func (r *ReviewRepository) Stats(ctx context.Context) (domain.Rollup, error) {
	if err := ctx.Err(); err != nil {
		return domain.Rollup{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rollup, nil
}
