package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/utafrali/reviewfeed/internal/augment"
	"github.com/utafrali/reviewfeed/internal/domain"
	"github.com/utafrali/reviewfeed/internal/repository"
	"github.com/utafrali/reviewfeed/internal/stats"
	apperrors "github.com/utafrali/reviewfeed/pkg/errors"
)

// CodeAugmentationUnavailable is the error code returned when generated
// feedback could not be produced. Clients may resubmit.
const CodeAugmentationUnavailable = "AUGMENTATION_UNAVAILABLE"

// EventPublisher announces accepted reviews.
type EventPublisher interface {
	PublishReviewSubmitted(ctx context.Context, review *domain.Review) error
}

// Options tunes the review pipeline.
type Options struct {
	// AugmentTimeout bounds one augmentation call.
	AugmentTimeout time.Duration
	// PublishTimeout bounds the best-effort event publish.
	PublishTimeout time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		AugmentTimeout: 20 * time.Second,
		PublishTimeout: 3 * time.Second,
	}
}

// ReviewList is one page of the review feed.
type ReviewList struct {
	Reviews []domain.Review
	Total   int64
	Limit   int
}

// ReviewService runs the submission pipeline and serves the read side.
type ReviewService struct {
	repo      repository.ReviewRepository
	augmenter augment.Augmenter
	stats     *stats.Aggregator
	events    EventPublisher
	logger    *slog.Logger
	opts      Options

	// mu is the serialization point: store append and stats update happen
	// under it as one unit. Augmentation never runs while it is held.
	mu sync.Mutex
}

// NewReviewService creates a new review service. events may be nil.
func NewReviewService(
	repo repository.ReviewRepository,
	augmenter augment.Augmenter,
	agg *stats.Aggregator,
	events EventPublisher,
	logger *slog.Logger,
	opts Options,
) *ReviewService {
	if opts.AugmentTimeout <= 0 {
		opts.AugmentTimeout = DefaultOptions().AugmentTimeout
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultOptions().PublishTimeout
	}
	return &ReviewService{
		repo:      repo,
		augmenter: augmenter,
		stats:     agg,
		events:    events,
		logger:    logger,
		opts:      opts,
	}
}

// Submit validates, augments and stores a review, then updates the rollup.
// A failure at any stage leaves the store and the rollup untouched.
func (s *ReviewService) Submit(ctx context.Context, raw domain.RawSubmission) (*domain.Review, error) {
	sub, err := domain.Validate(raw)
	if err != nil {
		return nil, err
	}

	aug, err := s.augment(ctx, sub)
	if err != nil {
		return nil, err
	}

	review := domain.NewReview(sub, aug)
	if err := s.commit(ctx, review); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.Int64("review_id", review.ID),
		slog.Int("rating", review.Rating),
		slog.Int("length", utf8.RuneCountInString(review.UserReview)),
	)

	s.publish(ctx, review)
	return review, nil
}

func (s *ReviewService) augment(ctx context.Context, sub domain.Submission) (domain.Augmentation, error) {
	actx, cancel := context.WithTimeout(ctx, s.opts.AugmentTimeout)
	defer cancel()

	aug, err := s.augmenter.Augment(actx, sub.Rating, sub.UserReview)
	if err == nil && !aug.Complete() {
		err = augment.ErrIncomplete
	}
	if err == nil {
		return aug, nil
	}

	msg := "AI feedback is temporarily unavailable, please try again"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "AI feedback timed out, please try again"
	}
	return domain.Augmentation{}, apperrors.ServiceUnavailable(CodeAugmentationUnavailable, msg, err)
}

func (s *ReviewService) commit(ctx context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Append(ctx, review); err != nil {
		return fmt.Errorf("append review: %w", err)
	}
	s.stats.Update(review.Rating)
	return nil
}

func (s *ReviewService) publish(ctx context.Context, review *domain.Review) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PublishTimeout)
	defer cancel()

	if err := s.events.PublishReviewSubmitted(pctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review.submitted event",
			slog.Int64("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
}

// ListReviews returns up to limit reviews, newest first, with the total count.
func (s *ReviewService) ListReviews(ctx context.Context, limit int) (*ReviewList, error) {
	reviews, total, err := s.repo.Page(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return &ReviewList{Reviews: reviews, Total: total, Limit: limit}, nil
}

// Stats returns the current rollup snapshot.
func (s *ReviewService) Stats() domain.StatsSnapshot {
	return s.stats.Snapshot()
}

// RefreshStats replaces the in-memory rollup with the store's durable copy,
// picking up appends made by other instances sharing the store.
func (s *ReviewService) RefreshStats(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.repo.Stats(ctx)
	if err != nil {
		return fmt.Errorf("load review stats: %w", err)
	}
	if !r.Consistent() {
		return fmt.Errorf("load review stats: inconsistent rollup %+v", r)
	}
	s.stats.Rebuild(r)
	return nil
}

// RunStatsRefresh calls RefreshStats every interval until ctx is done.
func (s *ReviewService) RunStatsRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RefreshStats(ctx); err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "stats refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}
