package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/utafrali/reviewfeed/internal/domain"
	pkgkafka "github.com/utafrali/reviewfeed/pkg/kafka"
	"github.com/utafrali/reviewfeed/pkg/logger"
)

// Event types and topics for review domain events.
const (
	EventReviewSubmitted = "review.submitted"

	AggregateTypeReview = "review"
	SourceReviewService = "review-service"
)

// TopicReviewSubmitted carries one event per accepted review.
var TopicReviewSubmitted = pkgkafka.Topic("review", "submitted")

// publisher is the part of *pkgkafka.Producer the review producer uses.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(kafka publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewSubmitted publishes a review.submitted event keyed by review
// id. The payload is the review itself.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review) error {
	id := strconv.FormatInt(review.ID, 10)

	event, err := pkgkafka.NewEvent(EventReviewSubmitted, id, AggregateTypeReview, SourceReviewService, review)
	if err != nil {
		return fmt.Errorf("create review.submitted event: %w", err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		event.WithCorrelationID(cid)
	}

	if err := p.kafka.Publish(ctx, TopicReviewSubmitted, event); err != nil {
		return fmt.Errorf("publish review.submitted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.submitted event",
		slog.Int64("review_id", review.ID),
		slog.Int("rating", review.Rating),
	)
	return nil
}

// Noop discards events. It is used when Kafka is disabled.
type Noop struct{}

// PublishReviewSubmitted does nothing.
func (Noop) PublishReviewSubmitted(context.Context, *domain.Review) error { return nil }
