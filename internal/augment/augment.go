// Package augment generates the summary, reply and recommended actions
// attached to every accepted review.
package augment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/reviewfeed/internal/domain"
	"github.com/utafrali/reviewfeed/pkg/tracing"
)

// ErrIncomplete is returned when a provider answers with a blank field.
var ErrIncomplete = errors.New("augmentation incomplete")

// Augmenter produces the generated text for one review. Implementations
// must be safe for concurrent use.
type Augmenter interface {
	Augment(ctx context.Context, rating int, text string) (domain.Augmentation, error)
}

var (
	augmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "review_augmentation_duration_seconds",
			Help:    "Time spent generating review augmentation, by provider and outcome.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider", "outcome"},
	)

	augmentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_augmentation_failures_total",
			Help: "Total number of failed review augmentations, by provider.",
		},
		[]string{"provider"},
	)
)

// Instrumented wraps an Augmenter with a span, metrics and a completeness
// check.
type Instrumented struct {
	next     Augmenter
	provider string
	tracer   trace.Tracer
}

// Instrument wraps next. provider labels spans and metrics.
func Instrument(provider string, next Augmenter) *Instrumented {
	return &Instrumented{
		next:     next,
		provider: provider,
		tracer:   tracing.Tracer("augment"),
	}
}

// Provider returns the provider name.
func (i *Instrumented) Provider() string { return i.provider }

// Augment calls the wrapped provider. A result with any blank field is
// reported as ErrIncomplete.
func (i *Instrumented) Augment(ctx context.Context, rating int, text string) (domain.Augmentation, error) {
	ctx, span := i.tracer.Start(ctx, "augment."+i.provider,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("augment.provider", i.provider),
			attribute.Int("review.rating", rating),
			attribute.Int("review.length", len(text)),
		),
	)
	defer span.End()

	start := time.Now()
	aug, err := i.next.Augment(ctx, rating, text)
	if err == nil && !aug.Complete() {
		err = fmt.Errorf("%s: %w", i.provider, ErrIncomplete)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		augmentFailures.WithLabelValues(i.provider).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	augmentDuration.WithLabelValues(i.provider, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		return domain.Augmentation{}, err
	}
	return aug, nil
}
