// Package stats keeps the running review rollup served to the dashboard.
package stats

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/reviewfeed/internal/domain"
)

var (
	reviewsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reviews_total",
		Help: "Number of accepted reviews.",
	})

	reviewsAverageRating = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reviews_average_rating",
		Help: "Mean rating over all accepted reviews.",
	})

	reviewsByRating = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reviews_by_rating",
		Help: "Number of accepted reviews per star rating.",
	}, []string{"rating"})
)

// Aggregator holds the rollup in memory. Update and Snapshot are O(1) and
// safe for concurrent use; the caller serializes Update with the store
// append so snapshots reflect a prefix of committed reviews.
type Aggregator struct {
	mu     sync.RWMutex
	rollup domain.Rollup
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	a := &Aggregator{}
	a.publish(a.rollup)
	return a
}

// Update folds one accepted rating into the rollup.
func (a *Aggregator) Update(rating int) {
	a.mu.Lock()
	a.rollup.Add(rating)
	r := a.rollup
	a.mu.Unlock()

	a.publish(r)
}

// Rebuild replaces the rollup, typically with the store's durable copy at
// startup.
func (a *Aggregator) Rebuild(r domain.Rollup) {
	a.mu.Lock()
	a.rollup = r
	a.mu.Unlock()

	a.publish(r)
}

// Rollup returns a copy of the exact rollup.
func (a *Aggregator) Rollup() domain.Rollup {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rollup
}

// Snapshot returns the current statistics in wire form.
func (a *Aggregator) Snapshot() domain.StatsSnapshot {
	return a.Rollup().Snapshot()
}

func (a *Aggregator) publish(r domain.Rollup) {
	reviewsTotal.Set(float64(r.Total))
	reviewsAverageRating.Set(r.Average())
	for i, c := range r.Counts {
		reviewsByRating.WithLabelValues(strconv.Itoa(i + 1)).Set(float64(c))
	}
}
