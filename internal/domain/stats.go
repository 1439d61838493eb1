package domain

import (
	"math"
	"strconv"
)

// Rollup is the exact integer form of the review statistics. Stores persist
// it and the aggregator folds ratings into it.
type Rollup struct {
	Total  int64
	Sum    int64
	Counts [MaxRating]int64 // Counts[r-1] is the number of r-star reviews
}

// Add folds one rating into the rollup. Out-of-range ratings are ignored.
func (r *Rollup) Add(rating int) {
	if rating < MinRating || rating > MaxRating {
		return
	}
	r.Total++
	r.Sum += int64(rating)
	r.Counts[rating-1]++
}

// Consistent reports whether Total and Sum agree with the histogram.
func (r Rollup) Consistent() bool {
	var total, sum int64
	for i, c := range r.Counts {
		total += c
		sum += c * int64(i+1)
	}
	return total == r.Total && sum == r.Sum
}

// Average returns the exact mean rating, or 0 for an empty rollup.
func (r Rollup) Average() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Sum) / float64(r.Total)
}

// Snapshot converts the rollup to its wire form.
func (r Rollup) Snapshot() StatsSnapshot {
	dist := make(map[string]int64, MaxRating)
	for i, c := range r.Counts {
		dist[strconv.Itoa(i+1)] = c
	}
	return StatsSnapshot{
		TotalReviews:       r.Total,
		AvgRating:          math.Round(r.Average()*100) / 100,
		RatingDistribution: dist,
	}
}

// RollupOf computes a rollup from scratch.
func RollupOf(reviews []Review) Rollup {
	var r Rollup
	for _, rv := range reviews {
		r.Add(rv.Rating)
	}
	return r
}

// StatsSnapshot is the dashboard view of the rollup. RatingDistribution
// always holds the keys "1" through "5".
type StatsSnapshot struct {
	TotalReviews       int64            `json:"total_reviews"`
	AvgRating          float64          `json:"avg_rating"`
	RatingDistribution map[string]int64 `json:"rating_distribution"`
}
