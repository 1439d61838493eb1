package stats

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviewfeed/internal/domain"
)

func TestAggregator_Empty(t *testing.T) {
	a := NewAggregator()
	snap := a.Snapshot()

	assert.Equal(t, int64(0), snap.TotalReviews)
	assert.Equal(t, 0.0, snap.AvgRating)
	assert.Len(t, snap.RatingDistribution, 5)
}

func TestAggregator_Update(t *testing.T) {
	a := NewAggregator()
	a.Update(5)

	snap := a.Snapshot()
	assert.Equal(t, int64(1), snap.TotalReviews)
	assert.Equal(t, 5.0, snap.AvgRating)
	assert.Equal(t, int64(1), snap.RatingDistribution["5"])

	a.Update(2)
	snap = a.Snapshot()
	assert.Equal(t, int64(2), snap.TotalReviews)
	assert.Equal(t, 3.5, snap.AvgRating)
	assert.Equal(t, float64(2), testutil.ToFloat64(reviewsTotal))
	assert.Equal(t, 3.5, testutil.ToFloat64(reviewsAverageRating))
	assert.Equal(t, float64(1), testutil.ToFloat64(reviewsByRating.WithLabelValues("2")))
}

func TestAggregator_Rebuild(t *testing.T) {
	a := NewAggregator()
	a.Update(1)

	seed := domain.RollupOf([]domain.Review{{Rating: 4}, {Rating: 4}, {Rating: 3}})
	a.Rebuild(seed)

	assert.Equal(t, seed, a.Rollup())
	assert.Equal(t, int64(3), a.Snapshot().TotalReviews)
	assert.Equal(t, 3.67, a.Snapshot().AvgRating)
}

func TestAggregator_SnapshotIsACopy(t *testing.T) {
	a := NewAggregator()
	a.Update(3)

	snap := a.Snapshot()
	snap.RatingDistribution["3"] = 99

	assert.Equal(t, int64(1), a.Snapshot().RatingDistribution["3"])
}

func TestAggregator_ConcurrentUpdatesStayConsistent(t *testing.T) {
	a := NewAggregator()

	const writers, perWriter = 8, 250
	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers must never observe a rollup that disagrees with itself.
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
					if r := a.Rollup(); !r.Consistent() {
						t.Errorf("inconsistent rollup observed: %+v", r)
						return
					}
				}
			}
		}()
	}

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				a.Update((w+i)%5 + 1)
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	readers.Wait()

	r := a.Rollup()
	require.True(t, r.Consistent())
	assert.Equal(t, int64(writers*perWriter), r.Total)
	for _, c := range r.Counts {
		assert.Equal(t, int64(writers*perWriter/5), c)
	}
}
