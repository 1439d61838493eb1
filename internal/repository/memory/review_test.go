package memory

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviewfeed/internal/domain"
	"github.com/utafrali/reviewfeed/internal/repository"
)

var _ repository.ReviewRepository = (*ReviewRepository)(nil)

func newReview(rating int) *domain.Review {
	return &domain.Review{
		Rating:             rating,
		UserReview:         "A review long enough",
		AISummary:          "summary",
		AIResponse:         "response",
		RecommendedActions: "actions",
	}
}

func TestAppend_AssignsSequentialIDs(t *testing.T) {
	repo := NewReviewRepository()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rv := newReview(i)
		require.NoError(t, repo.Append(ctx, rv))
		assert.Equal(t, int64(i), rv.ID)
		assert.False(t, rv.CreatedAt.IsZero())
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestList_NewestFirstWithinLimit(t *testing.T) {
	repo := NewReviewRepository()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, newReview(3)))
	}

	got, err := repo.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{5, 4, 3}, []int64{got[0].ID, got[1].ID, got[2].ID})

	all, err := repo.List(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	none, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestList_EmptyStore(t *testing.T) {
	got, err := NewReviewRepository().List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPage_ListAndTotalAgree(t *testing.T) {
	repo := NewReviewRepository()
	ctx := context.Background()
	for _, rating := range []int{2, 4, 5} {
		require.NoError(t, repo.Append(ctx, newReview(rating)))
	}

	got, total, err := repo.Page(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)

	none, total, err := repo.Page(ctx, -1)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, int64(3), total)
}

func TestStats_TracksAppends(t *testing.T) {
	repo := NewReviewRepository()
	ctx := context.Background()
	for _, rating := range []int{5, 1, 5} {
		require.NoError(t, repo.Append(ctx, newReview(rating)))
	}

	r, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.Total)
	assert.Equal(t, int64(11), r.Sum)
	assert.True(t, r.Consistent())
}

func TestAppend_CanceledContext(t *testing.T) {
	repo := NewReviewRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rv := newReview(4)
	assert.ErrorIs(t, repo.Append(ctx, rv), context.Canceled)
	assert.Zero(t, rv.ID)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAppend_ConcurrentIDsAreGapFree(t *testing.T) {
	repo := NewReviewRepository()
	const n = 200

	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rv := newReview(i%5 + 1)
			assert.NoError(t, repo.Append(context.Background(), rv))
			ids[i] = rv.ID
		}(i)
	}
	wg.Wait()

	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}
}
