package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/reviewfeed/internal/domain"
	"github.com/utafrali/reviewfeed/pkg/database"
)

const (
	lockStatsSQL = `SELECT total_reviews FROM review_stats WHERE id = 1 FOR UPDATE`

	insertReviewSQL = `
		INSERT INTO reviews (id, rating, user_review, ai_summary, ai_response, recommended_actions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	incrementStatsSQL = `
		UPDATE review_stats SET
			total_reviews = total_reviews + 1,
			rating_sum    = rating_sum + $1,
			count_1       = count_1 + CASE WHEN $1 = 1 THEN 1 ELSE 0 END,
			count_2       = count_2 + CASE WHEN $1 = 2 THEN 1 ELSE 0 END,
			count_3       = count_3 + CASE WHEN $1 = 3 THEN 1 ELSE 0 END,
			count_4       = count_4 + CASE WHEN $1 = 4 THEN 1 ELSE 0 END,
			count_5       = count_5 + CASE WHEN $1 = 5 THEN 1 ELSE 0 END
		WHERE id = 1`

	listReviewsSQL = `
		SELECT id, rating, user_review, ai_summary, ai_response, recommended_actions, created_at
		FROM reviews
		ORDER BY id DESC
		LIMIT $1`

	countReviewsSQL = `SELECT total_reviews FROM review_stats WHERE id = 1`

	selectStatsSQL = `
		SELECT total_reviews, rating_sum, count_1, count_2, count_3, count_4, count_5
		FROM review_stats
		WHERE id = 1`
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
// Id assignment is serialized by the review_stats row lock, so several
// service instances may share one database.
type ReviewRepository struct {
	pool database.DBTX
	now  func() time.Time
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Append inserts review and updates the rollup in one transaction.
func (r *ReviewRepository) Append(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, "AppendReview", insertReviewSQL)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var total int64
	if err := tx.QueryRow(ctx, lockStatsSQL).Scan(&total); err != nil {
		return fmt.Errorf("lock review stats: %w", err)
	}

	id := total + 1
	createdAt := r.now()

	if _, err := tx.Exec(ctx, insertReviewSQL,
		id,
		review.Rating,
		review.UserReview,
		review.AISummary,
		review.AIResponse,
		review.RecommendedActions,
		createdAt,
	); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	if _, err := tx.Exec(ctx, incrementStatsSQL, review.Rating); err != nil {
		return fmt.Errorf("update review stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append tx: %w", err)
	}

	review.ID = id
	review.CreatedAt = createdAt
	return nil
}

// List returns up to limit reviews ordered by id descending.
func (r *ReviewRepository) List(ctx context.Context, limit int) (_ []domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, "ListReviews", listReviewsSQL)
	defer func() { end(err) }()

	return listReviews(ctx, r.pool, limit)
}

// Count returns the number of stored reviews from the rollup row.
func (r *ReviewRepository) Count(ctx context.Context) (n int64, err error) {
	ctx, end := database.TraceQuery(ctx, "CountReviews", countReviewsSQL)
	defer func() { end(err) }()

	return countReviews(ctx, r.pool)
}

// Page reads the newest limit reviews and the total inside one read-only
// repeatable-read transaction. Both come from the same snapshot.
func (r *ReviewRepository) Page(ctx context.Context, limit int) (_ []domain.Review, total int64, err error) {
	ctx, end := database.TraceQuery(ctx, "PageReviews", listReviewsSQL)
	defer func() { end(err) }()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("begin page tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if total, err = countReviews(ctx, tx); err != nil {
		return nil, 0, err
	}
	reviews, err := listReviews(ctx, tx, limit)
	if err != nil {
		return nil, 0, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit page tx: %w", err)
	}
	return reviews, total, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func listReviews(ctx context.Context, q querier, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		return []domain.Review{}, nil
	}

	rows, err := q.Query(ctx, listReviewsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0, limit)
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.Rating,
			&rv.UserReview,
			&rv.AISummary,
			&rv.AIResponse,
			&rv.RecommendedActions,
			&rv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		rv.CreatedAt = rv.CreatedAt.UTC()
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

func countReviews(ctx context.Context, q querier) (n int64, err error) {
	if err := q.QueryRow(ctx, countReviewsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

// Stats reads the rollup row.
func (r *ReviewRepository) Stats(ctx context.Context) (_ domain.Rollup, err error) {
	ctx, end := database.TraceQuery(ctx, "ReviewStats", selectStatsSQL)
	defer func() { end(err) }()

	var s domain.Rollup
	if err := r.pool.QueryRow(ctx, selectStatsSQL).Scan(
		&s.Total,
		&s.Sum,
		&s.Counts[0],
		&s.Counts[1],
		&s.Counts[2],
		&s.Counts[3],
		&s.Counts[4],
	); err != nil {
		return domain.Rollup{}, fmt.Errorf("read review stats: %w", err)
	}
	return s, nil
}
