package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/reviewfeed/internal/domain"
	"github.com/utafrali/reviewfeed/pkg/database"
)

// Key layout. All keys share the {reviews} hash tag so the append script
// touches a single cluster slot.
const (
	seqKey       = "{reviews}:seq"
	indexKey     = "{reviews}:index"
	statsKey     = "{reviews}:stats"
	reviewPrefix = "{reviews}:review:"
)

// appendScript assigns the next id, stores the review hash, indexes it and
// updates the rollup hash as one atomic unit.
//
// KEYS: seq, index, stats. ARGV: review key prefix, rating, user_review,
// ai_summary, ai_response, recommended_actions, created_at (RFC 3339).
var appendScript = redis.NewScript(`
local id = redis.call('INCR', KEYS[1])
local key = ARGV[1] .. id
redis.call('HSET', key,
	'id', id,
	'rating', ARGV[2],
	'user_review', ARGV[3],
	'ai_summary', ARGV[4],
	'ai_response', ARGV[5],
	'recommended_actions', ARGV[6],
	'created_at', ARGV[7])
redis.call('ZADD', KEYS[2], id, id)
redis.call('HINCRBY', KEYS[3], 'total_reviews', 1)
redis.call('HINCRBY', KEYS[3], 'rating_sum', ARGV[2])
redis.call('HINCRBY', KEYS[3], 'count_' .. ARGV[2], 1)
return id
`)

// ReviewRepository implements repository.ReviewRepository using Redis.
type ReviewRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewReviewRepository creates a new Redis-backed review repository.
func NewReviewRepository(client *redis.Client) *ReviewRepository {
	return &ReviewRepository{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Append runs the append script.
func (r *ReviewRepository) Append(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemRedis, "AppendReview", "EVALSHA append")
	defer func() { end(err) }()

	createdAt := r.now()
	id, err := appendScript.Run(ctx, r.client,
		[]string{seqKey, indexKey, statsKey},
		reviewPrefix,
		review.Rating,
		review.UserReview,
		review.AISummary,
		review.AIResponse,
		review.RecommendedActions,
		createdAt.Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return fmt.Errorf("redis append review: %w", err)
	}

	review.ID = id
	review.CreatedAt = createdAt
	return nil
}

// List reads the newest limit ids from the index and fetches their hashes
// in one pipeline.
func (r *ReviewRepository) List(ctx context.Context, limit int) (_ []domain.Review, err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemRedis, "ListReviews", "ZREVRANGE + HGETALL")
	defer func() { end(err) }()

	if limit <= 0 {
		return []domain.Review{}, nil
	}

	ids, err := r.client.ZRevRange(ctx, indexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list review ids: %w", err)
	}
	return r.fetch(ctx, ids)
}

// Page reads the newest ids and total_reviews in one MULTI/EXEC block, then
// fetches the hashes. Review hashes are never modified after the append
// script writes them, so the page matches the total.
func (r *ReviewRepository) Page(ctx context.Context, limit int) (_ []domain.Review, total int64, err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemRedis, "PageReviews", "MULTI ZREVRANGE HGET EXEC + HGETALL")
	defer func() { end(err) }()

	var (
		idsCmd   *redis.StringSliceCmd
		totalCmd *redis.StringCmd
	)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if limit > 0 {
			idsCmd = p.ZRevRange(ctx, indexKey, 0, int64(limit-1))
		}
		totalCmd = p.HGet(ctx, statsKey, "total_reviews")
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("redis page reviews: %w", err)
	}

	total, err = totalCmd.Int64()
	switch {
	case errors.Is(err, redis.Nil):
		total = 0
	case err != nil:
		return nil, 0, fmt.Errorf("redis count reviews: %w", err)
	}

	if idsCmd == nil {
		return []domain.Review{}, total, nil
	}
	if err = idsCmd.Err(); err != nil {
		return nil, 0, fmt.Errorf("redis list review ids: %w", err)
	}
	reviews, err := r.fetch(ctx, idsCmd.Val())
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (r *ReviewRepository) fetch(ctx context.Context, ids []string) ([]domain.Review, error) {
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	if len(ids) > 0 {
		_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
			for i, id := range ids {
				cmds[i] = p.HGetAll(ctx, reviewPrefix+id)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("redis fetch reviews: %w", err)
		}
	}

	reviews := make([]domain.Review, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			return nil, fmt.Errorf("redis review %s: indexed but missing", ids[i])
		}
		rv, err := decodeReview(fields)
		if err != nil {
			return nil, fmt.Errorf("decode review %s: %w", ids[i], err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, nil
}

// Count returns total_reviews from the stats hash.
func (r *ReviewRepository) Count(ctx context.Context) (n int64, err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemRedis, "CountReviews", "HGET total_reviews")
	defer func() { end(err) }()

	n, err = r.client.HGet(ctx, statsKey, "total_reviews").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis count reviews: %w", err)
	}
	return n, nil
}

// Stats reads the rollup hash. A missing hash is an empty rollup.
func (r *ReviewRepository) Stats(ctx context.Context) (_ domain.Rollup, err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemRedis, "ReviewStats", "HGETALL stats")
	defer func() { end(err) }()

	fields, err := r.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return domain.Rollup{}, fmt.Errorf("redis read review stats: %w", err)
	}

	var s domain.Rollup
	if s.Total, err = intField(fields, "total_reviews"); err != nil {
		return domain.Rollup{}, err
	}
	if s.Sum, err = intField(fields, "rating_sum"); err != nil {
		return domain.Rollup{}, err
	}
	for i := range s.Counts {
		if s.Counts[i], err = intField(fields, "count_"+strconv.Itoa(i+1)); err != nil {
			return domain.Rollup{}, err
		}
	}
	return s, nil
}

func intField(fields map[string]string, name string) (int64, error) {
	v, ok := fields[name]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return n, nil
}

func decodeReview(fields map[string]string) (domain.Review, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return domain.Review{}, fmt.Errorf("parse id: %w", err)
	}
	rating, err := strconv.Atoi(fields["rating"])
	if err != nil {
		return domain.Review{}, fmt.Errorf("parse rating: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return domain.Review{}, fmt.Errorf("parse created_at: %w", err)
	}

	return domain.Review{
		ID:                 id,
		Rating:             rating,
		UserReview:         fields["user_review"],
		AISummary:          fields["ai_summary"],
		AIResponse:         fields["ai_response"],
		RecommendedActions: fields["recommended_actions"],
		CreatedAt:          createdAt.UTC(),
	}, nil
}
