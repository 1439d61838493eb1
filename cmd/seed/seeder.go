package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/reviewfeed/internal/domain"
	"github.com/utafrali/reviewfeed/pkg/httpclient"
)

// samples holds review texts per star rating, index 0 for one star.
var samples = [domain.MaxRating][]string{
	{
		"Order arrived broken and nobody answered my emails.",
		"Waited an hour, food was cold. Never again.",
		"The app kept crashing during checkout.",
	},
	{
		"Slow delivery and the packaging was damaged.",
		"Staff were polite but the product did not work.",
		"Overpriced for what you get.",
	},
	{
		"It was fine, nothing special.",
		"Average experience, delivery took a bit long.",
		"Decent quality, but the instructions were unclear.",
	},
	{
		"Good service, would order again.",
		"Quick delivery and friendly support.",
		"Nice product, minor issues with the fit.",
	},
	{
		"Great service, loved it!",
		"Absolutely perfect, exceeded my expectations.",
		"Fast, friendly and flawless. Five stars.",
	},
}

// result summarizes a seeding run.
type result struct {
	Submitted int
	Stats     domain.StatsSnapshot
}

// doer sends one HTTP request.
type doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

type seeder struct {
	baseURL string
	client  doer
	logger  *slog.Logger
}

// newSeeder targets the service at baseURL. A nil client selects the
// retrying client, so 429 and 503 responses are resubmitted.
func newSeeder(baseURL string, client doer, logger *slog.Logger) *seeder {
	if client == nil {
		client = httpclient.New(httpclient.DefaultConfig())
	}
	return &seeder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// Run submits count reviews with at most concurrency in flight, then reads
// the stats. Ratings and texts are drawn from samples using seed.
func (s *seeder) Run(ctx context.Context, count, concurrency int, seed int64) (result, error) {
	if count < 0 {
		return result{}, fmt.Errorf("count must not be negative, got %d", count)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	rng := rand.New(rand.NewSource(seed))
	bodies := make([][]byte, count)
	for i := range bodies {
		rating := rng.Intn(domain.MaxRating) + 1
		texts := samples[rating-1]
		b, err := json.Marshal(map[string]any{
			"rating":      rating,
			"user_review": texts[rng.Intn(len(texts))],
		})
		if err != nil {
			return result{}, fmt.Errorf("marshal submission: %w", err)
		}
		bodies[i] = b
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, body := range bodies {
		g.Go(func() error {
			var rv domain.Review
			if err := s.call(gctx, http.MethodPost, "/api/reviews", body, http.StatusCreated, &rv); err != nil {
				return fmt.Errorf("submission %d: %w", i+1, err)
			}
			s.logger.Debug("review submitted", slog.Int64("review_id", rv.ID), slog.Int("rating", rv.Rating))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result{}, err
	}

	res := result{Submitted: count}
	if err := s.call(ctx, http.MethodGet, "/api/admin/stats", nil, http.StatusOK, &res.Stats); err != nil {
		return result{}, fmt.Errorf("read stats: %w", err)
	}
	return res, nil
}

func (s *seeder) call(ctx context.Context, method, path string, body []byte, want int, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return httpclient.ParseResponseError(resp, "review-service")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
