package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviewfeed/internal/augment/template"
	handler "github.com/utafrali/reviewfeed/internal/handler/http"
	"github.com/utafrali/reviewfeed/internal/repository/memory"
	"github.com/utafrali/reviewfeed/internal/service"
	"github.com/utafrali/reviewfeed/internal/stats"
	"github.com/utafrali/reviewfeed/pkg/health"
	"github.com/utafrali/reviewfeed/pkg/httpclient"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastClient(hc *http.Client) *httpclient.Client {
	return httpclient.NewWithHTTPClient(hc, httpclient.Config{
		Timeout:      time.Second,
		MaxRetries:   2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
}

func reviewServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := quietLogger()
	svc := service.NewReviewService(memory.NewReviewRepository(), template.New(), stats.NewAggregator(), nil, logger, service.DefaultOptions())
	srv := httptest.NewServer(handler.NewRouter(svc, health.NewHandler(handler.ServiceName), handler.RouterConfig{}, logger))
	t.Cleanup(srv.Close)
	return srv
}

func TestSeeder_SubmitsAndReadsStats(t *testing.T) {
	srv := reviewServer(t)
	s := newSeeder(srv.URL+"/", fastClient(srv.Client()), quietLogger())

	res, err := s.Run(context.Background(), 25, 5, 42)

	require.NoError(t, err)
	assert.Equal(t, 25, res.Submitted)
	assert.Equal(t, int64(25), res.Stats.TotalReviews)

	var sum int64
	for _, c := range res.Stats.RatingDistribution {
		sum += c
	}
	assert.Equal(t, int64(25), sum)
	assert.GreaterOrEqual(t, res.Stats.AvgRating, 1.0)
	assert.LessOrEqual(t, res.Stats.AvgRating, 5.0)
}

func TestSeeder_DeterministicForSeed(t *testing.T) {
	a := reviewServer(t)
	b := reviewServer(t)

	resA, err := newSeeder(a.URL, fastClient(a.Client()), quietLogger()).Run(context.Background(), 10, 1, 7)
	require.NoError(t, err)
	resB, err := newSeeder(b.URL, fastClient(b.Client()), quietLogger()).Run(context.Background(), 10, 3, 7)
	require.NoError(t, err)

	assert.Equal(t, resA.Stats, resB.Stats)
}

func TestSeeder_RetriesUnavailable(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_, _ = io.WriteString(w, `{"total_reviews":1,"avg_rating":5,"rating_distribution":{"5":1}}`)
			return
		}
		if posts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"detail":"AI feedback timed out, please try again","code":"AUGMENTATION_UNAVAILABLE"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1,"rating":5}`)
	}))
	defer srv.Close()

	res, err := newSeeder(srv.URL, fastClient(srv.Client()), quietLogger()).Run(context.Background(), 1, 1, 1)

	require.NoError(t, err)
	assert.Equal(t, int32(2), posts.Load())
	assert.Equal(t, int64(1), res.Stats.TotalReviews)
}

func TestSeeder_RejectedSubmissionFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"too short","code":"VALIDATION_ERROR"}`)
	}))
	defer srv.Close()

	_, err := newSeeder(srv.URL, fastClient(srv.Client()), quietLogger()).Run(context.Background(), 3, 2, 1)

	require.Error(t, err)
	var upErr *httpclient.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusBadRequest, upErr.StatusCode)
}

func TestSeeder_NegativeCount(t *testing.T) {
	_, err := newSeeder("http://localhost", nil, quietLogger()).Run(context.Background(), -1, 1, 1)
	assert.ErrorContains(t, err, "must not be negative")
}

func TestSamples_AreValidSubmissions(t *testing.T) {
	for i, texts := range samples {
		for _, text := range texts {
			assert.GreaterOrEqual(t, len([]rune(text)), 5, "rating %d: %q", i+1, text)
		}
	}
}
