package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/reviewfeed/internal/augment"
	"github.com/utafrali/reviewfeed/internal/augment/template"
	"github.com/utafrali/reviewfeed/internal/domain"
	"github.com/utafrali/reviewfeed/internal/repository"
	"github.com/utafrali/reviewfeed/internal/repository/memory"
	"github.com/utafrali/reviewfeed/internal/service"
	"github.com/utafrali/reviewfeed/internal/stats"
	"github.com/utafrali/reviewfeed/pkg/health"
	"github.com/utafrali/reviewfeed/pkg/httputil"
	"github.com/utafrali/reviewfeed/pkg/middleware"
)

// ============================================================================
// Test helpers
// ============================================================================

type failingAugmenter struct{}

func (failingAugmenter) Augment(context.Context, int, string) (domain.Augmentation, error) {
	return domain.Augmentation{}, errors.New("model overloaded")
}

type brokenStore struct {
	*memory.ReviewRepository
}

func (brokenStore) Append(context.Context, *domain.Review) error {
	return errors.New("disk full")
}

func (brokenStore) List(context.Context, int) ([]domain.Review, error) {
	return nil, errors.New("disk full")
}

func (brokenStore) Page(context.Context, int) ([]domain.Review, int64, error) {
	return nil, 0, errors.New("disk full")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	handler http.Handler
	svc     *service.ReviewService
}

func newTestServer(t *testing.T, repo repository.ReviewRepository, augmenter augment.Augmenter, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	if repo == nil {
		repo = memory.NewReviewRepository()
	}
	if augmenter == nil {
		augmenter = template.New()
	}
	logger := discardLogger()
	svc := service.NewReviewService(repo, augmenter, stats.NewAggregator(), nil, logger, service.DefaultOptions())
	h := NewRouter(svc, health.NewHandler(ServiceName), RouterConfig{SubmitLimiter: limiter}, logger)
	return &testServer{handler: h, svc: svc}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ============================================================================
// POST /api/reviews
// ============================================================================

func TestSubmit_Created(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	rec := srv.do(t, http.MethodPost, "/api/reviews", `{"rating":5,"user_review":"Great service, loved it!"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(middleware.CorrelationIDHeader))

	var rv domain.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rv))
	assert.Equal(t, int64(1), rv.ID)
	assert.Equal(t, 5, rv.Rating)
	assert.Equal(t, "Great service, loved it!", rv.UserReview)
	assert.NotEmpty(t, rv.AISummary)
	assert.NotEmpty(t, rv.AIResponse)
	assert.NotEmpty(t, rv.RecommendedActions)
}

func TestSubmit_RatingAsString(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	rec := srv.do(t, http.MethodPost, "/api/reviews", `{"rating":"4","user_review":"Solid experience"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rating":4`)
}

func TestSubmit_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		code   string
		detail string
	}{
		{"too short", `{"rating":3,"user_review":"ok"}`, "VALIDATION_ERROR", domain.MsgTooShort},
		{"missing review", `{"rating":3}`, "VALIDATION_ERROR", domain.MsgReviewRequired},
		{"rating out of range", `{"rating":6,"user_review":"Too high rating test"}`, "VALIDATION_ERROR", domain.MsgInvalidRating},
		{"fractional rating", `{"rating":4.5,"user_review":"Somewhere in between"}`, "VALIDATION_ERROR", domain.MsgInvalidRating},
		{"malformed json", `{"rating":`, "INVALID_INPUT", "invalid request body"},
		{"trailing data", `{"rating":3,"user_review":"fine enough"}{}`, "INVALID_INPUT", "request body must contain a single JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil, nil, nil)

			rec := srv.do(t, http.MethodPost, "/api/reviews", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.detail, resp.Detail)
			assert.NotEmpty(t, resp.RequestID)
			assert.Equal(t, int64(0), srv.svc.Stats().TotalReviews)
		})
	}
}

func TestSubmit_EmptyBody(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", http.NoBody)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
}

func TestSubmit_OversizedBody(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	body := `{"rating":3,"user_review":"` + strings.Repeat("a", int(httputil.MaxBodyBytes)) + `"}`

	rec := srv.do(t, http.MethodPost, "/api/reviews", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Detail, "must not exceed")
}

func TestSubmit_AugmentationUnavailable(t *testing.T) {
	srv := newTestServer(t, nil, failingAugmenter{}, nil)

	rec := srv.do(t, http.MethodPost, "/api/reviews", `{"rating":2,"user_review":"Slow delivery again"}`)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, service.CodeAugmentationUnavailable, resp.Code)
	assert.NotContains(t, resp.Detail, "model overloaded")
	assert.Equal(t, int64(0), srv.svc.Stats().TotalReviews)
}

func TestSubmit_StorageFailureHidesCause(t *testing.T) {
	srv := newTestServer(t, brokenStore{memory.NewReviewRepository()}, nil, nil)

	rec := srv.do(t, http.MethodPost, "/api/reviews", `{"rating":4,"user_review":"Nice and quick"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
	assert.Equal(t, "an internal error occurred", resp.Detail)
	assert.NotContains(t, rec.Body.String(), "disk full")
}

func TestSubmit_RateLimited(t *testing.T) {
	srv := newTestServer(t, nil, nil, middleware.NewRateLimiter(0.001, 2, discardLogger()))
	body := `{"rating":3,"user_review":"Average at best"}`

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/reviews", body).Code)
	}

	rec := srv.do(t, http.MethodPost, "/api/reviews", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)

	// Reads are not throttled.
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/reviews", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/admin/stats", "").Code)
}

// ============================================================================
// GET /api/reviews
// ============================================================================

func TestList_NewestFirstWithDefaultLimit(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	for i := 0; i < 12; i++ {
		require.Equal(t, http.StatusCreated,
			srv.do(t, http.MethodPost, "/api/reviews", `{"rating":4,"user_review":"Review body text"}`).Code)
	}

	rec := srv.do(t, http.MethodGet, "/api/reviews", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var resp httputil.ListResponse[domain.Review]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.Total)
	assert.Equal(t, 10, resp.Limit)
	require.Len(t, resp.Data, 10)
	assert.Equal(t, int64(12), resp.Data[0].ID)
	assert.Equal(t, int64(3), resp.Data[9].ID)
}

func TestList_ExplicitLimitAndEmptyStore(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	rec := srv.do(t, http.MethodGet, "/api/reviews?limit=50", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[],"total":0,"limit":50}`, rec.Body.String())
}

func TestList_InvalidLimit(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	for _, q := range []string{"abc", "0", "51", "-3"} {
		rec := srv.do(t, http.MethodGet, "/api/reviews?limit="+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", q)
		assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
	}
}

func TestList_StorageFailure(t *testing.T) {
	srv := newTestServer(t, brokenStore{memory.NewReviewRepository()}, nil, nil)

	rec := srv.do(t, http.MethodGet, "/api/reviews", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ============================================================================
// GET /api/admin/stats
// ============================================================================

func TestStats(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	rec := srv.do(t, http.MethodGet, "/api/admin/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"total_reviews":0,"avg_rating":0,"rating_distribution":{"1":0,"2":0,"3":0,"4":0,"5":0}}`,
		rec.Body.String())

	for _, rating := range []string{"5", "4", "4"} {
		require.Equal(t, http.StatusCreated,
			srv.do(t, http.MethodPost, "/api/reviews", `{"rating":`+rating+`,"user_review":"Counting ratings"}`).Code)
	}

	rec = srv.do(t, http.MethodGet, "/api/admin/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var snap domain.StatsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(3), snap.TotalReviews)
	assert.Equal(t, 4.33, snap.AvgRating)
	assert.Equal(t, int64(2), snap.RatingDistribution["4"])
	assert.Equal(t, int64(1), snap.RatingDistribution["5"])
}

// ============================================================================
// Probes and CORS
// ============================================================================

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	rec := srv.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"review-service"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health/ready", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	srv.do(t, http.MethodGet, "/api/admin/stats", "")

	rec := srv.do(t, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/reviews", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPprofDeniedOutsideAllowlist(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	rec := srv.do(t, http.MethodGet, "/debug/pprof/", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
