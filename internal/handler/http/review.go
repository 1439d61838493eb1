package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/reviewfeed/internal/domain"
	"github.com/utafrali/reviewfeed/internal/service"
	"github.com/utafrali/reviewfeed/pkg/httputil"
	"github.com/utafrali/reviewfeed/pkg/pagination"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	bounds  pagination.Bounds
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		bounds:  pagination.DefaultBounds(),
		logger:  logger,
	}
}

// Submit handles POST /api/reviews
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.RawSubmission
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	review, err := h.service.Submit(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, review)
}

// List handles GET /api/reviews?limit=N
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := pagination.LimitFromRequest(r, h.bounds)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	list, err := h.service.ListReviews(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewListResponse(list.Reviews, int(list.Total), list.Limit))
}

// Stats handles GET /api/admin/stats
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Stats())
}
