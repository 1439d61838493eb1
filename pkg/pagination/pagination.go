package pagination

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/utafrali/reviewfeed/pkg/errors"
)

// Bounds are the default and maximum page sizes of a limit-bounded list endpoint.
type Bounds struct {
	Default int
	Max     int
}

// DefaultBounds returns the bounds used by the review feed.
func DefaultBounds() Bounds {
	return Bounds{Default: 10, Max: 50}
}

// LimitFromRequest reads the "limit" query parameter. A missing or empty
// value yields b.Default. A non-numeric or out-of-range value is rejected
// with a 400 AppError rather than silently clamped.
func LimitFromRequest(r *http.Request, b Bounds) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return b.Default, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput("limit must be an integer")
	}
	if v < 1 || v > b.Max {
		return 0, apperrors.InvalidInput(fmt.Sprintf("limit must be between 1 and %d", b.Max))
	}
	return v, nil
}
