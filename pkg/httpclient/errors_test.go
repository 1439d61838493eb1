package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantMessage   string
		wantStatus    string
		wantTemporary bool
	}{
		{
			name:        "google structured",
			status:      http.StatusBadRequest,
			body:        `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`,
			wantMessage: "API key not valid",
			wantStatus:  "INVALID_ARGUMENT",
		},
		{
			name:          "quota exhausted",
			status:        http.StatusTooManyRequests,
			body:          `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`,
			wantMessage:   "Resource has been exhausted",
			wantStatus:    "RESOURCE_EXHAUSTED",
			wantTemporary: true,
		},
		{
			name:          "html gateway page",
			status:        http.StatusBadGateway,
			body:          "<html>bad gateway</html>",
			wantMessage:   "<html>bad gateway</html>",
			wantTemporary: true,
		},
		{
			name:        "null error field",
			status:      http.StatusForbidden,
			body:        `{"error":null}`,
			wantMessage: `{"error":null}`,
		},
		{
			name:   "empty body",
			status: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(makeResponse(tt.status, tt.body), "gemini")

			var upErr *UpstreamError
			require.True(t, errors.As(err, &upErr))
			assert.Equal(t, "gemini", upErr.Service)
			assert.Equal(t, tt.status, upErr.StatusCode)
			assert.Equal(t, tt.wantMessage, upErr.Message)
			assert.Equal(t, tt.wantStatus, upErr.Status)
			assert.Equal(t, tt.wantTemporary, upErr.Temporary())
			assert.Contains(t, err.Error(), "gemini returned")
		})
	}
}
