package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// UpstreamError describes a non-2xx response from an external API.
type UpstreamError struct {
	Service    string
	StatusCode int
	Status     string
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s returned %d %s: %s", e.Service, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Service, e.StatusCode, e.Message)
}

// Temporary reports whether the same request may succeed later.
func (e *UpstreamError) Temporary() bool {
	return shouldRetryStatus(e.StatusCode)
}

// googleErrorBody is the error envelope used by Google REST APIs.
type googleErrorBody struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

const maxErrorBody = 1 << 20

// ParseResponseError reads and closes the body of a non-2xx response and
// returns it as an *UpstreamError. Structured Google-style bodies keep their
// message and status; anything else is carried verbatim.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	upErr := &UpstreamError{Service: serviceName, StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		upErr.Message = fmt.Sprintf("failed to read body: %v", err)
		return upErr
	}

	var parsed googleErrorBody
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
		upErr.Message = parsed.Error.Message
		upErr.Status = parsed.Error.Status
		return upErr
	}

	upErr.Message = string(body)
	return upErr
}
