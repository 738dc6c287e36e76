package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-200 response from GitHub.
type APIError struct {
	StatusCode int
	Message    string
	// Body is the decoded provider error document, or nil when it was not JSON.
	Body map[string]any
	// RateLimitRemaining is the X-RateLimit-Remaining header, if sent.
	RateLimitRemaining string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API returned %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports a primary or secondary rate limit response.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusTooManyRequests
}

// InvalidQuery reports a rejected search query.
func (e *APIError) InvalidQuery() bool {
	return e.StatusCode == http.StatusUnprocessableEntity
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode:         resp.StatusCode,
		RateLimitRemaining: resp.Header.Get("X-RateLimit-Remaining"),
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err == nil {
		apiErr.Body = doc
		if msg, ok := doc["message"].(string); ok {
			apiErr.Message = msg
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// IsRateLimited reports whether err wraps a rate limit APIError.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.RateLimited()
}

// IsInvalidQuery reports whether err wraps a 422 APIError.
func IsInvalidQuery(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.InvalidQuery()
}
