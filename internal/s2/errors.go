package s2

import (
	"errors"
	"fmt"
)

// Common errors returned by the Semantic Scholar client.
var (
	// ErrNotFound indicates the resource was not found.
	ErrNotFound = errors.New("not found in Semantic Scholar")

	// ErrAuthError indicates an authentication error (missing/invalid API key).
	ErrAuthError = errors.New("Semantic Scholar authentication error")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("Semantic Scholar rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with Semantic Scholar")

	// ErrInvalidResponse indicates an unexpected or unparseable API response.
	ErrInvalidResponse = errors.New("invalid response from Semantic Scholar")

	// ErrRetriesExhausted indicates the attempt budget ran out.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// APIError represents a non-success HTTP status from the API.
type APIError struct {
	StatusCode int
	Code       string // e.g. "not_found", "server_error", "api_error"
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("Semantic Scholar API error (status %d, code %s): %s (endpoint: %s)", e.StatusCode, e.Code, e.Message, e.Endpoint)
	}
	return fmt.Sprintf("Semantic Scholar API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap lets errors.Is(err, ErrNotFound) see through a 404 APIError.
func (e *APIError) Unwrap() error {
	if e.StatusCode == 404 {
		return ErrNotFound
	}
	return nil
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404 || apiErr.Code == "not_found"
	}
	return false
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// IsNoData reports whether err is an ordinary "nothing usable came back"
// outcome (not-found or malformed response) rather than a transport failure.
func IsNoData(err error) bool {
	return IsNotFound(err) || errors.Is(err, ErrInvalidResponse)
}
