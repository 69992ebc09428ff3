package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a remixer error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"     // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"           // 404
	ErrConflict          ErrorCode = "CONFLICT"            // 409
	ErrContentTooLarge   ErrorCode = "CONTENT_TOO_LARGE"   // 413
	ErrRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED" // 429
	ErrInternal          ErrorCode = "INTERNAL"            // 500
	ErrConfiguration     ErrorCode = "CONFIGURATION_ERROR" // 500
	ErrUpstream          ErrorCode = "UPSTREAM_ERROR"      // 502
	ErrMalformedResponse ErrorCode = "MALFORMED_RESPONSE"  // 502
)

// RemixError represents a structured error with code, status, and details.
type RemixError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *RemixError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *RemixError {
	return &RemixError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing resource.
// what names the resource kind ("Tweet", "saved item").
func NewNotFound(what, identifier string) *RemixError {
	return &RemixError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found", what),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error when a record with the same identity exists.
func NewConflict(identifier string) *RemixError {
	return &RemixError{
		Code:    ErrConflict,
		Status:  409,
		Message: fmt.Sprintf("%s already exists", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewContentTooLarge creates a 413 error when content exceeds its size limit.
func NewContentTooLarge(max, actual int) *RemixError {
	return &RemixError{
		Code:    ErrContentTooLarge,
		Status:  413,
		Message: fmt.Sprintf("content exceeds maximum size: %d chars (max %d)", actual, max),
		Details: map[string]any{"max_chars": max, "actual_chars": actual},
	}
}

// NewRateLimitExceeded creates a 429 error carrying the minutes until the
// upstream rate limit window resets.
func NewRateLimitExceeded(waitMinutes int) *RemixError {
	return &RemixError{
		Code:    ErrRateLimitExceeded,
		Status:  429,
		Message: fmt.Sprintf("Rate limit exceeded. Please try again in %s.", formatMinutes(waitMinutes)),
		Details: map[string]any{"wait_minutes": waitMinutes},
	}
}

// NewUpstreamError creates a 502 error for a failed upstream call.
// upstreamStatus is 0 when the request never produced a response.
func NewUpstreamError(service string, upstreamStatus int) *RemixError {
	msg := fmt.Sprintf("%s API error: %d", service, upstreamStatus)
	if upstreamStatus == 0 {
		msg = fmt.Sprintf("%s API unreachable", service)
	}
	return &RemixError{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		Details: map[string]any{"upstream_status": upstreamStatus},
	}
}

// NewMalformedResponse creates a 502 error when generated output does not
// have the expected shape.
func NewMalformedResponse(msg string) *RemixError {
	return &RemixError{
		Code:    ErrMalformedResponse,
		Status:  502,
		Message: msg,
	}
}

// NewConfiguration creates an error for missing required settings.
func NewConfiguration(missing []string) *RemixError {
	return &RemixError{
		Code:    ErrConfiguration,
		Status:  500,
		Message: fmt.Sprintf("missing required configuration: %s", strings.Join(missing, ", ")),
		Details: map[string]any{"missing": missing},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *RemixError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &RemixError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// As returns the RemixError in err's chain, if any.
func As(err error) (*RemixError, bool) {
	var rErr *RemixError
	if stderrors.As(err, &rErr) {
		return rErr, true
	}
	return nil, false
}

// Is checks if an error is a RemixError with the given code.
func Is(err error, code ErrorCode) bool {
	if rErr, ok := As(err); ok {
		return rErr.Code == code
	}
	return false
}

// WaitMinutes returns the reset wait carried by a rate limit error.
func WaitMinutes(err error) (int, bool) {
	rErr, ok := As(err)
	if !ok || rErr.Code != ErrRateLimitExceeded {
		return 0, false
	}
	minutes, ok := rErr.Details["wait_minutes"].(int)
	return minutes, ok
}

// UpstreamStatus returns the upstream HTTP status carried by an upstream error.
func UpstreamStatus(err error) (int, bool) {
	rErr, ok := As(err)
	if !ok || rErr.Code != ErrUpstream {
		return 0, false
	}
	status, ok := rErr.Details["upstream_status"].(int)
	return status, ok
}

func formatMinutes(n int) string {
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}
