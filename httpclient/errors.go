package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/kbukum/apikit/errors"
)

// ErrorCode classifies client errors.
type ErrorCode int

const (
	// ErrCodeTransport indicates the request never produced a response
	// (connection refused, DNS, timeout, broken body read).
	ErrCodeTransport ErrorCode = iota
	// ErrCodeRequestFailed indicates the server answered with a non-2xx status.
	ErrCodeRequestFailed
	// ErrCodeDecode indicates a 2xx body that did not match the expected shape.
	ErrCodeDecode
	// ErrCodeCancelled indicates the caller's context was cancelled.
	ErrCodeCancelled
	// ErrCodeToken indicates the token source failed to produce a credential.
	ErrCodeToken
	// ErrCodeInvalidRequest indicates the request could not be built.
	ErrCodeInvalidRequest
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTransport:
		return "transport"
	case ErrCodeRequestFailed:
		return "request_failed"
	case ErrCodeDecode:
		return "decode"
	case ErrCodeCancelled:
		return "cancelled"
	case ErrCodeToken:
		return "token"
	case ErrCodeInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Error is a structured client error with classification.
type Error struct {
	// StatusCode is the HTTP status code (0 when no response was received).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Retryable reports whether repeating the call may succeed. The client
	// itself never retries.
	Retryable bool
	// Body is the raw response body of a failed request.
	Body []byte
	// TypeName is the Go type a decode was attempted into (ErrCodeDecode).
	TypeName string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// BodyText returns the failed response body as text.
func (e *Error) BodyText() string {
	return string(e.Body)
}

// Problem decodes the failure body as a structured error response.
// It returns false when the body is empty or not in that format.
func (e *Error) Problem() (*apperrors.ErrorResponse, bool) {
	if len(e.Body) == 0 {
		return nil, false
	}
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(e.Body, &resp); err != nil || resp.Error.Code == "" {
		return nil, false
	}
	return &resp, true
}

// AppError returns a failed request as an API error, decoded from the
// problem body when there is one and derived from the status otherwise.
// It returns nil for errors that carry no response.
func (e *Error) AppError() *apperrors.AppError {
	if e.Code != ErrCodeRequestFailed {
		return nil
	}
	if problem, ok := e.Problem(); ok {
		return problem.AppError(e.StatusCode).WithCause(e)
	}
	return apperrors.FromStatus(e.StatusCode, "").WithCause(e)
}

// NewTransportError creates a transport error.
func NewTransportError(err error) *Error {
	return &Error{
		Code:      ErrCodeTransport,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewRequestFailedError creates an error for a non-2xx response. The body
// must already be fully read.
func NewRequestFailedError(statusCode int, body []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Code:       ErrCodeRequestFailed,
		Message:    fmt.Sprintf("HTTP %d %s", statusCode, http.StatusText(statusCode)),
		Retryable:  statusCode == http.StatusTooManyRequests || statusCode >= 500,
		Body:       body,
	}
}

// NewDecodeError creates a decode error for the given target type.
func NewDecodeError(statusCode int, typeName string, err error) *Error {
	return &Error{
		StatusCode: statusCode,
		Code:       ErrCodeDecode,
		Message:    fmt.Sprintf("decode %s: %v", typeName, err),
		TypeName:   typeName,
		Err:        err,
	}
}

// NewCancelledError creates a cancellation error from a context error.
func NewCancelledError(err error) *Error {
	if err == nil {
		err = context.Canceled
	}
	return &Error{
		Code:    ErrCodeCancelled,
		Message: err.Error(),
		Err:     err,
	}
}

// NewTokenError creates a token source error.
func NewTokenError(err error) *Error {
	return &Error{
		Code:    ErrCodeToken,
		Message: err.Error(),
		Err:     err,
	}
}

// NewInvalidRequestError creates an error for a request that could not be built.
func NewInvalidRequestError(msg string, err error) *Error {
	return &Error{
		Code:    ErrCodeInvalidRequest,
		Message: msg,
		Err:     err,
	}
}

// classifySendError maps a failure at an I/O boundary. If the caller's
// context is done the failure is a cancellation; anything else, including
// the client's own request timeout, is a transport error.
func classifySendError(callerCtx context.Context, err error) *Error {
	if ctxErr := callerCtx.Err(); ctxErr != nil {
		return NewCancelledError(ctxErr)
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if isContextError(err) {
		return NewTransportError(fmt.Errorf("request timed out: %w", err))
	}
	return NewTransportError(err)
}

// isContextError reports whether err is, or wraps, a context error.
func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsTransport checks if an error is a transport error.
func IsTransport(err error) bool { return hasCode(err, ErrCodeTransport) }

// IsRequestFailed checks if an error is a non-2xx response error.
func IsRequestFailed(err error) bool { return hasCode(err, ErrCodeRequestFailed) }

// IsDecode checks if an error is a decode error.
func IsDecode(err error) bool { return hasCode(err, ErrCodeDecode) }

// IsCancelled checks if an error is a cancellation.
func IsCancelled(err error) bool { return hasCode(err, ErrCodeCancelled) }

// IsToken checks if an error came from the token source.
func IsToken(err error) bool { return hasCode(err, ErrCodeToken) }

// StatusCode returns the HTTP status of a failed request, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsNotFound checks if an error is a 404 response.
func IsNotFound(err error) bool {
	return IsRequestFailed(err) && StatusCode(err) == http.StatusNotFound
}

// IsAuth checks if an error is a 401 or 403 response.
func IsAuth(err error) bool {
	if !IsRequestFailed(err) {
		return false
	}
	s := StatusCode(err)
	return s == http.StatusUnauthorized || s == http.StatusForbidden
}

// IsServerError checks if an error is a 5xx response.
func IsServerError(err error) bool {
	return IsRequestFailed(err) && StatusCode(err) >= 500
}

// IsRetryable checks if an error is marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
