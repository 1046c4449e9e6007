package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the error type crossing component boundaries. Plumbing
// code wraps with fmt.Errorf and %w; boundaries convert to AppError so
// handlers can map failures to HTTP statuses and clients can decide
// whether a retry is worth it.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	s := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches the underlying error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail adds one context entry and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithDetails merges all entries of details and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// New builds an AppError. Retryable is derived from the code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// Timeout reports an operation that ran out of time.
func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, "The request took too long. Please try again.", http.StatusGatewayTimeout).
		WithDetail("operation", operation)
}

// RateLimited reports a client sending faster than the limiter allows.
func RateLimited() *AppError {
	return New(ErrCodeRateLimited, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
}

// NotFound reports a missing resource. The id detail is omitted when
// empty.
func NotFound(resource, id string) *AppError {
	e := New(ErrCodeNotFound, fmt.Sprintf("The requested %s was not found.", resource), http.StatusNotFound).
		WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// Conflict reports a request clashing with current state, for example
// a second ingest connection for a source that is already streaming.
func Conflict(reason string) *AppError {
	return New(ErrCodeConflict, reason, http.StatusConflict)
}

// InvalidInput reports a request parameter the server cannot accept.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, fmt.Sprintf("Invalid input: %s", reason), http.StatusBadRequest)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation reports a failed request validation with a ready message.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

// MissingField reports a required field that was not provided.
func MissingField(field string) *AppError {
	return New(ErrCodeMissingField, fmt.Sprintf("Missing required field: %s", field), http.StatusBadRequest).
		WithDetail("field", field)
}

// InvalidFormat reports a field whose value has the wrong shape.
func InvalidFormat(field, expected string) *AppError {
	return New(ErrCodeInvalidFormat, fmt.Sprintf("Invalid format for %s. Expected: %s", field, expected), http.StatusBadRequest).
		WithDetails(map[string]any{"field": field, "expected_format": expected})
}

// InvalidAudio reports an audio payload that could not be decoded.
func InvalidAudio(reason string, cause error) *AppError {
	return New(ErrCodeInvalidAudio, fmt.Sprintf("Invalid audio payload: %s", reason), http.StatusBadRequest).
		WithCause(cause)
}

// TranscriptionFailed reports a failed transcription call. The window
// handed to the backend is gone, so callers must not retry.
func TranscriptionFailed(speaker string, cause error) *AppError {
	return New(ErrCodeTranscriptionFailed, "Transcription failed and the buffered audio was dropped.", http.StatusBadGateway).
		WithDetail("speaker", speaker).WithCause(cause)
}

// DiarizationFailed reports a failed diarization call.
func DiarizationFailed(cause error) *AppError {
	return New(ErrCodeDiarizationFailed, "Diarization failed. Please try again.", http.StatusBadGateway).
		WithCause(cause)
}

// ModelUnavailable reports a backend whose model is not loaded or
// reachable.
func ModelUnavailable(backend string) *AppError {
	return New(ErrCodeModelUnavailable, fmt.Sprintf("The %s model is not available.", backend), http.StatusServiceUnavailable).
		WithDetail("backend", backend)
}

// Internal reports an unexpected failure with no better mapping.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred. Please try again or contact support.", http.StatusInternalServerError).
		WithCause(cause)
}

// ErrorResponse is the JSON envelope handlers return to clients.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the client-visible part of an AppError.
type ErrorBody struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// ToResponse strips server-only fields for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: ErrorBody{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}}
}

// AsAppError unwraps err to an AppError when one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
