package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrHandlerRequired  = sterrors.New("chater: handler function is required")
	ErrTopicRequired    = sterrors.New("chater: topic is required")
	ErrHandlerNameKnown = sterrors.New("chater: handler already registered for topic")
	ErrOwnerRequired    = sterrors.New("chater: owner user email is required")
	ErrIDRequired       = sterrors.New("chater: correlation id is required")
	ErrConfigRequired   = sterrors.New("chater: config is required")
	ErrLoggerRequired   = sterrors.New("chater: logger is required")

	// ErrTimeout is the distinct outcome of a bridge wait that expired before a
	// correlated reply arrived. It is not a transport failure.
	ErrTimeout = sterrors.New("chater: timed out waiting for response")

	// ErrDuplicateID is returned when a correlation id is registered twice.
	ErrDuplicateID = sterrors.New("chater: correlation id already registered")
)

// DispatchError reports that a message could not be handed to the event log.
// StatusCode is the suggested client-visible HTTP status (typically 503).
type DispatchError struct {
	StatusCode int
	Err        error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("chater: dispatch failed (status %d): %v", e.StatusCode, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// NewDispatchError wraps a transport failure with a suggested status code.
func NewDispatchError(statusCode int, err error) *DispatchError {
	return &DispatchError{StatusCode: statusCode, Err: err}
}

// BusinessError is a well-formed but rejected request: bad input, forbidden
// action, missing record. Handlers return it instead of an infrastructure
// error so the dispatcher can answer the caller with a structured error
// envelope rather than treating the message as a fault.
type BusinessError struct {
	Code    int // suggested client-visible status: 400, 403, 404
	Message string
}

func (e *BusinessError) Error() string { return e.Message }

// Forbidden reports an identity mismatch (acting on behalf of another user).
func Forbidden(msg string) *BusinessError {
	return &BusinessError{Code: 403, Message: msg}
}

// InvalidInput reports a validation failure on an otherwise routable request.
func InvalidInput(msg string) *BusinessError {
	return &BusinessError{Code: 400, Message: msg}
}

// NotFound reports a missing record.
func NotFound(msg string) *BusinessError {
	return &BusinessError{Code: 404, Message: msg}
}

// AsBusiness unwraps err as a BusinessError when possible.
func AsBusiness(err error) (*BusinessError, bool) {
	var be *BusinessError
	if sterrors.As(err, &be) {
		return be, true
	}
	return nil, false
}
