package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error is the API error carried through handlers and serialized in the
// OpenAI-style envelope {"error":{"message","type","code"}}.
type Error struct {
	// HTTP status for the response; not part of the wire shape.
	Status int `json:"-"`

	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`

	// Original error for server-side logging only.
	Log error `json:"-"`
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s: %s", e.Status, e.Type, e.Message)
}

// ErrorEnvelope is the outermost JSON object for error responses.
type ErrorEnvelope struct {
	Err *Error `json:"error"`
}

// Envelope wraps an Error for serialization.
func Envelope(e *Error) ErrorEnvelope {
	return ErrorEnvelope{Err: e}
}

type ErrorOption func(*Error)

// WithLog attaches an internal error for server-side logging.
func WithLog(err error) ErrorOption {
	return func(e *Error) {
		e.Log = err
	}
}

// WithCode sets the machine-readable error code.
func WithCode(code string) ErrorOption {
	return func(e *Error) {
		e.Code = code
	}
}

// NewError creates a generic API error.
func NewError(status int, typ, message string, opts ...ErrorOption) *Error {
	e := &Error{
		Status:  status,
		Type:    typ,
		Message: message,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InvalidRequestError maps client input problems to a 400.
func InvalidRequestError(message string) *Error {
	return NewError(http.StatusBadRequest, "invalid_request_error", message)
}

// ValidationError flattens the field->message map produced by the request
// validator into a single client-facing message.
func ValidationError(fields map[string]string) *Error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fields[k]))
	}

	return InvalidRequestError(strings.Join(parts, "; "))
}

// NotFoundError is returned for unroutable paths.
func NotFoundError(message string) *Error {
	return NewError(http.StatusNotFound, "not_found_error", message)
}

// UpstreamError surfaces a failed upstream call with the upstream status
// when one is available.
func UpstreamError(status int, message string, log error) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return NewError(status, "api_error", message, WithCode("upstream_error"), WithLog(log))
}

// InternalError is the catch-all 500.
func InternalError(message string, log error) *Error {
	return NewError(http.StatusInternalServerError, "api_error", message, WithLog(log))
}
