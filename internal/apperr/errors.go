package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindProvider      Kind = "provider"
	KindProtocol      Kind = "protocol"
	KindNotFound      Kind = "not_found"
)

// Error is the application error type. Message is safe to show to callers,
// Err carries the internal cause for logging only.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports bad caller input, rejected before any side effect.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Configuration reports missing credentials or setup.
func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// Provider wraps a failure of the model or hosting provider.
func Provider(op string, err error) *Error {
	return &Error{Kind: KindProvider, Op: op, Message: "provider request failed", Err: err}
}

// Protocol reports a provider response with an unexpected or incomplete shape.
func Protocol(op, message string) *Error {
	return &Error{Kind: KindProtocol, Op: op, Message: message}
}

// NotFound reports a missing record.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the status code a handler should answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindProvider, KindProtocol:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
