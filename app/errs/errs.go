// Package errs defines the error kinds the HTTP boundary knows how to map to
// a response status.
package errs

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindNotFound
	KindPipeline
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPipeline:
		return "pipeline"
	default:
		return "unexpected"
	}
}

// FieldError describes a single invalid request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Pipeline marks a failure that aborts a whole populate run.
func Pipeline(message string, err error) *Error {
	return &Error{Kind: KindPipeline, Message: message, Err: err}
}

func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: "unexpected error", Err: err}
}

// KindOf reports the kind of the first *Error in err's chain. Untyped errors
// are unexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
