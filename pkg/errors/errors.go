package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeSignature    Code = "SIGNATURE_INVALID"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
)

// Metadata is how a Code surfaces over HTTP. Retryable is true only for
// server-side failures.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func clientCode(status int, msg string) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg}
}

func serverCode(msg string) Metadata {
	return Metadata{HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: msg}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   withDetails(clientCode(http.StatusBadRequest, "validation failed")),
	CodeUnauthorized: clientCode(http.StatusUnauthorized, "authentication required"),
	CodeForbidden:    clientCode(http.StatusForbidden, "access denied"),
	CodeNotFound:     clientCode(http.StatusNotFound, "resource not found"),
	CodeConflict:     clientCode(http.StatusConflict, "conflict detected"),
	CodeSignature:    clientCode(http.StatusBadRequest, "invalid signature"),
	CodeIdempotency:  withDetails(clientCode(http.StatusConflict, "idempotency key reused")),
	CodeRateLimit:    clientCode(http.StatusTooManyRequests, "rate limit exceeded"),
	CodeInternal:     serverCode("internal server error"),
	CodeDependency:   serverCode("upstream service error"),
}

func withDetails(m Metadata) Metadata {
	m.DetailsAllowed = true
	return m
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error services return. Message is safe to show the
// caller for client-facing codes; cause is only ever logged.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

// New builds an error with no cause.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and a caller-safe message to err. A nil err yields New.
func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the field-level details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As finds the outermost *Error in err's chain.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
