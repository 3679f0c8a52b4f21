// Package errs implements the engine's closed DomainError taxonomy.
package errs

import (
	"fmt"
	"net/http"
)

// Code discriminates the closed taxonomy of domain errors the engine can
// raise. It is a tagged sum, not an open hierarchy — callers should switch
// on it rather than type-assert concrete error types.
type Code string

const (
	AuthenticationError Code = "AUTH_FAILED"
	ValidationError     Code = "VALIDATION_FAILED"
	NotFoundError       Code = "NOT_FOUND"
	ConfigurationError  Code = "CONFIGURATION_ERROR"
	UpstreamTransient   Code = "UPSTREAM_TRANSIENT"
	RateLimited         Code = "RATE_LIMITED"
	Timeout             Code = "TIMEOUT"
)

// retryable reports whether a fresh attempt of the same operation might
// succeed.
var retryable = map[Code]bool{
	AuthenticationError: false,
	ValidationError:     false,
	NotFoundError:       false,
	ConfigurationError:  false,
	UpstreamTransient:   true,
	RateLimited:         true,
	Timeout:             true,
}

var statusCode = map[Code]int{
	AuthenticationError: http.StatusUnauthorized,
	ValidationError:     http.StatusBadRequest,
	NotFoundError:       http.StatusNotFound,
	ConfigurationError:  http.StatusInternalServerError,
	UpstreamTransient:   http.StatusBadGateway,
	RateLimited:         http.StatusTooManyRequests,
	Timeout:             http.StatusGatewayTimeout,
}

// DomainError is the engine's one error type for all known failure modes.
type DomainError struct {
	Code      Code
	Message   string
	Retryable bool
	Cause     error
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Cause }

// StatusCode maps the error to the HTTP status an ingress boundary should
// surface. The engine itself never writes HTTP responses; this exists so
// callers at the (out-of-scope) gateway boundary have a single place to
// look this mapping up.
func (e *DomainError) StatusCode() int {
	if code, ok := statusCode[e.Code]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// New builds a DomainError for a closed taxonomy code, looking up its
// default retryability.
func New(code Code, format string, args ...any) *DomainError {
	return &DomainError{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Retryable: retryable[code],
	}
}

// Wrap builds a DomainError carrying an underlying cause for Unwrap.
func Wrap(code Code, cause error, format string, args ...any) *DomainError {
	return &DomainError{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Retryable: retryable[code],
		Cause:     cause,
	}
}

func Authentication(format string, args ...any) *DomainError {
	return New(AuthenticationError, format, args...)
}

func Validation(format string, args ...any) *DomainError {
	return New(ValidationError, format, args...)
}

func NotFound(format string, args ...any) *DomainError {
	return New(NotFoundError, format, args...)
}

func Configuration(format string, args ...any) *DomainError {
	return New(ConfigurationError, format, args...)
}

func Transient(format string, args ...any) *DomainError {
	return New(UpstreamTransient, format, args...)
}

func WrapTransient(cause error, format string, args ...any) *DomainError {
	return Wrap(UpstreamTransient, cause, format, args...)
}

func RateLimit(format string, args ...any) *DomainError {
	return New(RateLimited, format, args...)
}

func TimedOut(format string, args ...any) *DomainError {
	return New(Timeout, format, args...)
}

// As reports whether err is a *DomainError and returns it.
func As(err error) (*DomainError, bool) {
	de, ok := err.(*DomainError)
	if ok {
		return de, true
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return As(u.Unwrap())
	}
	return nil, false
}
