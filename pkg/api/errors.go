package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	ghapi "github.com/cli/go-gh/v2/pkg/api"

	"github.com/yahsan2/enrollctl/pkg/validate"
)

// GenericMessage is shown when the server did not supply a message
const GenericMessage = "Something went wrong. Please try again."

// ErrorType represents the type of error that occurred
type ErrorType int

const (
	// ErrorTypeValidation indicates a client or server side validation error
	ErrorTypeValidation ErrorType = iota
	// ErrorTypeConfiguration indicates a configuration error
	ErrorTypeConfiguration
	// ErrorTypePermission indicates an authentication/authorization error
	ErrorTypePermission
	// ErrorTypeNetwork indicates a network connectivity error
	ErrorTypeNetwork
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound
	// ErrorTypeServer indicates a general API error
	ErrorTypeServer
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeConfiguration:
		return "configuration"
	case ErrorTypePermission:
		return "permission"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeNotFound:
		return "not_found"
	default:
		return "server"
	}
}

// Error represents a structured error with type, server message and suggestion
type Error struct {
	Type       ErrorType
	Message    string
	Server     string // message supplied by the server, if any
	StatusCode int
	Cause      error
	Suggestion string
}

// Error implements the error interface
func (e *Error) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Server != "" {
		parts = append(parts, e.Server)
	} else if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("caused by: %v", e.Cause))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\n💡 %s", e.Suggestion))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Sentinels for errors.Is checks
var (
	ErrValidation    = &Error{Type: ErrorTypeValidation}
	ErrConfiguration = &Error{Type: ErrorTypeConfiguration}
	ErrPermission    = &Error{Type: ErrorTypePermission}
	ErrNetwork       = &Error{Type: ErrorTypeNetwork}
	ErrNotFound      = &Error{Type: ErrorTypeNotFound}
	ErrServer        = &Error{Type: ErrorTypeServer}
)

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *Error {
	return &Error{
		Type:       ErrorTypeValidation,
		Message:    message,
		Cause:      cause,
		Suggestion: "Check your input parameters and try again",
	}
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string, cause error) *Error {
	return &Error{
		Type:       ErrorTypeConfiguration,
		Message:    message,
		Cause:      cause,
		Suggestion: "Run 'enrollctl init' or set ENROLLCTL_TOKEN / ENROLLCTL_API_BASE_URL",
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *Error {
	return &Error{
		Type:       ErrorTypeNetwork,
		Message:    message,
		Cause:      cause,
		Suggestion: "Check your internet connection and try again",
	}
}

// fromHTTPError maps a non-2xx response onto an Error
func fromHTTPError(message string, httpErr *ghapi.HTTPError) *Error {
	e := &Error{
		Message:    message,
		Server:     strings.TrimSpace(httpErr.Message),
		StatusCode: httpErr.StatusCode,
		Cause:      httpErr,
	}

	switch {
	case httpErr.StatusCode == http.StatusBadRequest || httpErr.StatusCode == http.StatusUnprocessableEntity:
		e.Type = ErrorTypeValidation
		e.Suggestion = "Check your input parameters and try again"
	case httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden:
		e.Type = ErrorTypePermission
		e.Suggestion = "Check that ENROLLCTL_TOKEN is valid and has admin access to the institute"
	case httpErr.StatusCode == http.StatusNotFound:
		e.Type = ErrorTypeNotFound
		e.Suggestion = "Check that the resource exists and belongs to the configured institute"
	default:
		e.Type = ErrorTypeServer
		e.Suggestion = "Try again later; the request was not retried"
	}

	return e
}

// classify turns any transport error into an *Error
func classify(message string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return err
	}

	var httpErr *ghapi.HTTPError
	if errors.As(err, &httpErr) {
		return fromHTTPError(message, httpErr)
	}

	var verrs validate.Errors
	if errors.As(err, &verrs) {
		return NewValidationError(message, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return NewNetworkError(message, err)
	}

	return &Error{
		Type:       ErrorTypeServer,
		Message:    message,
		Cause:      err,
		Suggestion: "Try again later; the request was not retried",
	}
}

// UserMessage returns the text to show the user for err: the
// server-supplied message when present, otherwise a generic fallback.
// Local validation errors are shown as they are.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verrs validate.Errors
	if errors.As(err, &verrs) {
		return verrs.Error()
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Server != "" {
			return apiErr.Server
		}
		if apiErr.Type == ErrorTypeConfiguration {
			return apiErr.Message
		}
	}

	return GenericMessage
}
