// Package geocode resolves free-text addresses to coordinates and back.
//
// Failures are reported as *Error with a closed set of types. Matching
// treats every geocoding failure as an unresolved coordinate, so callers
// normally go through Locate rather than handling errors themselves.
package geocode

import (
	"errors"
	"fmt"
)

// ErrorType classifies geocoding failures.
type ErrorType string

const (
	ErrorInvalidAddress     ErrorType = "invalid_address"
	ErrorRateLimited        ErrorType = "rate_limited"
	ErrorNetwork            ErrorType = "network_error"
	ErrorServiceUnavailable ErrorType = "service_unavailable"
	ErrorInvalidCoordinates ErrorType = "invalid_coordinates"
)

// Sentinels for errors.Is checks against *Error.
var (
	ErrInvalidAddress     = errors.New("invalid address")
	ErrRateLimited        = errors.New("geocoding rate limit exceeded")
	ErrNetwork            = errors.New("geocoding network error")
	ErrServiceUnavailable = errors.New("geocoding service unavailable")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

var sentinels = map[ErrorType]error{
	ErrorInvalidAddress:     ErrInvalidAddress,
	ErrorRateLimited:        ErrRateLimited,
	ErrorNetwork:            ErrNetwork,
	ErrorServiceUnavailable: ErrServiceUnavailable,
	ErrorInvalidCoordinates: ErrInvalidCoordinates,
}

// Error is a typed geocoding failure.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geocode %s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("geocode %s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's type.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Type]
	return ok && s == target
}

func newError(t ErrorType, msg string, cause error) *Error {
	return &Error{Type: t, Message: msg, Err: cause}
}

// TypeOf returns the ErrorType of err, or "" if err is not a geocoding error.
func TypeOf(err error) ErrorType {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Type
	}
	return ""
}
