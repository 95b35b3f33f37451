package errors

import (
	"errors"
	"fmt"
)

// PublicAuthFailure is the only message callers see for authentication-class failures.
const PublicAuthFailure = "authentication failed"

// Exchange engine error classes
var (
	// Dispatch errors
	ErrUnsupportedExchange = errors.New("unsupported exchange")

	// Authentication errors
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidToken           = errors.New("invalid token")
	ErrExpiredOrConsumedToken = errors.New("token expired or already consumed")
	ErrPkceMismatch           = fmt.Errorf("pkce verification failed: %w", ErrInvalidToken)

	// Deployment errors
	ErrEncryptionNotSupported = errors.New("encryption not supported")
	ErrConfiguration          = errors.New("configuration error")

	// General errors
	ErrNotFound = errors.New("not found")
)

// EntityError attributes a failure to a known entity so the attempt feed can
// record who the failed exchange was for.
type EntityError struct {
	EntityID string
	Err      error
}

func (e *EntityError) Error() string {
	return e.Err.Error()
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// WithEntity wraps err with the entity it concerns. A nil err stays nil.
func WithEntity(entityID string, err error) error {
	if err == nil {
		return nil
	}
	return &EntityError{EntityID: entityID, Err: err}
}

// EntityOf returns the entity id attached to err, if any.
func EntityOf(err error) string {
	var ee *EntityError
	if errors.As(err, &ee) {
		return ee.EntityID
	}
	return ""
}

// IsAuthFailure reports whether err belongs to the authentication class whose
// causes are never distinguished to a caller.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredOrConsumedToken)
}

// Public returns the caller-facing message for err.
func Public(err error) string {
	switch {
	case err == nil:
		return ""
	case IsAuthFailure(err):
		return PublicAuthFailure
	case errors.Is(err, ErrUnsupportedExchange):
		return ErrUnsupportedExchange.Error()
	case errors.Is(err, ErrEncryptionNotSupported):
		return ErrEncryptionNotSupported.Error()
	case errors.Is(err, ErrConfiguration):
		return ErrConfiguration.Error()
	}
	return "internal error"
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error with the given text
func New(text string) error {
	return errors.New(text)
}
