package types

import (
	"errors"
	"fmt"
)

// exported errors
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrCustomAuthorization    = errors.New("custom authorization failed")

	ErrConfiguration     = errors.New("authorization misconfigured")
	ErrUnknownPermission = fmt.Errorf("%w: unknown permission", ErrConfiguration)
	ErrUnknownAbility    = fmt.Errorf("%w: unknown ability", ErrConfiguration)
	ErrConflictingRules  = fmt.Errorf("%w: method registered under more than one rule", ErrConfiguration)
	ErrNoResourceName    = fmt.Errorf("%w: resource name cannot be derived", ErrConfiguration)

	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidSubject    = errors.New("invalid subject, it should be a User or Role")
	ErrUnsupportedChange = errors.New("persister changes in a way not supported")
)

// AuthorizationError is returned when a subject is not allowed to invoke a handler method.
// It matches its Kind with errors.Is.
type AuthorizationError struct {
	// Kind is one of ErrAuthenticationRequired, ErrPermissionDenied, and ErrCustomAuthorization
	Kind error
	// Handler and Method identify the denied invocation, they are empty for custom failures
	Handler string
	Method  string
	// Required lists the permissions checked, Missing is the one named in the message
	Required []Permission
	Missing  Permission
	// Message is meant to be shown to the caller
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

func (e *AuthorizationError) Unwrap() error {
	return e.Kind
}

// Deny creates a custom authorization failure for CustomAuthorizer hooks
func Deny(format string, args ...interface{}) error {
	return &AuthorizationError{
		Kind:    ErrCustomAuthorization,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsAuthenticationRequired tells if e says no subject is present
func IsAuthenticationRequired(e error) bool {
	return errors.Is(e, ErrAuthenticationRequired)
}

// IsForbidden tells if e denies a present subject, by a permission check or a custom hook
func IsForbidden(e error) bool {
	return errors.Is(e, ErrPermissionDenied) || errors.Is(e, ErrCustomAuthorization)
}
