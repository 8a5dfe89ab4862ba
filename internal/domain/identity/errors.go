package identity

import "errors"

type AuthReason string

const (
	ReasonMissing   AuthReason = "missing"
	ReasonMalformed AuthReason = "malformed"
	ReasonExpired   AuthReason = "expired"
	ReasonInvalid   AuthReason = "invalid"
	ReasonRevoked   AuthReason = "revoked"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type AuthError struct {
	Reason  AuthReason
	Message string
	Cause   error
}

func (e *AuthError) Error() string { return "Unauthorized: " + e.Message }

func (e *AuthError) Unwrap() error { return e.Cause }

func (e *AuthError) Is(target error) bool { return target == ErrUnauthenticated }

// Code is the stable response code for the failure.
func (e *AuthError) Code() string {
	switch e.Reason {
	case ReasonMissing:
		return "TOKEN_NOT_FOUND"
	case ReasonExpired:
		return "TOKEN_EXPIRED"
	case ReasonRevoked:
		return "TOKEN_REVOKED"
	default:
		return "INVALID_TOKEN"
	}
}

func NewAuthError(reason AuthReason, message string, cause error) *AuthError {
	return &AuthError{Reason: reason, Message: message, Cause: cause}
}
