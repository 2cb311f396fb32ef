package auth

import "errors"

// Authentication errors.
var (
	// ErrInvalidToken indicates the token is malformed or has an invalid signature.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the token has expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrSecretTooShort indicates the JWT secret is too short.
	ErrSecretTooShort = errors.New("JWT secret must be at least 32 bytes")

	// ErrMissingScope indicates a valid token lacks the scope an operation needs.
	ErrMissingScope = errors.New("token lacks required scope")

	// ErrUnknownScope indicates a scope name that is not defined.
	ErrUnknownScope = errors.New("unknown scope")
)
