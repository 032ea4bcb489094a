package auth

import "errors"

var (
	ErrMissingToken    = errors.New("missing bearer token")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidIssuer   = errors.New("invalid issuer")
	ErrInvalidAudience = errors.New("invalid audience")
	ErrTokenExpired    = errors.New("token expired or not yet valid")
	ErrInvalidSubject  = errors.New("invalid subject")
	ErrNoSigningKey    = errors.New("no signing key configured")
)
