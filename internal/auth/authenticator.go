package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwrk-planet/studyroom/internal/domain"
)

// Policy decides what happens when a caller cannot be verified.
type Policy string

const (
	// PolicyGuest degrades unverifiable callers to the shared guest identity.
	PolicyGuest Policy = "guest"
	// PolicyReject refuses them with ErrUnauthenticated.
	PolicyReject Policy = "reject"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyGuest, "":
		return PolicyGuest, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("unknown auth failure policy %q", s)
	}
}

// Authenticator turns an Authorization header into an identity.
type Authenticator struct {
	verifier *Verifier
	policy   Policy
}

// NewAuthenticator accepts a nil verifier, in which case no token verifies.
func NewAuthenticator(v *Verifier, policy Policy) *Authenticator {
	return &Authenticator{verifier: v, policy: policy}
}

func (a *Authenticator) Policy() Policy { return a.policy }

func (a *Authenticator) Authenticate(ctx context.Context, authHeader string) (domain.Identity, error) {
	id, err := a.verify(authHeader)
	if err == nil {
		return id, nil
	}
	if a.policy == PolicyReject {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	slog.DebugContext(ctx, "falling back to guest identity", "reason", err.Error())
	return domain.GuestIdentity(), nil
}

func (a *Authenticator) verify(authHeader string) (domain.Identity, error) {
	token, ok := BearerToken(authHeader)
	if !ok {
		return domain.Identity{}, ErrMissingToken
	}
	if a.verifier == nil {
		return domain.Identity{}, ErrNoSigningKey
	}
	return a.verifier.Verify(token)
}

// BearerToken extracts the token from "Bearer <token>".
func BearerToken(header string) (string, bool) {
	if len(header) <= 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromCtx returns the caller identity, or the guest identity when
// none was attached.
func IdentityFromCtx(ctx context.Context) domain.Identity {
	if id, ok := ctx.Value(ctxKey{}).(domain.Identity); ok {
		return id
	}
	return domain.GuestIdentity()
}
