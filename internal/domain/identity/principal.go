// Package identity holds the authenticated caller model and the role predicate
// used to gate API operations.
package identity

import "context"

type Role string

const RoleAdmin Role = "admin"

// Principal is an authenticated caller.
type Principal struct {
	Subject string `json:"uid"`
	Role    Role   `json:"role"`
}

// Verifier turns a bearer credential into a Principal. Failures are *AuthError.
type Verifier interface {
	VerifyCredential(ctx context.Context, token string) (Principal, error)
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}
