package service

import (
	"context"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

type authorizerKey struct{}

// WithAuthorizer returns a context carrying the per-request Authorizer.
func WithAuthorizer(ctx context.Context, a *Authorizer) context.Context {
	return context.WithValue(ctx, authorizerKey{}, a)
}

// AuthorizerFrom returns the Authorizer in ctx, or nil. A nil Authorizer
// denies every check.
func AuthorizerFrom(ctx context.Context) *Authorizer {
	a, _ := ctx.Value(authorizerKey{}).(*Authorizer)
	return a
}

// UserContextFrom returns the authenticated caller in ctx, or nil.
func UserContextFrom(ctx context.Context) *domain.UserContext {
	return AuthorizerFrom(ctx).UserContext()
}
