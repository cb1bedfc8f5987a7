package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/lodgepole-labs/lodgepole/internal/models"
)

// Context is the authorization context attached to a request after
// credential resolution: who is acting, in which organization, with what
// role. Handlers read it; nothing downstream re-verifies credentials.
type Context struct {
	Principal models.Principal
	OrgID     uuid.UUID
	Role      models.Role
}

// PrincipalContext is the reduced variant for endpoints that only need an
// authenticated identity, with no organization or role requirement.
type PrincipalContext struct {
	Principal models.Principal
}

type contextKey struct{}

type principalContextKey struct{}

// WithContext attaches an authorization context to ctx.
func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext returns the authorization context attached to ctx, or false
// when the request never passed through full resolution.
func FromContext(ctx context.Context) (*Context, bool) {
	ac, ok := ctx.Value(contextKey{}).(*Context)
	return ac, ok
}

// WithPrincipal attaches a principal-only context to ctx.
func WithPrincipal(ctx context.Context, pc *PrincipalContext) context.Context {
	return context.WithValue(ctx, principalContextKey{}, pc)
}

// PrincipalFromContext returns the principal-only context attached to ctx.
// A full authorization context satisfies it too.
func PrincipalFromContext(ctx context.Context) (*PrincipalContext, bool) {
	if pc, ok := ctx.Value(principalContextKey{}).(*PrincipalContext); ok {
		return pc, true
	}
	if ac, ok := ctx.Value(contextKey{}).(*Context); ok {
		return &PrincipalContext{Principal: ac.Principal}, true
	}
	return nil, false
}
