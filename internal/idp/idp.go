// Package idp verifies credentials against the hosted identity provider.
// The provider owns login, session refresh and cookie writing; this package
// only reads. Two implementations exist: a remote introspection client and a
// local shared-secret JWT verifier for deployments that co-sign tokens.
package idp

import (
	"context"
	"errors"
	"net/http"
)

// ErrVerificationFailed is returned for every provider-side failure: bad
// token, expired session, provider outage, malformed response. Callers must
// not distinguish between these cases, so no more specific error escapes
// this package.
var ErrVerificationFailed = errors.New("identity verification failed")

// Identity is the provider's view of an authenticated subject, including the
// metadata strings attached at signup/onboarding. OrgID and Role are opaque
// here; the authorization context builder owns their interpretation.
type Identity struct {
	Subject string
	Email   string
	Name    string

	OrgID string
	Role  string
}

// Verifier turns raw credentials into a verified identity.
type Verifier interface {
	// VerifyToken introspects a bearer token. One provider round trip, no
	// retries: retry-masking an auth failure hides real problems.
	VerifyToken(ctx context.Context, token string) (*Identity, error)

	// VerifySession reads the provider session from request cookies and
	// verifies it. Never writes cookies back; session refresh runs earlier
	// in the request pipeline and is not this package's concern.
	VerifySession(ctx context.Context, r *http.Request) (*Identity, error)
}
