package auth

import (
	"net/http"
)

// ErrorWriter renders an authorization failure to the response. The server
// package supplies one that writes the standard JSON error body.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware resolves the request's credentials and attaches the full
// authorization context before calling the wrapped handler. Failures are
// written by onError and the handler never runs.
func Middleware(a *Authenticator, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := a.ResolveContext(r.Context(), r)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ac)))
		})
	}
}

// PrincipalMiddleware is the reduced variant for routes that only need an
// authenticated identity. Identities without an organization or with an
// unknown role still pass.
func PrincipalMiddleware(a *Authenticator, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pc, err := a.ResolvePrincipal(r.Context(), r)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), pc)))
		})
	}
}
