// Package http carries request-scoped middleware shared by the server:
// request IDs and client IP extraction.
package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	clientIPContextKey  contextKey = "client_ip"
	requestIDContextKey contextKey = "request_id"
)

// RequestIDHeader carries the request id on responses and, when a client
// supplies one, on requests.
const RequestIDHeader = "X-Request-Id"

// ExtractClientIP extracts the client IP address from the request.
// Checks X-Forwarded-For header first (for proxied requests), then X-Real-IP, finally RemoteAddr.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP in the list (comma-separated)
		if before, _, ok := strings.Cut(xff, ","); ok {
			return before
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr, stripping port
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

// ClientIPFromContext extracts the client IP from the request context.
// This should be called from handlers wrapped by ClientIPMiddleware.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

// ClientIPMiddleware extracts and stores the client IP in the request
// context so authentication and audit logging can use it.
func ClientIPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ExtractClientIP(r)
			ctx := context.WithValue(r.Context(), clientIPContextKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// newRequestID issues a time-ordered (v7) id so ids sort by arrival in logs.
func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// RequestIDFromContext extracts the request id from the request context.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// RequestIDMiddleware assigns each request an id, honoring a client-supplied
// one, and echoes it on the response so error bodies and logs correlate.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = newRequestID()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
