// Package server exposes the REST surface: membership administration, API
// key lifecycle, property management and the audit history views behind
// them. Authorization is resolved once per request by middleware; handlers
// read the result and apply role policy.
package server

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/lodgepole-labs/lodgepole/internal/apikey"
	"github.com/lodgepole-labs/lodgepole/internal/audit"
	"github.com/lodgepole-labs/lodgepole/internal/auth"
	lphttp "github.com/lodgepole-labs/lodgepole/internal/http"
	"github.com/lodgepole-labs/lodgepole/internal/logger"
	"github.com/lodgepole-labs/lodgepole/internal/ratelimit"
	"github.com/lodgepole-labs/lodgepole/internal/store"
	"github.com/lodgepole-labs/lodgepole/internal/telemetry"
)

// Config carries the server's collaborators.
type Config struct {
	Authenticator  *auth.Authenticator
	Memberships    store.MembershipStore
	Properties     store.PropertyStore
	AuditLog       store.AuditStore
	APIKeys        *apikey.Service
	Recorder       *audit.Recorder
	Limiter        *ratelimit.Limiter
	AllowedOrigins []string
}

// Server wires the services behind the HTTP surface.
type Server struct {
	cfg        Config
	members    *MemberService
	apiKeys    *APIKeyService
	properties *PropertyService
}

// NewServer creates a server from its collaborators.
func NewServer(cfg Config) *Server {
	return &Server{
		cfg:        cfg,
		members:    NewMemberService(cfg.Memberships, cfg.Recorder),
		apiKeys:    NewAPIKeyService(cfg.APIKeys, cfg.Recorder),
		properties: NewPropertyService(cfg.Properties, cfg.AuditLog, cfg.Recorder),
	}
}

// Handler builds the full middleware chain and routes. Order matters:
// request id first so every later stage can correlate, client IP next for
// audit and keying, then logging, rate limiting and authentication.
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer, outside authentication.
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authed := auth.Middleware(s.cfg.Authenticator, writeError)
	principalOnly := auth.PrincipalMiddleware(s.cfg.Authenticator, writeError)

	mux.Handle("GET /v1/me", principalOnly(http.HandlerFunc(s.handleMe)))

	mux.Handle("GET /v1/members", authed(http.HandlerFunc(s.members.handleList)))
	mux.Handle("PATCH /v1/members/{userID}/role", authed(http.HandlerFunc(s.members.handleChangeRole)))
	mux.Handle("DELETE /v1/members/{userID}", authed(http.HandlerFunc(s.members.handleDeactivate)))
	mux.Handle("POST /v1/members/{userID}/restore", authed(http.HandlerFunc(s.members.handleRestore)))

	mux.Handle("POST /v1/apikeys", authed(http.HandlerFunc(s.apiKeys.handleCreate)))
	mux.Handle("GET /v1/apikeys", authed(http.HandlerFunc(s.apiKeys.handleList)))
	mux.Handle("DELETE /v1/apikeys/{id}", authed(http.HandlerFunc(s.apiKeys.handleRevoke)))
	mux.Handle("POST /v1/apikeys/{id}/rotate", authed(http.HandlerFunc(s.apiKeys.handleRotate)))

	mux.Handle("POST /v1/properties", authed(http.HandlerFunc(s.properties.handleCreate)))
	mux.Handle("GET /v1/properties", authed(http.HandlerFunc(s.properties.handleList)))
	mux.Handle("GET /v1/properties/{id}", authed(http.HandlerFunc(s.properties.handleGet)))
	mux.Handle("PATCH /v1/properties/{id}", authed(http.HandlerFunc(s.properties.handleUpdate)))
	mux.Handle("DELETE /v1/properties/{id}", authed(http.HandlerFunc(s.properties.handleDelete)))
	mux.Handle("POST /v1/properties/{id}/restore", authed(http.HandlerFunc(s.properties.handleRestore)))
	mux.Handle("GET /v1/properties/{id}/audit", authed(http.HandlerFunc(s.properties.handleAuditHistory)))

	var handler http.Handler = mux
	handler = s.rateLimitMiddleware(handler)
	handler = logger.RequestLogging(log)(handler)
	handler = lphttp.ClientIPMiddleware()(handler)
	handler = lphttp.RequestIDMiddleware()(handler)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", audit.SourceHeader, lphttp.RequestIDHeader},
		AllowCredentials: true,
	})

	return c.Handler(handler)
}

// rateLimitMiddleware applies the advisory per-IP limit ahead of
// authentication so floods of bad credentials are cut off early. The health
// check is exempt.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if s.cfg.Limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if ok, retryAfter := s.cfg.Limiter.Allow(lphttp.ClientIPFromContext(r.Context())); !ok {
			telemetry.GetMetrics().RateLimitRejectionsTotal.Add(r.Context(), 1)
			writeRateLimited(w, r, retryAfter)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleMe returns the caller's verified identity. This is the one endpoint
// usable before onboarding completes, so it only requires a principal.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	pc, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, pc.Principal)
}
