package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	lphttp "github.com/lodgepole-labs/lodgepole/internal/http"
	"github.com/lodgepole-labs/lodgepole/internal/idp"
	"github.com/lodgepole-labs/lodgepole/internal/models"
)

// APIKeyTokenPrefix marks a bearer credential as an API key rather than a
// provider token. Keys are minted with this prefix and routed to the key
// validator instead of the identity provider.
const APIKeyTokenPrefix = "lpk_"

// APIKeyValidator authenticates an API key credential and produces a full
// authorization context. Implemented by the apikey package; declared here so
// the resolver does not depend on it.
type APIKeyValidator interface {
	ValidateKey(ctx context.Context, plaintext, clientIP string) (*Context, error)
}

// Authenticator resolves request credentials into authorization contexts.
// Resolution order is fixed: Authorization bearer first, session cookie
// second. When both are present only the bearer is considered, even if it
// fails and the cookie would have succeeded.
type Authenticator struct {
	verifier idp.Verifier
	apiKeys  APIKeyValidator
}

// NewAuthenticator creates an authenticator. apiKeys may be nil for
// deployments without API key support; lpk_ bearers then fail verification
// like any other bad credential.
func NewAuthenticator(verifier idp.Verifier, apiKeys APIKeyValidator) *Authenticator {
	return &Authenticator{verifier: verifier, apiKeys: apiKeys}
}

// bearerToken extracts the Authorization bearer token, or "" when the header
// is absent or not a bearer scheme.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return ""
	}
	return strings.TrimSpace(token)
}

// ResolveContext authenticates the request and builds a full authorization
// context. Every failure surfaces as ErrUnauthenticated except verified
// identities with a missing organization or unknown role, which map to
// ErrNoOrganization and ErrInvalidRole.
func (a *Authenticator) ResolveContext(ctx context.Context, r *http.Request) (*Context, error) {
	if token := bearerToken(r); token != "" {
		if strings.HasPrefix(token, APIKeyTokenPrefix) {
			return a.validateAPIKey(ctx, token, clientIP(ctx, r))
		}
		identity, err := a.verifier.VerifyToken(ctx, token)
		if err != nil {
			log.Debug().Msg("Bearer token verification failed")
			return nil, ErrUnauthenticated
		}
		return BuildContext(identity)
	}

	identity, err := a.verifier.VerifySession(ctx, r)
	if err != nil {
		log.Debug().Msg("Session verification failed")
		return nil, ErrUnauthenticated
	}
	return BuildContext(identity)
}

// ResolvePrincipal authenticates the request without requiring organization
// membership or a valid role. Used by endpoints that act on the identity
// alone.
func (a *Authenticator) ResolvePrincipal(ctx context.Context, r *http.Request) (*PrincipalContext, error) {
	if token := bearerToken(r); token != "" {
		if strings.HasPrefix(token, APIKeyTokenPrefix) {
			ac, err := a.validateAPIKey(ctx, token, clientIP(ctx, r))
			if err != nil {
				return nil, err
			}
			return &PrincipalContext{Principal: ac.Principal}, nil
		}
		identity, err := a.verifier.VerifyToken(ctx, token)
		if err != nil {
			return nil, ErrUnauthenticated
		}
		return &PrincipalContext{Principal: principalOf(identity)}, nil
	}

	identity, err := a.verifier.VerifySession(ctx, r)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return &PrincipalContext{Principal: principalOf(identity)}, nil
}

// clientIP prefers the IP the middleware stored on the context, falling back
// to extracting it from the request directly when auth runs outside the
// standard chain.
func clientIP(ctx context.Context, r *http.Request) string {
	if ip := lphttp.ClientIPFromContext(ctx); ip != "" {
		return ip
	}
	return lphttp.ExtractClientIP(r)
}

func (a *Authenticator) validateAPIKey(ctx context.Context, token, ip string) (*Context, error) {
	if a.apiKeys == nil {
		return nil, ErrUnauthenticated
	}
	ac, err := a.apiKeys.ValidateKey(ctx, token, ip)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return ac, nil
}

// BuildContext turns a verified identity into an authorization context.
// Organization absence and unknown roles are distinct failures so callers
// can be told to finish onboarding versus contact an administrator.
func BuildContext(identity *idp.Identity) (*Context, error) {
	if identity.OrgID == "" {
		return nil, ErrNoOrganization
	}
	orgID, err := uuid.Parse(identity.OrgID)
	if err != nil {
		return nil, ErrNoOrganization
	}

	role, ok := models.ParseRole(identity.Role)
	if !ok {
		log.Debug().Str("role", identity.Role).Msg("Identity carries unknown role")
		return nil, ErrInvalidRole
	}

	return &Context{
		Principal: principalOf(identity),
		OrgID:     orgID,
		Role:      role,
	}, nil
}

func principalOf(identity *idp.Identity) models.Principal {
	return models.Principal{
		SubjectID:   identity.Subject,
		Email:       identity.Email,
		DisplayName: identity.Name,
	}
}
