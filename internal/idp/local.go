package idp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// LocalVerifier verifies provider-issued JWTs against a shared HS256 secret
// without a network round trip. Used when the deployment shares the signing
// secret with the identity provider.
type LocalVerifier struct {
	secret        []byte
	sessionCookie string
}

// localClaims mirrors the provider's token claims, including the app
// metadata block where org and role live.
type localClaims struct {
	jwt.RegisteredClaims

	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
	AppMetadata struct {
		OrgID string `json:"org_id"`
		Role  string `json:"role"`
	} `json:"app_metadata"`
}

// NewLocalVerifier creates a shared-secret verifier. The secret must be at
// least 32 bytes.
func NewLocalVerifier(secret string, sessionCookie string) (*LocalVerifier, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if sessionCookie == "" {
		sessionCookie = DefaultSessionCookie
	}
	return &LocalVerifier{secret: []byte(secret), sessionCookie: sessionCookie}, nil
}

// VerifyToken implements Verifier.
func (v *LocalVerifier) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &localClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("invalid signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		log.Debug().Err(err).Msg("JWT parse error")
		return nil, ErrVerificationFailed
	}
	if !parsed.Valid {
		return nil, ErrVerificationFailed
	}

	claims, ok := parsed.Claims.(*localClaims)
	if !ok {
		return nil, ErrVerificationFailed
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrVerificationFailed
	}
	if claims.Subject == "" {
		return nil, ErrVerificationFailed
	}

	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.UserMetadata.FullName,
		OrgID:   claims.AppMetadata.OrgID,
		Role:    claims.AppMetadata.Role,
	}, nil
}

// VerifySession implements Verifier.
func (v *LocalVerifier) VerifySession(ctx context.Context, r *http.Request) (*Identity, error) {
	cookie, err := r.Cookie(v.sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, ErrVerificationFailed
	}
	return v.VerifyToken(ctx, cookie.Value)
}
