package idp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestNewLocalVerifier(t *testing.T) {
	t.Run("short secret rejected", func(t *testing.T) {
		_, err := NewLocalVerifier("too-short", "")
		require.Error(t, err)
	})

	t.Run("defaults session cookie", func(t *testing.T) {
		v, err := NewLocalVerifier(testSecret, "")
		require.NoError(t, err)
		require.Equal(t, DefaultSessionCookie, v.sessionCookie)
	})
}

func TestLocalVerifyToken(t *testing.T) {
	v, err := NewLocalVerifier(testSecret, "")
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub":   "user-1",
			"email": "user@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
			"user_metadata": map[string]any{
				"full_name": "Test User",
			},
			"app_metadata": map[string]any{
				"org_id": "9e3a08a3-4613-45f2-8d94-2f3a64d13b39",
				"role":   "admin",
			},
		})

		identity, err := v.VerifyToken(ctx, token)
		require.NoError(t, err)
		require.Equal(t, "user-1", identity.Subject)
		require.Equal(t, "user@example.com", identity.Email)
		require.Equal(t, "Test User", identity.Name)
		require.Equal(t, "9e3a08a3-4613-45f2-8d94-2f3a64d13b39", identity.OrgID)
		require.Equal(t, "admin", identity.Role)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "ffffffffffffffffffffffffffffffff", jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err := v.VerifyToken(ctx, token)
		require.ErrorIs(t, err, ErrVerificationFailed)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		_, err := v.VerifyToken(ctx, token)
		require.ErrorIs(t, err, ErrVerificationFailed)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err := v.VerifyToken(ctx, token)
		require.ErrorIs(t, err, ErrVerificationFailed)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := v.VerifyToken(ctx, "not.a.jwt")
		require.ErrorIs(t, err, ErrVerificationFailed)
	})
}

func TestLocalVerifySession(t *testing.T) {
	v, err := NewLocalVerifier(testSecret, "")
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("cookie carries token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": "user-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: token})

		identity, err := v.VerifySession(ctx, r)
		require.NoError(t, err)
		require.Equal(t, "user-1", identity.Subject)
	})

	t.Run("no cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := v.VerifySession(ctx, r)
		require.ErrorIs(t, err, ErrVerificationFailed)
	})
}
