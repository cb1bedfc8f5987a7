package idp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newProviderStub(t *testing.T, validToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/user":
			if r.Header.Get("Authorization") != "Bearer "+validToken {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.Header.Get("apikey") != "service-key" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "user-1",
				"email": "user@example.com",
				"user_metadata": {"full_name": "Test User"},
				"app_metadata": {"org_id": "9e3a08a3-4613-45f2-8d94-2f3a64d13b39", "role": "manager"}
			}`))
		case "/auth/v1/health":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestClientVerifyToken(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		stub := newProviderStub(t, "good")
		defer stub.Close()

		c := NewClient(stub.URL, "service-key")
		identity, err := c.VerifyToken(ctx, "good")
		require.NoError(t, err)
		require.Equal(t, "user-1", identity.Subject)
		require.Equal(t, "Test User", identity.Name)
		require.Equal(t, "manager", identity.Role)
	})

	t.Run("rejected token", func(t *testing.T) {
		stub := newProviderStub(t, "good")
		defer stub.Close()

		c := NewClient(stub.URL, "service-key")
		_, err := c.VerifyToken(ctx, "bad")
		require.ErrorIs(t, err, ErrVerificationFailed)
	})

	t.Run("empty token", func(t *testing.T) {
		c := NewClient("http://localhost:1", "service-key")
		_, err := c.VerifyToken(ctx, "")
		require.ErrorIs(t, err, ErrVerificationFailed)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		c := NewClient("http://localhost:1", "service-key")
		_, err := c.VerifyToken(ctx, "good")
		require.ErrorIs(t, err, ErrVerificationFailed)
	})
}

func TestClientVerifySession(t *testing.T) {
	stub := newProviderStub(t, "good")
	defer stub.Close()

	c := NewClient(stub.URL, "service-key")
	ctx := context.Background()

	t.Run("cookie carries token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: "good"})

		identity, err := c.VerifySession(ctx, r)
		require.NoError(t, err)
		require.Equal(t, "user-1", identity.Subject)
	})

	t.Run("custom cookie name", func(t *testing.T) {
		custom := NewClient(stub.URL, "service-key", WithSessionCookie("sb-token"))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "sb-token", Value: "good"})

		identity, err := custom.VerifySession(ctx, r)
		require.NoError(t, err)
		require.Equal(t, "user-1", identity.Subject)
	})

	t.Run("missing cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := c.VerifySession(ctx, r)
		require.ErrorIs(t, err, ErrVerificationFailed)
	})
}

func TestClientHealthcheck(t *testing.T) {
	stub := newProviderStub(t, "good")
	defer stub.Close()

	c := NewClient(stub.URL, "service-key")
	require.NoError(t, c.Healthcheck(context.Background()))

	stub.Close()
	require.Error(t, c.Healthcheck(context.Background()))
}
