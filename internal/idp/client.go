package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog/log"
)

// DefaultSessionCookie is the provider cookie carrying the session access
// token.
const DefaultSessionCookie = "lp-access-token"

// Client verifies credentials by calling the identity provider's
// introspection endpoint. Responses the provider marks cacheable are cached
// in memory.
type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	sessionCookie string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithSessionCookie overrides the session cookie name.
func WithSessionCookie(name string) ClientOption {
	return func(c *Client) { c.sessionCookie = name }
}

// NewClient creates an introspection client for the provider at baseURL.
// apiKey is the service-level key the provider requires alongside user
// credentials.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Transport: httpcache.NewTransport(httpcache.NewMemoryCache()),
			Timeout:   10 * time.Second,
		},
		sessionCookie: DefaultSessionCookie,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// userResponse is the provider's introspection payload.
type userResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserMetadata struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
	AppMetadata struct {
		OrgID string `json:"org_id"`
		Role  string `json:"role"`
	} `json:"app_metadata"`
}

// VerifyToken implements Verifier.
func (c *Client) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrVerificationFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, ErrVerificationFailed
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transient provider errors are not retried; they surface to the
		// caller as a failed verification like any other.
		log.Debug().Err(err).Msg("Identity provider call failed")
		return nil, ErrVerificationFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Msg("Identity provider rejected credential")
		return nil, ErrVerificationFailed
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, ErrVerificationFailed
	}
	if user.ID == "" {
		return nil, ErrVerificationFailed
	}

	return &Identity{
		Subject: user.ID,
		Email:   user.Email,
		Name:    user.UserMetadata.FullName,
		OrgID:   user.AppMetadata.OrgID,
		Role:    user.AppMetadata.Role,
	}, nil
}

// VerifySession implements Verifier. The session cookie carries the
// provider's access token; verification introspects it the same way as a
// bearer token. No cookies are written back.
func (c *Client) VerifySession(ctx context.Context, r *http.Request) (*Identity, error) {
	cookie, err := r.Cookie(c.sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, ErrVerificationFailed
	}
	return c.VerifyToken(ctx, cookie.Value)
}

// Healthcheck reports whether the provider is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity provider health returned %d", resp.StatusCode)
	}
	return nil
}
