package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// maxResponseSize bounds discovery, JWKS and token response bodies to
// protect against memory exhaustion from a misbehaving provider.
const maxResponseSize = 1 << 20 // 1 MB

// ProviderConfig is the static configuration of one identity provider
// slot. It never changes after the provider is started.
type ProviderConfig struct {
	// Name identifies the provider slot, e.g. "default".
	Name string
	// IssuerURL is the provider's issuer, used to locate the well-known
	// configuration endpoint.
	IssuerURL string
	// ClientID and ClientSecret authenticate the relying party at the
	// token endpoint.
	ClientID     string
	ClientSecret string
	// RedirectURI is sent along with token requests where required.
	RedirectURI string
	// Scopes requested during token refresh.
	Scopes []string
}

// TokenResponse is the provider's answer to a token grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	IDToken      string `json:"id_token"`
	Scope        string `json:"scope"`
}

// Client issues the outbound HTTP calls a relying party needs: fetching
// the discovery document, fetching the JWKS, and exchanging a refresh
// token. It holds no state beyond the HTTP client and is safe for
// concurrent use.
type Client struct {
	httpc *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for outbound calls.
// Timeouts and retry behavior belong to the supplied client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpc = c
		}
	}
}

// NewClient builds a Client with a 30 second default timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpc: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Discovery fetches and normalizes the provider's discovery document from
// the well-known configuration endpoint under the issuer URL.
func (c *Client) Discovery(ctx context.Context, cfg ProviderConfig) (Document, error) {
	issuerURL, err := url.Parse(cfg.IssuerURL)
	if err != nil {
		return Document{}, fmt.Errorf("could not parse issuer URL: %w", err)
	}
	issuerURL.Path = path.Join(issuerURL.Path, ".well-known/openid-configuration")

	body, _, err := c.get(ctx, issuerURL.String())
	if err != nil {
		return Document{}, fmt.Errorf("could not get discovery document from %s: %w", issuerURL, err)
	}

	return ParseDocument(body)
}

// Keys fetches the raw JWKS body from the given URI together with the
// response headers, so the caller can derive the key set's remaining
// lifetime from the HTTP caching headers.
func (c *Client) Keys(ctx context.Context, jwksURI string) ([]byte, http.Header, error) {
	body, header, err := c.get(ctx, jwksURI)
	if err != nil {
		return nil, nil, fmt.Errorf("could not get JWKS from %s: %w", jwksURI, err)
	}
	return body, header, nil
}

// RefreshToken performs a refresh_token grant at the provider's token
// endpoint and returns the new token set.
func (c *Client) RefreshToken(ctx context.Context, cfg ProviderConfig, tokenEndpoint, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", cfg.ClientID)
	if cfg.ClientSecret != "" {
		form.Set("client_secret", cfg.ClientSecret)
	}
	if len(cfg.Scopes) > 0 {
		form.Set("scope", strings.Join(cfg.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("could not build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("could not read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("could not decode token response: %w", err)
	}
	return &token, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("could not build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("request returned status %d, expected 200", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("could not read response body: %w", err)
	}

	return body, resp.Header, nil
}
