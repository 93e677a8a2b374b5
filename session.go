package oidcrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/authware/go-oidc-rp/oidc"
	"github.com/authware/go-oidc-rp/provider"
)

// SessionStore is the session storage collaborator of the session
// middleware. Implementations typically back onto encrypted cookies or a
// server-side session database.
type SessionStore interface {
	// Token returns the stored ID token and refresh token for the
	// request. Empty strings mean no session.
	Token(r *http.Request) (idToken, refreshToken string, err error)
	// Save replaces the stored tokens after a successful refresh.
	Save(w http.ResponseWriter, r *http.Request, token *oidc.TokenResponse) error
	// Clear drops the session.
	Clear(w http.ResponseWriter, r *http.Request) error
}

// TokenRefresher performs the refresh_token grant. *oidc.Client is the
// production implementation.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, cfg oidc.ProviderConfig, tokenEndpoint, refreshToken string) (*oidc.TokenResponse, error)
}

// SessionMiddleware authenticates requests from a stored session token
// instead of an Authorization header. A token that verifies but has
// expired triggers a silent refresh_token grant at the provider; when
// that fails the session is cleared and the request redirected to the
// login URL.
type SessionMiddleware struct {
	registry     *provider.Registry
	verifier     *Verifier
	store        SessionStore
	client       TokenRefresher
	providerName string
	loginURL     string
	logger       Logger
	now          func() time.Time
}

// SessionOption configures the SessionMiddleware.
type SessionOption func(*SessionMiddleware) error

// WithSessionProviderName selects the provider slot used for refresh.
//
// Default: provider.DefaultProviderName
func WithSessionProviderName(name string) SessionOption {
	return func(m *SessionMiddleware) error {
		if name == "" {
			return errors.New("provider name cannot be empty")
		}
		m.providerName = name
		return nil
	}
}

// WithTokenRefresher replaces the token refresh implementation.
func WithTokenRefresher(c TokenRefresher) SessionOption {
	return func(m *SessionMiddleware) error {
		if c == nil {
			return errors.New("token refresher cannot be nil")
		}
		m.client = c
		return nil
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l Logger) SessionOption {
	return func(m *SessionMiddleware) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		m.logger = l
		return nil
	}
}

// NewSessionMiddleware builds a session middleware. Requests without a
// usable session are redirected to loginURL.
func NewSessionMiddleware(registry *provider.Registry, verifier *Verifier, store SessionStore, loginURL string, opts ...SessionOption) (*SessionMiddleware, error) {
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if verifier == nil {
		return nil, errors.New("verifier cannot be nil")
	}
	if store == nil {
		return nil, errors.New("session store cannot be nil")
	}
	if loginURL == "" {
		return nil, errors.New("login URL cannot be empty")
	}

	m := &SessionMiddleware{
		registry:     registry,
		verifier:     verifier,
		store:        store,
		client:       oidc.NewClient(),
		providerName: provider.DefaultProviderName,
		loginURL:     loginURL,
		logger:       NoopLogger{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handle wraps next with session-token authentication.
func (m *SessionMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idToken, refreshToken, err := m.store.Token(r)
		if err != nil || idToken == "" {
			m.redirectToLogin(w, r)
			return
		}

		claims, err := m.verifier.Verify(r.Context(), idToken)
		if err != nil {
			m.logger.Debugf("session token failed verification: %v", err)
			m.clearAndRedirect(w, r)
			return
		}

		if m.expired(claims) {
			claims, err = m.refreshSession(w, r, refreshToken)
			if err != nil {
				m.logger.Infof("session refresh failed: %v", err)
				m.clearAndRedirect(w, r)
				return
			}
		}

		r = r.Clone(NewContextWithClaims(r.Context(), claims))
		next.ServeHTTP(w, r)
	})
}

// refreshSession exchanges the refresh token at the provider's token
// endpoint and verifies the replacement ID token before storing it.
func (m *SessionMiddleware) refreshSession(w http.ResponseWriter, r *http.Request, refreshToken string) (map[string]any, error) {
	if refreshToken == "" {
		return nil, errors.New("session has no refresh token")
	}

	p, err := m.registry.Provider(m.providerName)
	if err != nil {
		return nil, err
	}
	doc, err := p.Document(r.Context())
	if err != nil {
		return nil, err
	}

	token, err := m.client.RefreshToken(r.Context(), p.Config(), doc.TokenEndpoint, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh token exchange failed: %w", err)
	}

	claims, err := m.verifier.Verify(r.Context(), token.IDToken)
	if err != nil {
		return nil, fmt.Errorf("refreshed token failed verification: %w", err)
	}

	if err := m.store.Save(w, r, token); err != nil {
		return nil, fmt.Errorf("could not save refreshed session: %w", err)
	}

	return claims, nil
}

// expired reports whether the claims carry an exp in the past. A missing
// or malformed exp counts as not expired; signature validity was already
// established.
func (m *SessionMiddleware) expired(claims map[string]any) bool {
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return int64(exp) <= m.now().Unix()
}

func (m *SessionMiddleware) clearAndRedirect(w http.ResponseWriter, r *http.Request) {
	if err := m.store.Clear(w, r); err != nil {
		m.logger.Warnf("could not clear session: %v", err)
	}
	m.redirectToLogin(w, r)
}

func (m *SessionMiddleware) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, m.loginURL, http.StatusFound)
}
