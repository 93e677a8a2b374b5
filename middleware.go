package oidcrp

import (
	"context"
	"fmt"
	"net/http"
)

// VerifyToken takes a raw bearer token and returns its claims when the
// token verifies against the provider's current key set. Verifier.Verify
// is the default implementation; tests substitute their own.
type VerifyToken func(ctx context.Context, token string) (map[string]any, error)

// Middleware checks the bearer token of inbound requests before handing
// them to the wrapped handler. Verified claims are stored in the request
// context under ContextKey.
type Middleware struct {
	verifyToken         VerifyToken
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	credentialsOptional bool
	validateOnOptions   bool
	exclusionHandler    func(r *http.Request) bool
	logger              Logger
}

// New constructs a Middleware from the supplied options.
// WithVerifyToken is required.
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		errorHandler:        DefaultErrorHandler,
		tokenExtractor:      AuthHeaderTokenExtractor,
		credentialsOptional: false,
		validateOnOptions:   true,
		logger:              NoopLogger{},
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.verifyToken == nil {
		return nil, ErrVerifyTokenNil
	}

	return m, nil
}

// CheckToken wraps next with bearer-token verification. A missing token
// fails with ErrTokenMissing unless credentials are optional; a token
// that fails verification always produces ErrTokenInvalid through the
// configured error handler.
func (m *Middleware) CheckToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exclusionHandler != nil && m.exclusionHandler(r) {
			m.logger.Debugf("skipping token check for excluded URL %s", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		if !m.validateOnOptions && r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.tokenExtractor(r)
		if err != nil {
			// Not ErrTokenMissing: the extractor found credentials it
			// could not make sense of.
			m.logger.Warnf("could not extract token: %v", err)
			m.errorHandler(w, r, fmt.Errorf("error extracting token: %w", err))
			return
		}

		if token == "" {
			if m.credentialsOptional {
				next.ServeHTTP(w, r)
				return
			}
			m.errorHandler(w, r, ErrTokenMissing)
			return
		}

		claims, err := m.verifyToken(r.Context(), token)
		if err != nil {
			m.logger.Debugf("token verification failed: %v", err)
			m.errorHandler(w, r, &invalidError{details: err})
			return
		}

		r = r.Clone(NewContextWithClaims(r.Context(), claims))
		next.ServeHTTP(w, r)
	})
}
