// Package oidcgin adapts the relying-party middleware to the gin
// framework.
package oidcgin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	oidcrp "github.com/authware/go-oidc-rp"
)

// DefaultClaimsKey is the gin context key verified claims are stored
// under.
const DefaultClaimsKey = "claims"

var (
	// ErrMissingClaims is returned by GetClaims when the context holds
	// no claims.
	ErrMissingClaims = errors.New("no verified claims found in context")

	// ErrInvalidClaims is returned by GetClaims when the stored value
	// has an unexpected type.
	ErrInvalidClaims = errors.New("invalid claims type in context")
)

type middlewareConfig struct {
	errorHandler   func(*gin.Context, error)
	contextKey     string
	tokenExtractor oidcrp.TokenExtractor
}

// Option configures the gin middleware.
type Option func(*middlewareConfig)

// WithErrorHandler replaces the handler invoked on verification errors.
func WithErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *middlewareConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithContextKey changes the gin context key claims are stored under.
func WithContextKey(key string) Option {
	return func(c *middlewareConfig) {
		if key != "" {
			c.contextKey = key
		}
	}
}

// WithTokenExtractor replaces the token extractor.
func WithTokenExtractor(e oidcrp.TokenExtractor) Option {
	return func(c *middlewareConfig) {
		c.tokenExtractor = e
	}
}

// NewMiddleware builds a gin handler that verifies bearer tokens with
// the given verification function, typically Verifier.Verify.
func NewMiddleware(verify oidcrp.VerifyToken, opts ...Option) (gin.HandlerFunc, error) {
	config := &middlewareConfig{
		errorHandler: defaultErrorHandler,
		contextKey:   DefaultClaimsKey,
	}
	for _, opt := range opts {
		opt(config)
	}

	middlewareOpts := []oidcrp.Option{
		oidcrp.WithVerifyToken(verify),
		oidcrp.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			c, ok := r.Context().Value(gin.ContextKey).(*gin.Context)
			if !ok || c == nil {
				oidcrp.DefaultErrorHandler(w, r, err)
				return
			}
			config.errorHandler(c, err)
		}),
	}
	if config.tokenExtractor != nil {
		middlewareOpts = append(middlewareOpts, oidcrp.WithTokenExtractor(config.tokenExtractor))
	}

	middleware, err := oidcrp.New(middlewareOpts...)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		// Make the gin context reachable from the http.Request so the
		// error handler can find it.
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), gin.ContextKey, c))

		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r

			if claims, err := oidcrp.ClaimsFromContext(r.Context()); err == nil {
				c.Set(config.contextKey, claims)
			}

			c.Next()
		}

		middleware.CheckToken(handler).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}, nil
}

func defaultErrorHandler(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": err.Error(),
	})
}

// GetClaims extracts the verified claims from the gin context.
func GetClaims(c *gin.Context, contextKey string) (map[string]any, error) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingClaims
	}
	claims, ok := value.(map[string]any)
	if !ok {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
