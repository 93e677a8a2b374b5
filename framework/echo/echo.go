// Package oidcecho adapts the relying-party middleware to the echo
// framework.
package oidcecho

import (
	"net/http"

	"github.com/labstack/echo/v4"

	oidcrp "github.com/authware/go-oidc-rp"
)

// DefaultClaimsKey is the echo context key verified claims are stored
// under.
const DefaultClaimsKey = "claims"

type middlewareConfig struct {
	errorHandler   func(echo.Context, error)
	contextKey     string
	tokenExtractor oidcrp.TokenExtractor
}

// NewMiddleware builds an echo middleware that verifies bearer tokens
// with the given verification function, typically Verifier.Verify.
func NewMiddleware(verify oidcrp.VerifyToken, opts ...Option) (echo.MiddlewareFunc, error) {
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
			e := echo.New()
			c := e.NewContext(r, w)
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

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)

				if claims, err := oidcrp.ClaimsFromContext(r.Context()); err == nil {
					c.Set(config.contextKey, claims)
				}

				_ = next(c)
			}

			// The error handler already wrote the response when the
			// token check failed, so there is nothing left to return.
			middleware.CheckToken(handler).ServeHTTP(c.Response(), c.Request())
			return nil
		}
	}, nil
}

func defaultErrorHandler(c echo.Context, err error) {
	_ = c.JSON(http.StatusUnauthorized, map[string]string{
		"error": err.Error(),
	})
}

// GetClaims extracts the verified claims from the echo context.
func GetClaims(c echo.Context, contextKey string) (map[string]any, bool) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	claims, ok := c.Get(contextKey).(map[string]any)
	return claims, ok
}
