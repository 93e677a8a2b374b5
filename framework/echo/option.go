package oidcecho

import (
	"github.com/labstack/echo/v4"

	oidcrp "github.com/authware/go-oidc-rp"
)

// Option configures the echo middleware.
type Option func(*middlewareConfig)

// WithErrorHandler replaces the handler invoked on verification errors.
func WithErrorHandler(h func(echo.Context, error)) Option {
	return func(c *middlewareConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithContextKey changes the echo context key claims are stored under.
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
