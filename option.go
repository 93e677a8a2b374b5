package oidcrp

import (
	"errors"
	"net/http"
)

// Option configures the Middleware. Options return an error for invalid
// values.
type Option func(*Middleware) error

// Sentinel errors for configuration validation.
var (
	ErrVerifyTokenNil    = errors.New("verifyToken cannot be nil (use WithVerifyToken)")
	ErrErrorHandlerNil   = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil = errors.New("tokenExtractor cannot be nil")
	ErrExclusionsEmpty   = errors.New("exclusion URL list cannot be empty")
	ErrLoggerNil         = errors.New("logger cannot be nil")
)

// WithVerifyToken sets the verification function the middleware calls
// for every extracted token (REQUIRED). Typically Verifier.Verify.
func WithVerifyToken(v VerifyToken) Option {
	return func(m *Middleware) error {
		if v == nil {
			return ErrVerifyTokenNil
		}
		m.verifyToken = v
		return nil
	}
}

// WithErrorHandler replaces the handler called on extraction and
// verification errors.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor replaces the function extracting the token from the
// request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *Middleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithCredentialsOptional makes requests without a token pass through
// unauthenticated instead of failing.
//
// Default: false (credentials required)
func WithCredentialsOptional(value bool) Option {
	return func(m *Middleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions controls whether OPTIONS requests have their
// token checked.
//
// Default: true
func WithValidateOnOptions(value bool) Option {
	return func(m *Middleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithExclusionURLs configures URL patterns that skip the token check.
// Entries match either the full request URL or just its path.
func WithExclusionURLs(exclusions []string) Option {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionsEmpty
		}
		m.exclusionHandler = func(r *http.Request) bool {
			fullURL := r.URL.String()
			for _, exclusion := range exclusions {
				if fullURL == exclusion || r.URL.Path == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithLogger sets an optional logger for the middleware.
func WithLogger(logger Logger) Option {
	return func(m *Middleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}
