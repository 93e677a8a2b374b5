package oidcrp

import (
	"errors"
	"net/http"
	"strings"
)

// TokenExtractor is a function that takes a request as input and returns
// either a token or an error. An error should only be returned if an
// attempt to specify a token was found, but the information was somehow
// incorrectly formed. In the case where a token is simply not present,
// this should not be treated as an error. An empty string should be
// returned in that case.
type TokenExtractor func(r *http.Request) (string, error)

// AuthHeaderTokenExtractor extracts the token from the Authorization
// header. The scheme is matched case-insensitively, an optional colon
// after the scheme is accepted, and surrounding whitespace is trimmed,
// so "Bearer x", "bearer: x" and "  BEARER x  " all yield "x".
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return "", nil // No error, just no token.
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 {
		return "", errors.New("Authorization header format must be Bearer {token}")
	}

	scheme := strings.TrimSuffix(parts[0], ":")
	if !strings.EqualFold(scheme, "bearer") {
		return "", errors.New("Authorization header format must be Bearer {token}")
	}

	return parts[1], nil
}

// CookieTokenExtractor builds a TokenExtractor that reads the token from
// the named cookie.
func CookieTokenExtractor(cookieName string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if err == http.ErrNoCookie {
			return "", nil // No cookie, then no token, so no error.
		}
		return cookie.Value, nil
	}
}

// ParameterTokenExtractor returns a TokenExtractor that reads the token
// from the given query string parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return r.URL.Query().Get(param), nil
	}
}

// MultiTokenExtractor returns a TokenExtractor that runs the given
// extractors in order and takes the first non-empty token. An extractor
// error is returned immediately.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
