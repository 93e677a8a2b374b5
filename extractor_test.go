package oidcrp

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_AuthHeaderTokenExtractor(t *testing.T) {
	testCases := []struct {
		name      string
		header    string
		wantToken string
		wantError string
	}{
		{
			name: "empty / no header",
		},
		{
			name:      "token in header",
			header:    "Bearer i-am-a-token",
			wantToken: "i-am-a-token",
		},
		{
			name:      "lowercase scheme",
			header:    "bearer i-am-a-token",
			wantToken: "i-am-a-token",
		},
		{
			name:      "uppercase scheme",
			header:    "BEARER i-am-a-token",
			wantToken: "i-am-a-token",
		},
		{
			name:      "scheme with trailing colon",
			header:    "Bearer: i-am-a-token",
			wantToken: "i-am-a-token",
		},
		{
			name:      "surrounding whitespace",
			header:    "  Bearer i-am-a-token  ",
			wantToken: "i-am-a-token",
		},
		{
			name:      "no bearer scheme",
			header:    "Basic dXNlcjpwYXNz",
			wantError: "Authorization header format must be Bearer {token}",
		},
		{
			name:      "scheme without token",
			header:    "Bearer",
			wantError: "Authorization header format must be Bearer {token}",
		},
		{
			name:      "too many parts",
			header:    "Bearer one two",
			wantError: "Authorization header format must be Bearer {token}",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			request, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
			require.NoError(t, err)
			if tc.header != "" {
				request.Header.Set("Authorization", tc.header)
			}

			token, err := AuthHeaderTokenExtractor(request)
			if tc.wantError != "" {
				assert.EqualError(t, err, tc.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantToken, token)
		})
	}
}

func Test_CookieTokenExtractor(t *testing.T) {
	t.Run("It reads the named cookie", func(t *testing.T) {
		request, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
		require.NoError(t, err)
		request.AddCookie(&http.Cookie{Name: "token", Value: "i-am-a-token"})

		token, err := CookieTokenExtractor("token")(request)
		require.NoError(t, err)
		assert.Equal(t, "i-am-a-token", token)
	})

	t.Run("A missing cookie is not an error", func(t *testing.T) {
		request, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
		require.NoError(t, err)

		token, err := CookieTokenExtractor("token")(request)
		require.NoError(t, err)
		assert.Empty(t, token)
	})
}

func Test_ParameterTokenExtractor(t *testing.T) {
	request, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)
	request.URL.RawQuery = url.Values{"token": []string{"i-am-a-token"}}.Encode()

	token, err := ParameterTokenExtractor("token")(request)
	require.NoError(t, err)
	assert.Equal(t, "i-am-a-token", token)
}

func Test_MultiTokenExtractor(t *testing.T) {
	t.Run("It takes the first non-empty token", func(t *testing.T) {
		request, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
		require.NoError(t, err)
		request.Header.Set("Authorization", "Bearer from-header")
		request.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})

		extractor := MultiTokenExtractor(CookieTokenExtractor("token"), AuthHeaderTokenExtractor)

		token, err := extractor(request)
		require.NoError(t, err)
		assert.Equal(t, "from-cookie", token)
	})

	t.Run("It falls through empty extractors", func(t *testing.T) {
		request, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
		require.NoError(t, err)
		request.Header.Set("Authorization", "Bearer from-header")

		extractor := MultiTokenExtractor(CookieTokenExtractor("token"), AuthHeaderTokenExtractor)

		token, err := extractor(request)
		require.NoError(t, err)
		assert.Equal(t, "from-header", token)
	})

	t.Run("It stops on the first extractor error", func(t *testing.T) {
		request, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
		require.NoError(t, err)
		request.Header.Set("Authorization", "Basic nope")

		extractor := MultiTokenExtractor(AuthHeaderTokenExtractor, ParameterTokenExtractor("token"))

		_, err = extractor(request)
		require.Error(t, err)
	})

	t.Run("No extractor finding a token is not an error", func(t *testing.T) {
		request, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
		require.NoError(t, err)

		extractor := MultiTokenExtractor(AuthHeaderTokenExtractor, CookieTokenExtractor("token"))

		token, err := extractor(request)
		require.NoError(t, err)
		assert.Empty(t, token)
	})
}
