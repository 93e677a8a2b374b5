package oidc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ClientDiscovery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/.well-known/openid-configuration", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"issuer": "https://issuer.example.com",
			"jwks_uri": "https://issuer.example.com/keys",
			"token_endpoint": "https://issuer.example.com/token",
			"response_types_supported": ["code"]
		}`))
	}))
	defer server.Close()

	client := NewClient(WithHTTPClient(server.Client()))

	doc, err := client.Discovery(context.Background(), ProviderConfig{IssuerURL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, "https://issuer.example.com", doc.Issuer)
	assert.Equal(t, "https://issuer.example.com/keys", doc.JWKSURI)
	assert.Equal(t, "https://issuer.example.com/token", doc.TokenEndpoint)
}

func Test_ClientDiscoveryErrors(t *testing.T) {
	t.Run("It fails on a non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient()
		_, err := client.Discovery(context.Background(), ProviderConfig{IssuerURL: server.URL})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("It fails when the issuer is unreachable", func(t *testing.T) {
		client := NewClient()
		_, err := client.Discovery(context.Background(), ProviderConfig{IssuerURL: "http://127.0.0.1:1"})
		require.Error(t, err)
	})
}

func Test_ClientKeys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=3600")
		w.Header().Set("Age", "10")
		_, _ = w.Write([]byte(`{"keys":[]}`))
	}))
	defer server.Close()

	client := NewClient()

	body, header, err := client.Keys(context.Background(), server.URL)
	require.NoError(t, err)

	assert.JSONEq(t, `{"keys":[]}`, string(body))

	remaining, known := RemainingLifetime(header)
	require.True(t, known)
	assert.Equal(t, int64(3590), remaining)
}

func Test_ClientRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret-1", r.PostForm.Get("client_secret"))
		assert.Equal(t, "openid profile", r.PostForm.Get("scope"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "access-2",
			"refresh_token": "refresh-2",
			"id_token": "id-2",
			"token_type": "Bearer",
			"expires_in": 300
		}`))
	}))
	defer server.Close()

	client := NewClient()
	cfg := ProviderConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		Scopes:       []string{"openid", "profile"},
	}

	token, err := client.RefreshToken(context.Background(), cfg, server.URL, "refresh-1")
	require.NoError(t, err)

	assert.Equal(t, "access-2", token.AccessToken)
	assert.Equal(t, "refresh-2", token.RefreshToken)
	assert.Equal(t, "id-2", token.IDToken)
	assert.Equal(t, int64(300), token.ExpiresIn)
}

func Test_ClientRefreshTokenErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	client := NewClient()
	_, err := client.RefreshToken(context.Background(), ProviderConfig{ClientID: "c"}, server.URL, "stale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
