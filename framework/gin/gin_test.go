package oidcgin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oidcrp "github.com/authware/go-oidc-rp"
)

func acceptAll(claims map[string]any) oidcrp.VerifyToken {
	return func(context.Context, string) (map[string]any, error) {
		return claims, nil
	}
}

func rejectAll(err error) oidcrp.VerifyToken {
	return func(context.Context, string) (map[string]any, error) {
		return nil, err
	}
}

func newTestRouter(t *testing.T, middleware gin.HandlerFunc, handler gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware)
	router.GET("/", handler)
	return router
}

func Test_NewMiddleware(t *testing.T) {
	t.Run("It requires a verification function", func(t *testing.T) {
		_, err := NewMiddleware(nil)
		require.Error(t, err)
	})

	t.Run("It stores claims in the gin context", func(t *testing.T) {
		claims := map[string]any{"sub": "user-1"}
		middleware, err := NewMiddleware(acceptAll(claims))
		require.NoError(t, err)

		router := newTestRouter(t, middleware, func(c *gin.Context) {
			got, err := GetClaims(c, "")
			require.NoError(t, err)
			assert.Equal(t, claims, got)
			c.Status(http.StatusOK)
		})

		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Bearer good-token")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("It aborts the chain on an invalid token", func(t *testing.T) {
		middleware, err := NewMiddleware(rejectAll(errors.New("signature mismatch")))
		require.NoError(t, err)

		router := newTestRouter(t, middleware, func(c *gin.Context) {
			t.Error("the wrapped handler must not be reached")
		})

		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Bearer bad-token")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "signature mismatch")
	})

	t.Run("It uses a custom error handler", func(t *testing.T) {
		middleware, err := NewMiddleware(
			rejectAll(errors.New("signature mismatch")),
			WithErrorHandler(func(c *gin.Context, err error) {
				c.AbortWithStatus(http.StatusTeapot)
			}),
		)
		require.NoError(t, err)

		router := newTestRouter(t, middleware, func(c *gin.Context) {
			t.Error("the wrapped handler must not be reached")
		})

		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Bearer bad-token")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusTeapot, recorder.Code)
	})

	t.Run("It uses a custom token extractor", func(t *testing.T) {
		claims := map[string]any{"sub": "user-1"}
		middleware, err := NewMiddleware(acceptAll(claims),
			WithTokenExtractor(oidcrp.ParameterTokenExtractor("token")))
		require.NoError(t, err)

		router := newTestRouter(t, middleware, func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		request := httptest.NewRequest(http.MethodGet, "/?token=good-token", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func Test_GetClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetClaims(c, "")
	require.ErrorIs(t, err, ErrMissingClaims)

	c.Set(DefaultClaimsKey, "not-a-claims-map")
	_, err = GetClaims(c, "")
	require.ErrorIs(t, err, ErrInvalidClaims)

	claims := map[string]any{"sub": "user-1"}
	c.Set(DefaultClaimsKey, claims)

	got, err := GetClaims(c, "")
	require.NoError(t, err)
	assert.Equal(t, claims, got)
}
