package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paylane/walletsvc/internal/auth"
	"github.com/paylane/walletsvc/internal/handlers/callerctx"
)

// Allow to use a function as token verifier
type verifierFunc func(r *http.Request) (auth.Claims, error)

func (f verifierFunc) FromRequest(r *http.Request) (auth.Claims, error) {
	return f(r)
}

func TestAuthMiddleware(t *testing.T) {
	// Simple handler that reads the caller from context
	// If ok write the calling service name to response
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must always be true cause middleware has to set caller or write error to response
		claims, ok := callerctx.FromContext(r.Context())
		require.True(t, ok)

		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(claims.Service))
		require.NoError(t, err, "should write service name to response")
	})

	t.Run("auth ok", func(t *testing.T) {
		// Verifier that always returns ok
		middleware := AuthMiddleware(verifierFunc(func(r *http.Request) (auth.Claims, error) {
			return auth.Claims{Service: "transaction-service"}, nil
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusOK, resp.StatusCode, "should return status OK. Resp: %s", string(body))
		require.Equal(t, "transaction-service", string(body), "should return service name in response")
	})

	t.Run("auth fail", func(t *testing.T) {
		// Verifier that always fails
		middleware := AuthMiddleware(verifierFunc(func(r *http.Request) (auth.Claims, error) {
			return auth.Claims{}, errors.New("nope")
		}))

		srv := httptest.NewServer(middleware(handler))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "should return status Unauthorized. Resp: %s", string(body))
		require.JSONEq(t,
			`{
				"error": "service_error",
				"message": "Unauthorized"
			}`,
			string(body),
		)
	})
}
