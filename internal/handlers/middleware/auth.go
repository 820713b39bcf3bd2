package middleware

import (
	"net/http"

	"github.com/paylane/walletsvc/internal/auth"
	"github.com/paylane/walletsvc/internal/handlers/callerctx"
	"github.com/paylane/walletsvc/internal/handlers/render"
)

type tokenVerifier interface {
	FromRequest(r *http.Request) (auth.Claims, error)
}

// AuthMiddleware is the JWT gate in front of every mutating call. Requests
// without a valid bearer token never reach the wallet core.
func AuthMiddleware(verifier tokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifier.FromRequest(r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := callerctx.New(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
