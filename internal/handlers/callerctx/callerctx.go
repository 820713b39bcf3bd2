package callerctx

import (
	"context"

	"github.com/paylane/walletsvc/internal/auth"
)

type ctxKey string

const callerKey ctxKey = "caller"

// Create a new context with the verified caller claims
func New(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// Extract the caller claims from the context
func FromContext(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(callerKey).(auth.Claims)
	return c, ok
}
