package middleware

import (
	"context"

	"siteledger/internal/domain/identity"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

// WithUser is exported for handler tests that need an authenticated context.
func WithUser(ctx context.Context, user identity.UserContext) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

func GetUser(ctx context.Context) (identity.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(identity.UserContext)
	return user, ok
}
