package userctx

import (
	"context"

	"github.com/nkiryanov/ledgerbank/internal/service/auth/tokenmanager"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Create a new context with the caller identity
func New(ctx context.Context, identity tokenmanager.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Extract the caller identity from the context
func FromContext(ctx context.Context) (tokenmanager.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(tokenmanager.Identity)
	return identity, ok
}
