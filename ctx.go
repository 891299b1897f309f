package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// LocalsIdentityKey is the fiber locals key holding the request Identity
const LocalsIdentityKey = "identity"

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithIdentity sets the Identity in the given context
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the Identity in the context
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok && raw != nil
}

// IdentityFromRequest returns the Identity attached by the gate to a
// fiber request
func IdentityFromRequest(c *fiber.Ctx) (Identity, bool) {
	if raw, ok := c.Locals(LocalsIdentityKey).(Identity); ok && raw != nil {
		return raw, true
	}
	return IdentityFromContext(c.UserContext())
}
