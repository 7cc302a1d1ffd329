package guard

import "context"

type contextKey struct {
	name string
}

func (c *contextKey) String() string {
	return "guard context key " + c.name
}

var (
	identityCtxKey = &contextKey{"identity"}
	claimsCtxKey   = &contextKey{"claims"}
)

// WithIdentityContext returns a child context carrying the authenticated
// identity.
func WithIdentityContext(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext retrieves the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey).(Identity)
	return identity, ok
}

// WithClaimsContext returns a child context carrying verified token claims.
func WithClaimsContext(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext retrieves verified token claims, if any.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsCtxKey).(Claims)
	return claims, ok
}
