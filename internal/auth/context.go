package auth

import "context"

type claimsKey struct{}

// WithClaims returns a context carrying the validated claim set for the
// current request.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom extracts the validated claim set placed by the auth middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}
