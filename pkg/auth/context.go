package auth

import "context"

// contextKey is an unexported type for context keys defined in this
// package to prevent collisions with keys defined elsewhere.
type contextKey struct{}

// authContextKey is the context key under which the resolved AuthContext
// is stored.
var authContextKey = contextKey{}

// ContextWithAuthContext returns a new context carrying the given
// AuthContext.
func ContextWithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// AuthContextFromContext extracts the AuthContext from the context, if
// present. The second return value reports whether one was found.
func AuthContextFromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey).(*AuthContext)
	return ac, ok && ac != nil
}
