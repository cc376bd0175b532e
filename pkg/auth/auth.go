// Package auth resolves the caller identity for every request handled by
// the authorization service.
//
// A request reaches the service through exactly one of three trust paths,
// and the [Resolver] picks the first that applies:
//
//  1. A health-check probe carrying the marker header. No identity is
//     resolved and nothing may be authorized on its behalf.
//  2. An identity asserted by the edge gateway in the
//     X-Endpoint-API-UserInfo header, as base64-encoded JSON. The gateway
//     has already verified the credential; this service only decodes the
//     assertion.
//  3. A bearer token presented directly in the Authorization header,
//     verified here by the [Validator] — first as an end-user identity
//     token, then as a gateway service-account token.
//
// The ordering is a correctness invariant: a caller must never be able to
// have a directly-presented token interpreted with the gateway's trust
// level.
//
// The resolved [AuthContext] travels with the request via
// [ContextWithAuthContext] and is never persisted.
package auth

import "context"

// Source identifies which trust path produced an AuthContext.
type Source string

const (
	// SourceGateway marks an identity asserted by the edge gateway via
	// the X-Endpoint-API-UserInfo header.
	SourceGateway Source = "gateway"

	// SourceToken marks an identity verified directly from a bearer
	// token presented in the Authorization header.
	SourceToken Source = "token"
)

// AuthContext is the resolved caller identity for a single request.
// It is produced once by the [Resolver], must be treated as read-only,
// and is never persisted.
type AuthContext struct {
	// Source records which trust path produced this identity.
	Source Source

	// UserID is the caller's stable identifier, taken from the token or
	// assertion subject. Always non-empty.
	UserID string

	// Email is the caller's email address, when the credential carried
	// one. Optional.
	Email string

	// Locale is the caller's preferred locale, when the credential
	// carried one. Optional.
	Locale string
}

// TokenClaims holds the identity fields extracted from a verified token.
type TokenClaims struct {
	// Subject is the mandatory "sub" claim.
	Subject string

	// Email is the optional "email" claim.
	Email string

	// Locale is the optional "locale" claim.
	Locale string
}

// TokenValidator verifies the two token kinds the platform accepts and
// extracts their identity claims. Implemented by [Validator].
type TokenValidator interface {
	// ValidateUserToken verifies an end-user identity token: signature
	// and expiry against the identity provider's published keys, exact
	// issuer match, and a mandatory subject claim.
	ValidateUserToken(ctx context.Context, token string) (*TokenClaims, error)

	// ValidateGatewayToken verifies a gateway service-account OAuth2
	// token. The expected audience is extracted from the token's own
	// payload segment before verification, because the audience is
	// request-specific.
	ValidateGatewayToken(ctx context.Context, token string) (*TokenClaims, error)
}
