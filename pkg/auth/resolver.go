package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	rxerr "github.com/relexro/authz-core/pkg/errors"
)

const (
	// HeaderHealthCheck marks a request as an infrastructure liveness
	// probe. When it carries HealthCheckValue the request bypasses
	// authentication entirely.
	HeaderHealthCheck = "X-Relex-Health-Check"

	// HealthCheckValue is the only value of HeaderHealthCheck that
	// triggers the health-check bypass.
	HealthCheckValue = "ping"

	// HeaderGatewayUserInfo carries a base64-encoded JSON document with
	// the end user's identity, injected by the API gateway after it has
	// already verified the user. Its presence is treated as proof of a
	// trusted upstream.
	HeaderGatewayUserInfo = "X-Endpoint-API-UserInfo"
)

// gatewayUserInfo is the JSON document the gateway places in
// HeaderGatewayUserInfo. Only sub is mandatory.
type gatewayUserInfo struct {
	Sub    string `json:"sub"`
	Email  string `json:"email"`
	Locale string `json:"locale"`
}

// Resolver inspects an incoming HTTP request and produces the caller's
// [AuthContext]. Trust paths are tried in a fixed order:
//
//  1. Health-check header — the request is an infrastructure probe and
//     needs no identity; Resolve returns (nil, nil).
//  2. Gateway user-info header — the gateway already authenticated the
//     user; the identity is decoded from the header without further
//     verification.
//  3. Authorization bearer token — verified first as a user identity
//     token, then as a gateway service-account token.
//
// The order is load-bearing: a request carrying both the gateway header
// and a bearer token is resolved from the header, and the token is never
// inspected.
type Resolver struct {
	validator TokenValidator
	tracer    trace.Tracer
}

// NewResolver creates a Resolver that verifies bearer tokens with the
// given validator.
func NewResolver(validator TokenValidator) *Resolver {
	return &Resolver{
		validator: validator,
		tracer:    otel.Tracer(tracerName),
	}
}

// Resolve determines the caller's identity for the given request.
//
// A (nil, nil) return means the request is a health-check probe and
// requires no identity. Any other nil-error return carries a non-nil
// AuthContext. Errors are authentication errors (the caller could not be
// identified) except for a malformed gateway header, which indicates a
// misconfigured trusted upstream and is reported as an internal error.
func (r *Resolver) Resolve(req *http.Request) (*AuthContext, error) {
	ctx, span := r.tracer.Start(req.Context(), "auth.Resolve")
	defer span.End()

	if req.Header.Get(HeaderHealthCheck) == HealthCheckValue {
		span.SetAttributes(attribute.String("auth.source", "health_check"))
		return nil, nil
	}

	if raw := req.Header.Get(HeaderGatewayUserInfo); raw != "" {
		span.SetAttributes(attribute.String("auth.source", string(SourceGateway)))
		authCtx, err := resolveGatewayHeader(raw)
		if err != nil {
			finishSpan(span, err)
			return nil, err
		}
		span.SetAttributes(attribute.String("auth.subject", authCtx.UserID))
		return authCtx, nil
	}

	authHeader := req.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		err := rxerr.New(rxerr.CodeAuthentication,
			"auth: missing or invalid Authorization header")
		finishSpan(span, err)
		return nil, err
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	span.SetAttributes(attribute.String("auth.source", string(SourceToken)))

	claims, userErr := r.validator.ValidateUserToken(ctx, token)
	if userErr != nil {
		// Not a user identity token — it may be a gateway
		// service-account token.
		claims, gwErr := r.validator.ValidateGatewayToken(ctx, token)
		if gwErr != nil {
			err := rxerr.New(rxerr.CodeAuthenticationInvalid,
				"auth: invalid authentication token")
			finishSpan(span, err)
			return nil, err
		}
		span.SetAttributes(attribute.String("auth.subject", claims.Subject))
		return &AuthContext{
			Source: SourceToken,
			UserID: claims.Subject,
			Email:  claims.Email,
			Locale: claims.Locale,
		}, nil
	}

	span.SetAttributes(attribute.String("auth.subject", claims.Subject))
	return &AuthContext{
		Source: SourceToken,
		UserID: claims.Subject,
		Email:  claims.Email,
		Locale: claims.Locale,
	}, nil
}

// resolveGatewayHeader decodes the gateway user-info header into an
// AuthContext. The header is written by a trusted upstream, so a value
// that cannot be decoded means the deployment is misconfigured, not that
// the caller is unauthenticated.
func resolveGatewayHeader(raw string) (*AuthContext, error) {
	decoded, err := decodeBase64Lenient(raw)
	if err != nil {
		return nil, rxerr.Wrap(err, rxerr.CodeInternal,
			"auth: gateway user-info header is not valid base64")
	}

	var info gatewayUserInfo
	if err := json.Unmarshal(decoded, &info); err != nil {
		return nil, rxerr.Wrap(err, rxerr.CodeInternal,
			"auth: gateway user-info header is not valid JSON")
	}

	if info.Sub == "" {
		return nil, rxerr.New(rxerr.CodeAuthenticationInvalid,
			"auth: gateway user-info lacks a subject")
	}

	return &AuthContext{
		Source: SourceGateway,
		UserID: info.Sub,
		Email:  info.Email,
		Locale: info.Locale,
	}, nil
}

// decodeBase64Lenient decodes a base64 string whether or not it carries
// padding, in standard or URL-safe alphabet. Gateways differ on which
// variant they emit.
func decodeBase64Lenient(s string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return nil, err
}
