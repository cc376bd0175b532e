package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	rxerr "github.com/relexro/authz-core/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for auth spans.
const tracerName = "github.com/relexro/authz-core/pkg/auth"

// maxTokenSize is the maximum accepted size for a JWT token string (8 KB).
// Tokens larger than this are rejected to prevent resource exhaustion.
const maxTokenSize = 8192

// HTTPClient abstracts the HTTP client used for fetching JWKS documents,
// so tests can point the validator at an httptest server with custom
// transport settings. The standard [http.Client] satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ValidatorConfig holds the configuration for [Validator].
type ValidatorConfig struct {
	// Issuer is the exact "iss" claim expected in end-user identity
	// tokens. Required.
	Issuer string `yaml:"issuer" env:"AUTH_ISSUER"`

	// JWKSURL is the endpoint publishing the identity provider's signing
	// keys for user tokens. Required.
	JWKSURL string `yaml:"jwks_url" env:"AUTH_JWKS_URL"`

	// GatewayIssuer is the exact "iss" claim expected in gateway
	// service-account tokens. Required.
	GatewayIssuer string `yaml:"gateway_issuer" env:"AUTH_GATEWAY_ISSUER"`

	// GatewayJWKSURL is the endpoint publishing the gateway issuer's
	// signing keys. Required.
	GatewayJWKSURL string `yaml:"gateway_jwks_url" env:"AUTH_GATEWAY_JWKS_URL"`

	// JWKSCacheTTL is the time a fetched key set is cached before being
	// refreshed from the provider. Must be non-negative. Defaults to 1h.
	JWKSCacheTTL time.Duration `yaml:"jwks_cache_ttl" env:"AUTH_JWKS_CACHE_TTL" envDefault:"1h"`

	// ClockSkew is the maximum allowed clock difference between this
	// service and the token issuer. Must be non-negative. Defaults to 30s.
	ClockSkew time.Duration `yaml:"clock_skew" env:"AUTH_CLOCK_SKEW" envDefault:"30s"`

	// HTTPClient is used for fetching JWKS documents. If nil, a default
	// [http.Client] with a 10-second timeout is used.
	HTTPClient HTTPClient `yaml:"-"`
}

// Validate checks the configuration and returns a validation error if any
// field is invalid.
func (c *ValidatorConfig) Validate() *rxerr.Error {
	if c.Issuer == "" {
		return rxerr.New(rxerr.CodeValidation, "auth: issuer must not be empty")
	}
	if c.JWKSURL == "" {
		return rxerr.New(rxerr.CodeValidation, "auth: jwks_url must not be empty")
	}
	if c.GatewayIssuer == "" {
		return rxerr.New(rxerr.CodeValidation, "auth: gateway_issuer must not be empty")
	}
	if c.GatewayJWKSURL == "" {
		return rxerr.New(rxerr.CodeValidation, "auth: gateway_jwks_url must not be empty")
	}
	if c.JWKSCacheTTL < 0 {
		return rxerr.New(rxerr.CodeValidation, "auth: JWKS cache TTL must be non-negative")
	}
	if c.ClockSkew < 0 {
		return rxerr.New(rxerr.CodeValidation, "auth: clock skew must be non-negative")
	}
	return nil
}

// DefaultValidatorConfig returns a ValidatorConfig with default cache and
// skew settings. Issuer and key endpoints must be filled in by the caller.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		JWKSCacheTTL: 1 * time.Hour,
		ClockSkew:    30 * time.Second,
	}
}

// ---------------------------------------------------------------------------
// jwksCache — caches published signing keys per JWKS URL
// ---------------------------------------------------------------------------

// jwksCacheEntry stores fetched keys and the time they were fetched.
type jwksCacheEntry struct {
	keys      map[string]any // kid -> *rsa.PublicKey or *ecdsa.PublicKey
	fetchedAt time.Time
}

// jwksCache caches JSON Web Key Sets fetched from token issuers. Keys are
// cached per JWKS URL and refreshed after the configured TTL expires, or
// eagerly when an unknown kid is requested (key rotation).
type jwksCache struct {
	mu      sync.RWMutex
	entries map[string]*jwksCacheEntry
	ttl     time.Duration
	client  HTTPClient
}

// newJWKSCache creates a new JWKS cache with the given TTL and HTTP client.
func newJWKSCache(ttl time.Duration, client HTTPClient) *jwksCache {
	return &jwksCache{
		entries: make(map[string]*jwksCacheEntry),
		ttl:     ttl,
		client:  client,
	}
}

// getKey retrieves a public key by key ID (kid) from the JWKS at the given
// URL, fetching or refreshing the key set as needed.
func (c *jwksCache) getKey(ctx context.Context, jwksURL, kid string) (any, error) {
	c.mu.RLock()
	entry, ok := c.entries[jwksURL]
	if ok && time.Since(entry.fetchedAt) < c.ttl {
		key, exists := entry.keys[kid]
		c.mu.RUnlock()
		if exists {
			return key, nil
		}
		// Kid not found in cached JWKS — may be a key rotation; refetch.
	} else {
		c.mu.RUnlock()
	}

	keys, err := c.fetchJWKS(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to fetch JWKS from %s: %w", jwksURL, err)
	}

	c.mu.Lock()
	c.entries[jwksURL] = &jwksCacheEntry{
		keys:      keys,
		fetchedAt: time.Now(),
	}
	c.mu.Unlock()

	key, exists := keys[kid]
	if !exists {
		return nil, fmt.Errorf("auth: key ID %q not found in JWKS from %s", kid, jwksURL)
	}
	return key, nil
}

// jwksResponse represents the JSON structure of a JWKS endpoint response.
type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

// jwkKey represents a single key in a JWKS response. Only the fields
// needed for RSA and EC key reconstruction are included.
type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	// RSA fields
	N string `json:"n"`
	E string `json:"e"`
	// EC fields
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// fetchJWKS makes an HTTP GET request to the JWKS URL, parses the
// response, and constructs a map of key ID to public key. Supports RSA and
// ECDSA (P-256, P-384, P-521) key types.
//
// The response body is limited to 1 MB to prevent resource exhaustion.
func (c *jwksCache) fetchJWKS(ctx context.Context, jwksURL string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to create JWKS request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: JWKS request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("auth: failed to read JWKS response: %w", err)
	}

	var jwks jwksResponse
	if err := json.Unmarshal(body, &jwks); err != nil {
		return nil, fmt.Errorf("auth: failed to parse JWKS JSON: %w", err)
	}

	keys := make(map[string]any, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kid == "" {
			continue
		}
		switch k.Kty {
		case "RSA":
			pubKey, err := parseRSAPublicKey(k.N, k.E)
			if err != nil {
				continue // Skip malformed keys.
			}
			keys[k.Kid] = pubKey
		case "EC":
			pubKey, err := parseECPublicKey(k.Crv, k.X, k.Y)
			if err != nil {
				continue // Skip malformed keys.
			}
			keys[k.Kid] = pubKey
		}
	}
	return keys, nil
}

// parseRSAPublicKey constructs an *rsa.PublicKey from base64url-encoded
// modulus (n) and exponent (e) values.
func parseRSAPublicKey(nBase64, eBase64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode RSA exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}

// parseECPublicKey constructs an *ecdsa.PublicKey from a curve name and
// base64url-encoded x and y coordinates.
func parseECPublicKey(crv, xBase64, yBase64 string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("auth: unsupported EC curve %q", crv)
	}

	xBytes, err := base64.RawURLEncoding.DecodeString(xBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode EC x coordinate: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(yBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode EC y coordinate: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}

// ---------------------------------------------------------------------------
// Validator — verifies user identity tokens and gateway tokens
// ---------------------------------------------------------------------------

// Validator verifies the two token kinds the platform accepts: end-user
// identity tokens and gateway service-account tokens. The two paths are
// never mixed — each has its own issuer and key set.
//
// Validator is safe for concurrent use by multiple goroutines.
type Validator struct {
	config    ValidatorConfig
	tracer    trace.Tracer
	jwksCache *jwksCache
}

// Compile-time assertion that Validator implements TokenValidator.
var _ TokenValidator = (*Validator)(nil)

// NewValidator creates a Validator with the given configuration. The
// configuration is validated before use.
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Validator{
		config:    cfg,
		tracer:    otel.Tracer(tracerName),
		jwksCache: newJWKSCache(cfg.JWKSCacheTTL, httpClient),
	}, nil
}

// ValidateUserToken verifies an end-user identity token: RS256/ES256
// signature against the identity provider's JWKS, exact issuer match,
// expiry within the configured clock skew, and a mandatory subject claim.
//
// Any verification failure is returned as an authentication error; no
// failure is silently ignored.
func (v *Validator) ValidateUserToken(ctx context.Context, tokenStr string) (*TokenClaims, error) {
	ctx, span := v.tracer.Start(ctx, "auth.ValidateUserToken")
	defer span.End()

	if err := checkTokenShape(tokenStr); err != nil {
		finishSpan(span, err)
		return nil, err
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(v.config.Issuer),
		jwt.WithLeeway(v.config.ClockSkew),
		jwt.WithExpirationRequired(),
	}

	token, err := jwt.Parse(tokenStr, v.keyFunc(ctx, v.config.JWKSURL), parserOpts...)
	if err != nil {
		classified := classifyJWTError(err)
		finishSpan(span, classified)
		return nil, classified
	}

	claims, claimsErr := extractClaims(token)
	if claimsErr != nil {
		finishSpan(span, claimsErr)
		return nil, claimsErr
	}
	span.SetAttributes(attribute.String("auth.subject", claims.Subject))
	return claims, nil
}

// ValidateGatewayToken verifies a gateway service-account OAuth2 token.
//
// The expected audience is request-specific (typically the gateway's own
// URL), so it is extracted from the token's own payload segment before any
// verification: a token whose string cannot be split into three
// dot-separated segments, or whose payload lacks an "aud" claim, fails
// fast with a descriptive error before any key fetch. The signature,
// expiry, and issuer are then verified against the gateway issuer's JWKS
// using the extracted audience.
func (v *Validator) ValidateGatewayToken(ctx context.Context, tokenStr string) (*TokenClaims, error) {
	ctx, span := v.tracer.Start(ctx, "auth.ValidateGatewayToken")
	defer span.End()

	if err := checkTokenShape(tokenStr); err != nil {
		finishSpan(span, err)
		return nil, err
	}

	aud, err := extractAudience(tokenStr)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("auth.audience", aud))

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(v.config.GatewayIssuer),
		jwt.WithAudience(aud),
		jwt.WithLeeway(v.config.ClockSkew),
		jwt.WithExpirationRequired(),
	}

	token, parseErr := jwt.Parse(tokenStr, v.keyFunc(ctx, v.config.GatewayJWKSURL), parserOpts...)
	if parseErr != nil {
		classified := classifyJWTError(parseErr)
		finishSpan(span, classified)
		return nil, classified
	}

	claims, err := extractClaims(token)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("auth.subject", claims.Subject))
	return claims, nil
}

// keyFunc returns a jwt.Keyfunc resolving the signing key by kid from the
// key set published at jwksURL.
func (v *Validator) keyFunc(ctx context.Context, jwksURL string) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("auth: token header missing kid")
		}
		return v.jwksCache.getKey(ctx, jwksURL, kid)
	}
}

// checkTokenShape rejects empty and oversized token strings before any
// parsing.
func checkTokenShape(tokenStr string) *rxerr.Error {
	if tokenStr == "" {
		return rxerr.New(rxerr.CodeAuthenticationInvalid, "auth: token must not be empty")
	}
	if len(tokenStr) > maxTokenSize {
		return rxerr.New(rxerr.CodeAuthenticationInvalid, "auth: token exceeds maximum size")
	}
	return nil
}

// extractAudience decodes the payload segment of a JWT without verifying
// it and returns the "aud" claim. The payload is base64url-encoded with
// padding stripped. Errors are descriptive so a misconfigured gateway can
// be diagnosed from the message alone.
func extractAudience(tokenStr string) (string, *rxerr.Error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return "", rxerr.New(rxerr.CodeAuthenticationInvalid,
			"auth: gateway token is not a three-segment JWT")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", rxerr.Wrap(err, rxerr.CodeAuthenticationInvalid,
			"auth: gateway token payload is not valid base64url")
	}

	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", rxerr.Wrap(err, rxerr.CodeAuthenticationInvalid,
			"auth: gateway token payload is not valid JSON")
	}

	switch aud := claims["aud"].(type) {
	case string:
		if aud != "" {
			return aud, nil
		}
	case []any:
		if len(aud) > 0 {
			if s, ok := aud[0].(string); ok && s != "" {
				return s, nil
			}
		}
	}
	return "", rxerr.New(rxerr.CodeAuthenticationInvalid,
		"auth: gateway token payload lacks an aud claim")
}

// extractClaims pulls the identity fields out of a verified token. The
// subject is mandatory; email and locale pass through when present.
func extractClaims(token *jwt.Token) (*TokenClaims, *rxerr.Error) {
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, rxerr.New(rxerr.CodeAuthenticationInvalid, "auth: invalid token claims")
	}

	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, rxerr.New(rxerr.CodeAuthenticationInvalid, "auth: token lacks a subject claim")
	}

	email, _ := mc["email"].(string)
	locale, _ := mc["locale"].(string)

	return &TokenClaims{
		Subject: sub,
		Email:   email,
		Locale:  locale,
	}, nil
}

// classifyJWTError converts a JWT library error to an appropriate *Error.
// If the error is already an *Error it is returned as-is.
func classifyJWTError(err error) *rxerr.Error {
	if err == nil {
		return nil
	}

	var rErr *rxerr.Error
	if errors.As(err, &rErr) {
		return rErr
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return rxerr.Wrap(err, rxerr.CodeAuthenticationExpired, "auth: token has expired")
	}
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return rxerr.Wrap(err, rxerr.CodeAuthenticationInvalid, "auth: token is malformed")
	}
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return rxerr.Wrap(err, rxerr.CodeAuthenticationInvalid, "auth: token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return rxerr.Wrap(err, rxerr.CodeAuthenticationInvalid, "auth: token is unverifiable")
	}
	if errors.Is(err, jwt.ErrTokenNotValidYet) {
		return rxerr.Wrap(err, rxerr.CodeAuthenticationInvalid, "auth: token is not yet valid")
	}
	if errors.Is(err, jwt.ErrTokenInvalidAudience) {
		return rxerr.Wrap(err, rxerr.CodeAuthenticationInvalid, "auth: token audience is invalid")
	}
	if errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		return rxerr.Wrap(err, rxerr.CodeAuthenticationInvalid, "auth: token issuer is invalid")
	}
	if errors.Is(err, jwt.ErrTokenInvalidClaims) {
		return rxerr.Wrap(err, rxerr.CodeAuthenticationInvalid, "auth: token claims are invalid")
	}

	return rxerr.Wrap(err, rxerr.CodeAuthenticationInvalid, "auth: token validation failed")
}

// finishSpan records an error on the span if err is non-nil and sets the
// span status to Error.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
