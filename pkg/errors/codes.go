package errors

// Code is a machine-readable error code following the pattern CATEGORY_XXX,
// where CATEGORY is a short identifier (e.g. AUTH, VAL, INT) and XXX is a
// three-digit numeric code. Codes are stable once assigned and are safe to
// key alerting and client-side handling on.
type Code string

// Error code categories and their HTTP mappings:
//
//	VAL_xxx     - Validation errors (400 Bad Request)
//	AUTH_xxx    - Authentication errors (401 Unauthorized)
//	AUTHZ_xxx   - Authorization errors (403 Forbidden)
//	NF_xxx      - Not found errors (404 Not Found)
//	INT_xxx     - Internal errors (500 Internal Server Error)
//	UNAVAIL_xxx - Service unavailable (503 Service Unavailable)
//	TIMEOUT_xxx - Timeout errors (504 Gateway Timeout)
const (
	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required field is missing.
	CodeValidationRequired Code = "VAL_002"

	// CodeValidationFormat indicates a field has an invalid format or an
	// unrecognized enum value (e.g. an unknown resource type).
	CodeValidationFormat Code = "VAL_003"

	// CodeAuthentication indicates a general authentication failure
	// (no usable credential was presented).
	CodeAuthentication Code = "AUTH_001"

	// CodeAuthenticationExpired indicates the credential has expired.
	CodeAuthenticationExpired Code = "AUTH_002"

	// CodeAuthenticationInvalid indicates the credential is malformed or
	// failed cryptographic verification.
	CodeAuthenticationInvalid Code = "AUTH_003"

	// CodeAuthorization indicates the caller is authenticated but lacks
	// permission for the requested operation.
	CodeAuthorization Code = "AUTHZ_001"

	// CodeNotFound indicates a general not-found condition.
	CodeNotFound Code = "NF_001"

	// CodeNotFoundResource indicates a record the permission evaluation
	// depends on (case, party, document, membership) does not exist.
	CodeNotFoundResource Code = "NF_002"

	// CodeInternal indicates a general internal fault.
	CodeInternal Code = "INT_001"

	// CodeInternalDatabase indicates a record-store operation failed.
	CodeInternalDatabase Code = "INT_002"

	// CodeInternalConfiguration indicates a configuration error
	// (including a misconfigured trusted upstream such as the gateway).
	CodeInternalConfiguration Code = "INT_003"

	// CodeUnavailable indicates the service is temporarily unavailable.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeUnavailableDependency indicates a dependency (record store,
	// cache, identity provider) is unreachable.
	CodeUnavailableDependency Code = "UNAVAIL_002"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout Code = "TIMEOUT_001"

	// CodeTimeoutDatabase indicates a record-store operation timed out.
	CodeTimeoutDatabase Code = "TIMEOUT_002"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the error code (e.g. "VAL", "AUTH").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
