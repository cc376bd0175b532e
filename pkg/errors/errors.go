// Package errors provides standardized error types for the Relex
// authorization service. It defines the error categories the service
// distinguishes at its HTTP boundary and helpers for creating, wrapping,
// and inspecting them.
//
// # Error Categories
//
//   - Validation errors: malformed request bodies, unknown resource types
//   - Authentication errors: missing, invalid, or expired credentials
//   - Authorization errors: the caller is authenticated but not permitted
//   - NotFound errors: a record the evaluation depends on does not exist
//   - Internal errors: unexpected faults (misconfiguration, store bugs)
//   - Unavailable errors: the record store or a dependency is unreachable
//   - Timeout errors: an operation exceeded its deadline
//
// Note that an authorization *denial* is not an error anywhere in this
// module: checkers return a Decision value. The AUTHZ category exists for
// boundary cases where an operation requires an authenticated principal
// that is absent.
//
// # Error Codes
//
// Each error carries a stable machine-readable code (e.g. "AUTH_003")
// following the pattern CATEGORY_XXX. Codes map deterministically to HTTP
// status codes via [Error.HTTPStatus].
//
// # Usage
//
// Create and wrap:
//
//	err := errors.New(errors.CodeValidation, "resourceType is not recognized")
//	err := errors.Wrap(err, errors.CodeInternalDatabase, "failed to fetch case")
//
// Inspect:
//
//	if errors.IsAuthentication(err) {
//	    // respond 401
//	}
package errors
