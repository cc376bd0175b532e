// Package authz is the permission-evaluation engine: given an
// authenticated caller and a requested action on a resource, it decides
// allow or deny.
//
// Decisions are values, not errors. A denied check is a normal outcome
// carried in [Decision]; error returns are reserved for infrastructure
// faults (the record store being unreachable), which the dispatcher
// converts to deny-by-default. A missing resource is also a denial and is
// never distinguished from one in the caller-visible reason, so callers
// cannot probe for resource existence.
package authz

import (
	"context"

	rxerr "github.com/relexro/authz-core/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for
// permission-evaluation spans.
const tracerName = "github.com/relexro/authz-core/pkg/authz"

// ResourceType identifies the kind of resource a permission check targets.
// The set is closed; requests naming any other type are rejected before
// evaluation.
type ResourceType string

const (
	ResourceCase         ResourceType = "case"
	ResourceOrganization ResourceType = "organization"
	ResourceParty        ResourceType = "party"
	ResourceDocument     ResourceType = "document"
)

// ParseResourceType converts a wire string to a ResourceType, returning a
// validation error for anything outside the closed set.
func ParseResourceType(s string) (ResourceType, *rxerr.Error) {
	switch ResourceType(s) {
	case ResourceCase, ResourceOrganization, ResourceParty, ResourceDocument:
		return ResourceType(s), nil
	}
	return "", rxerr.Validationf("resourceType %q is not recognized", s).
		WithDetail("resourceType", s)
}

// Role is a permission role. Administrator and Staff come from membership
// records; Owner is a pseudo-role derived by comparing the caller's id to
// the resource's owner field and never appears in a membership record.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleStaff         Role = "staff"
	RoleOwner         Role = "owner"
)

// Action names used across resource kinds.
const (
	ActionRead        = "read"
	ActionList        = "list"
	ActionCreate      = "create"
	ActionUpdate      = "update"
	ActionDelete      = "delete"
	ActionArchive     = "archive"
	ActionAttachParty = "attach_party"
	ActionDetachParty = "detach_party"
	ActionUploadFile  = "upload_file"

	// ActionManageMembers is the coarse organization grant covering the
	// member-management sub-actions.
	ActionManageMembers = "manage_members"
)

// CheckRequest is one permission question: may the caller perform Action
// on the resource identified by ResourceType and ResourceID.
//
// ResourceID may be empty only for create and list actions.
// OrganizationID scopes create/list checks to an organization; for
// organization checks it may stand in for ResourceID.
type CheckRequest struct {
	ResourceType   ResourceType `json:"resourceType"`
	ResourceID     string       `json:"resourceId,omitempty"`
	Action         string       `json:"action"`
	OrganizationID string       `json:"organizationId,omitempty"`
}

// Validate checks the request shape. Resource-specific requirements (a
// missing ResourceID for a non-create action, for example) are evaluated
// by the checkers as denials, not validation errors.
func (r *CheckRequest) Validate() *rxerr.Error {
	if _, err := ParseResourceType(string(r.ResourceType)); err != nil {
		return err
	}
	if r.Action == "" {
		return rxerr.Validation("action must not be empty")
	}
	return nil
}

// Decision is the outcome of one permission check. Reason is a stable,
// human-readable string suitable for audit logs; it never carries stack
// traces or internal detail.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow constructs an allowing decision.
func Allow(reason string) Decision {
	return Decision{Allowed: true, Reason: reason}
}

// Deny constructs a denying decision.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Caller-visible reason strings. These are stable constants: audit
// tooling matches on them, so changing one is a breaking change.
//
// Not-found reasons deliberately share phrasing with access denials so a
// caller cannot distinguish a resource that does not exist from one they
// may not see.
const (
	ReasonAllowed = "allowed"

	ReasonResourceIDRequired     = "resourceId is required"
	ReasonOrganizationIDRequired = "organizationId is required"

	ReasonCaseDenied         = "case not found or access denied"
	ReasonPartyDenied        = "party not found or access denied"
	ReasonDocumentDenied     = "document not found or access denied"
	ReasonNotOwnerOrMember   = "not owner or member of organization"
	ReasonNotMember          = "not a member of the organization"
	ReasonRoleUnset          = "membership record has no role"
	ReasonActionNotPermitted = "action not permitted for role"
	ReasonNotAssigned        = "not assigned to this case"

	ReasonActionInvalidForType = "action invalid for resource type"
	ReasonNoAssociatedCase     = "document has no associated case"
	ReasonActionNotMapped      = "action not mapped to a case permission"
	ReasonParentCaseNotFound   = "parent case not found"

	ReasonInternalFault = "permission check could not be completed"
)

// ResourceAuthorizer evaluates permission checks for one resource kind.
// The returned error is non-nil only for infrastructure faults; every
// policy outcome, including not-found, is a Decision.
type ResourceAuthorizer interface {
	Authorize(ctx context.Context, callerID string, req CheckRequest) (Decision, error)
}
