package authz

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	rxerr "github.com/relexro/authz-core/pkg/errors"
	"github.com/relexro/authz-core/pkg/store"
)

// OrganizationAuthorizer evaluates permission checks against
// organizations. All organization access flows through membership; there
// is no owner pseudo-role for organizations.
type OrganizationAuthorizer struct {
	store  store.RecordStore
	policy Policy
	tracer trace.Tracer
}

// NewOrganizationAuthorizer creates an OrganizationAuthorizer.
func NewOrganizationAuthorizer(st store.RecordStore, policy Policy) *OrganizationAuthorizer {
	return &OrganizationAuthorizer{
		store:  st,
		policy: policy,
		tracer: otel.Tracer(tracerName),
	}
}

var _ ResourceAuthorizer = (*OrganizationAuthorizer)(nil)

// Authorize evaluates one organization permission check. The target
// organization is identified by ResourceID, with OrganizationID accepted
// as a fallback.
func (a *OrganizationAuthorizer) Authorize(ctx context.Context, callerID string, req CheckRequest) (Decision, error) {
	ctx, span := a.tracer.Start(ctx, "authz.Organization.Authorize",
		trace.WithAttributes(attribute.String("authz.action", req.Action)))
	defer span.End()

	orgID := req.ResourceID
	if orgID == "" {
		orgID = req.OrganizationID
	}
	if orgID == "" {
		return Deny(ReasonOrganizationIDRequired), nil
	}

	member, err := a.store.FindMembership(ctx, callerID, orgID)
	if err != nil {
		if rxerr.IsNotFound(err) {
			return Deny(ReasonNotMember), nil
		}
		return Decision{}, err
	}

	// A membership record must always carry a role; one without is a data
	// fault and denies rather than granting anything.
	if member.Role == "" {
		return Deny(ReasonRoleUnset), nil
	}

	role := Role(member.Role)

	// The member-management sub-actions are aliases of the coarse
	// manage_members grant, held by Administrators only.
	action := req.Action
	if memberManagementActions.contains(action) {
		action = ActionManageMembers
	}

	if a.policy.Allows(ResourceOrganization, role, action) {
		return Allow(ReasonAllowed), nil
	}
	return Deny(ReasonActionNotPermitted), nil
}
