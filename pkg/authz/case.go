package authz

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	rxerr "github.com/relexro/authz-core/pkg/errors"
	"github.com/relexro/authz-core/pkg/store"
)

// CaseAuthorizer evaluates permission checks against case records. The
// evaluation is a short-circuiting rule cascade: owner identity is
// checked before any membership lookup, so a case creator who also holds
// a Staff membership keeps Owner-level rights and can never lock
// themselves out of their own case.
type CaseAuthorizer struct {
	store  store.RecordStore
	policy Policy
	tracer trace.Tracer
}

// NewCaseAuthorizer creates a CaseAuthorizer reading records from the
// given store and consulting the given policy.
func NewCaseAuthorizer(st store.RecordStore, policy Policy) *CaseAuthorizer {
	return &CaseAuthorizer{
		store:  st,
		policy: policy,
		tracer: otel.Tracer(tracerName),
	}
}

var _ ResourceAuthorizer = (*CaseAuthorizer)(nil)

// Authorize evaluates one case permission check.
func (a *CaseAuthorizer) Authorize(ctx context.Context, callerID string, req CheckRequest) (Decision, error) {
	ctx, span := a.tracer.Start(ctx, "authz.Case.Authorize",
		trace.WithAttributes(attribute.String("authz.action", req.Action)))
	defer span.End()

	if req.Action == ActionCreate || req.Action == ActionList {
		return a.authorizeCreateOrList(ctx, callerID, req)
	}

	if req.ResourceID == "" {
		return Deny(ReasonResourceIDRequired), nil
	}

	rec, err := a.store.GetCase(ctx, req.ResourceID)
	if err != nil {
		if rxerr.IsNotFound(err) {
			return Deny(ReasonCaseDenied), nil
		}
		return Decision{}, err
	}

	return a.evaluate(ctx, callerID, rec, req.Action)
}

// authorizeCreateOrList handles the two actions that target no existing
// case. With an organization context, the caller must hold an active
// membership in that organization (any role); without one, the action is
// universally allowed to any authenticated caller.
func (a *CaseAuthorizer) authorizeCreateOrList(ctx context.Context, callerID string, req CheckRequest) (Decision, error) {
	if req.OrganizationID == "" {
		return Allow(ReasonAllowed), nil
	}

	_, err := a.store.FindMembership(ctx, callerID, req.OrganizationID)
	if err != nil {
		if rxerr.IsNotFound(err) {
			return Deny(ReasonNotMember), nil
		}
		return Decision{}, err
	}
	return Allow(ReasonAllowed), nil
}

// evaluate runs the cascade against a case record already in hand. It is
// shared by Authorize and by document delegation, which fetches the
// parent case itself so a referential-integrity failure is blamed on the
// document.
func (a *CaseAuthorizer) evaluate(ctx context.Context, callerID string, rec *store.Case, action string) (Decision, error) {
	// Individual case: only the owner, and only owner actions.
	if rec.Individual() {
		if callerID == rec.OwnerUserID && a.policy.Allows(ResourceCase, RoleOwner, action) {
			return Allow(ReasonAllowed), nil
		}
		return Deny(ReasonCaseDenied), nil
	}

	// Organization case. Ownership is checked before membership.
	if callerID == rec.OwnerUserID {
		if a.policy.Allows(ResourceCase, RoleOwner, action) {
			return Allow(ReasonAllowed), nil
		}
		return Deny(ReasonActionNotPermitted), nil
	}

	member, err := a.store.FindMembership(ctx, callerID, rec.OrganizationID)
	if err != nil {
		if rxerr.IsNotFound(err) {
			return Deny(ReasonNotOwnerOrMember), nil
		}
		return Decision{}, err
	}

	switch Role(member.Role) {
	case RoleAdministrator:
		if a.policy.Allows(ResourceCase, RoleAdministrator, action) {
			return Allow(ReasonAllowed), nil
		}
		return Deny(ReasonActionNotPermitted), nil

	case RoleStaff:
		if !a.policy.Allows(ResourceCase, RoleStaff, action) {
			return Deny(ReasonActionNotPermitted), nil
		}
		if mutatingCaseActions.contains(action) && rec.AssignedUserID != callerID {
			return Deny(ReasonNotAssigned), nil
		}
		return Allow(ReasonAllowed), nil
	}

	return Deny(ReasonActionNotPermitted), nil
}

// DelegateToCase carries a document action already mapped onto a case
// action, together with the parent case record the document checker
// fetched. Delegation passes this value explicitly instead of rewriting
// the original request.
type DelegateToCase struct {
	Action string
	Case   *store.Case
}

// AuthorizeDelegated evaluates a delegated check against the parent case,
// returning the case cascade's result verbatim.
func (a *CaseAuthorizer) AuthorizeDelegated(ctx context.Context, callerID string, del DelegateToCase) (Decision, error) {
	ctx, span := a.tracer.Start(ctx, "authz.Case.AuthorizeDelegated",
		trace.WithAttributes(attribute.String("authz.action", del.Action)))
	defer span.End()

	return a.evaluate(ctx, callerID, del.Case, del.Action)
}
