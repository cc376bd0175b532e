package authz

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	rxerr "github.com/relexro/authz-core/pkg/errors"
	"github.com/relexro/authz-core/pkg/store"
)

// PartyAuthorizer evaluates permission checks against party records.
// Parties have no organization scope; access is pure ownership.
type PartyAuthorizer struct {
	store  store.RecordStore
	policy Policy
	tracer trace.Tracer
}

// NewPartyAuthorizer creates a PartyAuthorizer.
func NewPartyAuthorizer(st store.RecordStore, policy Policy) *PartyAuthorizer {
	return &PartyAuthorizer{
		store:  st,
		policy: policy,
		tracer: otel.Tracer(tracerName),
	}
}

var _ ResourceAuthorizer = (*PartyAuthorizer)(nil)

// Authorize evaluates one party permission check. create and list are
// unconditionally allowed for any authenticated caller, since no
// ownership exists before a party does. An owner requesting an action
// outside the party action set gets the action-invalid reason rather
// than the ownership denial, to keep the two failure modes diagnosable.
func (a *PartyAuthorizer) Authorize(ctx context.Context, callerID string, req CheckRequest) (Decision, error) {
	ctx, span := a.tracer.Start(ctx, "authz.Party.Authorize",
		trace.WithAttributes(attribute.String("authz.action", req.Action)))
	defer span.End()

	if req.Action == ActionCreate || req.Action == ActionList {
		return Allow(ReasonAllowed), nil
	}

	if req.ResourceID == "" {
		return Deny(ReasonResourceIDRequired), nil
	}

	rec, err := a.store.GetParty(ctx, req.ResourceID)
	if err != nil {
		if rxerr.IsNotFound(err) {
			return Deny(ReasonPartyDenied), nil
		}
		return Decision{}, err
	}

	if callerID != rec.OwnerUserID {
		return Deny(ReasonPartyDenied), nil
	}
	if !a.policy.Allows(ResourceParty, RoleOwner, req.Action) {
		return Deny(ReasonActionInvalidForType), nil
	}
	return Allow(ReasonAllowed), nil
}
