package authz

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	rxerr "github.com/relexro/authz-core/pkg/errors"
	"github.com/relexro/authz-core/pkg/store"
)

// documentActionMap maps document actions onto the case action the
// delegation evaluates. Any document action outside this table is denied;
// documents never grant more than their parent case does.
var documentActionMap = map[string]string{
	ActionRead:   ActionRead,
	ActionDelete: ActionDelete,
}

// DocumentAuthorizer evaluates permission checks against documents.
// Documents carry no policy of their own: every decision is delegated to
// the parent case's cascade with the document action mapped to a case
// action.
type DocumentAuthorizer struct {
	store  store.RecordStore
	cases  *CaseAuthorizer
	tracer trace.Tracer
}

// NewDocumentAuthorizer creates a DocumentAuthorizer delegating to the
// given case authorizer.
func NewDocumentAuthorizer(st store.RecordStore, cases *CaseAuthorizer) *DocumentAuthorizer {
	return &DocumentAuthorizer{
		store:  st,
		cases:  cases,
		tracer: otel.Tracer(tracerName),
	}
}

var _ ResourceAuthorizer = (*DocumentAuthorizer)(nil)

// Authorize evaluates one document permission check.
//
// The parent case is fetched here, not inside the delegated cascade, so
// that a dangling parentCaseId is reported as the document's
// referential-integrity fault rather than as a generic case denial.
func (a *DocumentAuthorizer) Authorize(ctx context.Context, callerID string, req CheckRequest) (Decision, error) {
	ctx, span := a.tracer.Start(ctx, "authz.Document.Authorize",
		trace.WithAttributes(attribute.String("authz.action", req.Action)))
	defer span.End()

	if req.ResourceID == "" {
		return Deny(ReasonResourceIDRequired), nil
	}

	doc, err := a.store.GetDocument(ctx, req.ResourceID)
	if err != nil {
		if rxerr.IsNotFound(err) {
			return Deny(ReasonDocumentDenied), nil
		}
		return Decision{}, err
	}

	if doc.ParentCaseID == "" {
		return Deny(ReasonNoAssociatedCase), nil
	}

	caseAction, ok := documentActionMap[req.Action]
	if !ok {
		return Deny(ReasonActionNotMapped), nil
	}

	parent, err := a.store.GetCase(ctx, doc.ParentCaseID)
	if err != nil {
		if rxerr.IsNotFound(err) {
			return Deny(ReasonParentCaseNotFound), nil
		}
		return Decision{}, err
	}

	return a.cases.AuthorizeDelegated(ctx, callerID, DelegateToCase{
		Action: caseAction,
		Case:   parent,
	})
}
