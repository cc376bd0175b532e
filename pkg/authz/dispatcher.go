package authz

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	rxerr "github.com/relexro/authz-core/pkg/errors"
	"github.com/relexro/authz-core/pkg/store"
)

// Observer is notified of every completed permission decision, for
// metrics collection.
type Observer func(resource ResourceType, allowed bool)

// Dispatcher validates permission-check requests and routes them to the
// per-resource checkers. It is the single place infrastructure failures
// are caught: a failed store read becomes a deny-by-default decision plus
// an internal error, never an allow.
type Dispatcher struct {
	authorizers map[ResourceType]ResourceAuthorizer
	logger      *slog.Logger
	observer    Observer
	tracer      trace.Tracer
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger used for the per-decision audit line.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithObserver registers a decision observer.
func WithObserver(obs Observer) DispatcherOption {
	return func(d *Dispatcher) { d.observer = obs }
}

// NewDispatcher creates a Dispatcher with the four resource checkers
// built over the given store and policy.
func NewDispatcher(st store.RecordStore, policy Policy, opts ...DispatcherOption) *Dispatcher {
	cases := NewCaseAuthorizer(st, policy)
	d := &Dispatcher{
		authorizers: map[ResourceType]ResourceAuthorizer{
			ResourceCase:         cases,
			ResourceOrganization: NewOrganizationAuthorizer(st, policy),
			ResourceParty:        NewPartyAuthorizer(st, policy),
			ResourceDocument:     NewDocumentAuthorizer(st, cases),
		},
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check evaluates one permission request for the given caller.
//
// A nil error with Allowed=false is a normal denial. A non-nil error
// means the check could not be evaluated (invalid request shape or an
// infrastructure fault); the accompanying Decision always denies, so a
// caller that ignores the error still fails closed.
func (d *Dispatcher) Check(ctx context.Context, callerID string, req CheckRequest) (Decision, error) {
	ctx, span := d.tracer.Start(ctx, "authz.Check", trace.WithAttributes(
		attribute.String("authz.resource_type", string(req.ResourceType)),
		attribute.String("authz.action", req.Action),
	))
	defer span.End()

	if vErr := req.Validate(); vErr != nil {
		span.SetStatus(codes.Error, vErr.Message)
		return Deny(ReasonInternalFault), vErr
	}

	authorizer, ok := d.authorizers[req.ResourceType]
	if !ok {
		// Validate accepted the type but nothing is registered for it:
		// the dispatch table is misconfigured.
		err := rxerr.Newf(rxerr.CodeInternal, "no authorizer registered for resource type %q", req.ResourceType)
		span.SetStatus(codes.Error, err.Message)
		return Deny(ReasonInternalFault), err
	}

	dec, err := authorizer.Authorize(ctx, callerID, req)
	if err != nil {
		wrapped := rxerr.Wrap(err, rxerr.CodeInternal, "permission evaluation failed")
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Message)
		d.logger.ErrorContext(ctx, "permission check failed",
			"caller_id", callerID,
			"resource_type", req.ResourceType,
			"resource_id", req.ResourceID,
			"action", req.Action,
			"error", err,
		)
		d.observe(req.ResourceType, false)
		return Deny(ReasonInternalFault), wrapped
	}

	span.SetAttributes(attribute.Bool("authz.allowed", dec.Allowed))
	d.logger.InfoContext(ctx, "permission decision",
		"caller_id", callerID,
		"resource_type", req.ResourceType,
		"resource_id", req.ResourceID,
		"action", req.Action,
		"allowed", dec.Allowed,
		"reason", dec.Reason,
	)
	d.observe(req.ResourceType, dec.Allowed)
	return dec, nil
}

func (d *Dispatcher) observe(rt ResourceType, allowed bool) {
	if d.observer != nil {
		d.observer(rt, allowed)
	}
}
