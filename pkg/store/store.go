// Package store defines the read-only record-store contract the
// authorization engine depends on, together with the record shapes it
// reads. The engine never creates or mutates records: cases, parties,
// documents, and memberships are produced by other subsystems and only
// consulted here at decision time.
//
// Implementations signal a missing record with an error for which
// [rxerr.IsNotFound] returns true; all other errors are treated as
// infrastructure faults and cause the permission dispatcher to deny by
// default.
package store

import (
	"context"

	rxerr "github.com/relexro/authz-core/pkg/errors"
)

// Case is the case record as read at decision time. OrganizationID is
// empty for individual cases; AssignedUserID is empty when no staff member
// is assigned.
type Case struct {
	ID             string
	OwnerUserID    string
	OrganizationID string
	AssignedUserID string
}

// Individual reports whether the case belongs to a single user rather
// than an organization. Individual cases are accessible only to their
// owner; no role-based path exists for them.
func (c *Case) Individual() bool {
	return c.OrganizationID == ""
}

// Membership links a user to an organization with a role. Role is one of
// the membership roles ("administrator", "staff"); "owner" is never a
// membership role.
type Membership struct {
	UserID         string
	OrganizationID string
	Role           string
}

// Party is a party record (a person or entity referenced by cases).
type Party struct {
	ID          string
	OwnerUserID string
}

// Document is a document record. A document carries no policy of its own;
// its access is derived from ParentCaseID.
type Document struct {
	ID           string
	ParentCaseID string
}

// RecordStore is the read contract the permission checkers evaluate
// against. Implementations must return a not-found error (per
// [rxerr.IsNotFound]) for missing records and must provide read
// consistency at the single-read level; the engine accepts check-time
// staleness (TOCTOU) as documented in the service design.
//
// Implementations must be safe for concurrent use.
type RecordStore interface {
	// GetCase fetches a case by id.
	GetCase(ctx context.Context, id string) (*Case, error)

	// GetParty fetches a party by id.
	GetParty(ctx context.Context, id string) (*Party, error)

	// GetDocument fetches a document by id.
	GetDocument(ctx context.Context, id string) (*Document, error)

	// FindMembership looks up the membership of a user in an organization.
	FindMembership(ctx context.Context, userID, organizationID string) (*Membership, error)
}

// Pinger is implemented by stores that can report backend liveness, used
// by the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NotFound constructs the canonical not-found error for a record kind and
// id, shared by all RecordStore implementations.
func NotFound(kind, id string) *rxerr.Error {
	return rxerr.NotFoundf("%s %q not found", kind, id).WithDetail("id", id)
}
