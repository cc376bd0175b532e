// Package postgres implements the record-store contract against
// PostgreSQL using pgxpool, with OpenTelemetry tracing on every read.
//
// The store is strictly read-only: records are written by the case,
// party, document, and membership subsystems; this package only fetches
// the few columns each permission check needs.
//
// For unit testing, use [NewFromPool] to inject a pgxmock pool:
//
//	mock, _ := pgxmock.NewPool()
//	st := postgres.NewFromPool(mock)
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgxpool"

	rxerr "github.com/relexro/authz-core/pkg/errors"
	"github.com/relexro/authz-core/pkg/store"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/relexro/authz-core/pkg/store/postgres"

// DefaultHealthTimeout is applied to Ping when the caller's context has no
// deadline.
const DefaultHealthTimeout = 5 * time.Second

// Pool is the subset of pgxpool.Pool operations the store performs.
// It is satisfied by [*pgxpool.Pool] and by pgxmock pools, enabling
// dependency injection via [NewFromPool] for tests.
type Pool interface {
	// QueryRow executes a SQL query that returns at most one row.
	// Errors are deferred until the returned pgx.Row is scanned.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	// Ping verifies the connection to the database is alive.
	Ping(ctx context.Context) error

	// Close releases all pool resources.
	Close()
}

// Compile-time interface compliance check.
var _ Pool = (*pgxpool.Pool)(nil)

// Store is the PostgreSQL-backed record store. It is safe for concurrent
// use; create one Store per database and share it.
type Store struct {
	pool   Pool
	tracer trace.Tracer
}

// Compile-time contract checks.
var (
	_ store.RecordStore = (*Store)(nil)
	_ store.Pinger      = (*Store)(nil)
)

// New creates a Store with a new connection pool. It validates the
// configuration, establishes the pool, and verifies connectivity with a
// ping. The caller must call [Store.Close] when done.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URI)
	if err != nil {
		return nil, rxerr.Wrap(err, rxerr.CodeValidation,
			"postgres: failed to parse connection string")
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, rxerr.Wrap(err, rxerr.CodeUnavailableDependency,
			"postgres: failed to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, rxerr.Wrap(err, rxerr.CodeUnavailableDependency,
			"postgres: failed to connect to database")
	}

	return &Store{
		pool:   pool,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// NewFromPool creates a Store with a pre-existing [Pool]. Intended for
// testing with pgxmock.
func NewFromPool(pool Pool) *Store {
	return &Store{
		pool:   pool,
		tracer: otel.Tracer(tracerName),
	}
}

// GetCase fetches the ownership, organization, and assignment columns of a
// case. Returns a not-found error when no such case exists.
func (s *Store) GetCase(ctx context.Context, id string) (*store.Case, error) {
	ctx, span := s.startSpan(ctx, "GetCase", "cases")
	defer span.End()

	var (
		owner    string
		org      *string
		assigned *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT owner_user_id, organization_id, assigned_user_id FROM cases WHERE id = $1`,
		id,
	).Scan(&owner, &org, &assigned)
	if err != nil {
		return nil, s.scanError(span, err, "case", id)
	}

	c := &store.Case{ID: id, OwnerUserID: owner}
	if org != nil {
		c.OrganizationID = *org
	}
	if assigned != nil {
		c.AssignedUserID = *assigned
	}
	return c, nil
}

// GetParty fetches the ownership column of a party.
func (s *Store) GetParty(ctx context.Context, id string) (*store.Party, error) {
	ctx, span := s.startSpan(ctx, "GetParty", "parties")
	defer span.End()

	var owner string
	err := s.pool.QueryRow(ctx,
		`SELECT owner_user_id FROM parties WHERE id = $1`,
		id,
	).Scan(&owner)
	if err != nil {
		return nil, s.scanError(span, err, "party", id)
	}

	return &store.Party{ID: id, OwnerUserID: owner}, nil
}

// GetDocument fetches the parent-case reference of a document. A document
// whose parent_case_id column is NULL is returned with an empty
// ParentCaseID; the document checker denies it as having no associated case.
func (s *Store) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	ctx, span := s.startSpan(ctx, "GetDocument", "documents")
	defer span.End()

	var parent *string
	err := s.pool.QueryRow(ctx,
		`SELECT parent_case_id FROM documents WHERE id = $1`,
		id,
	).Scan(&parent)
	if err != nil {
		return nil, s.scanError(span, err, "document", id)
	}

	d := &store.Document{ID: id}
	if parent != nil {
		d.ParentCaseID = *parent
	}
	return d, nil
}

// FindMembership looks up the membership of a user in an organization.
func (s *Store) FindMembership(ctx context.Context, userID, organizationID string) (*store.Membership, error) {
	ctx, span := s.startSpan(ctx, "FindMembership", "organization_members")
	defer span.End()

	var role *string
	err := s.pool.QueryRow(ctx,
		`SELECT role FROM organization_members WHERE user_id = $1 AND organization_id = $2`,
		userID, organizationID,
	).Scan(&role)
	if err != nil {
		return nil, s.scanError(span, err, "membership", userID+"/"+organizationID)
	}

	m := &store.Membership{UserID: userID, OrganizationID: organizationID}
	if role != nil {
		m.Role = *role
	}
	return m, nil
}

// Ping verifies that the database is reachable. It applies
// [DefaultHealthTimeout] if the provided context has no deadline.
func (s *Store) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping", "")
	defer span.End()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	if err := s.pool.Ping(ctx); err != nil {
		finishSpan(span, err)
		return rxerr.Wrap(err, rxerr.CodeUnavailableDependency,
			"postgres: health check failed")
	}
	return nil
}

// Close releases all connection pool resources. The store must not be
// used after Close.
func (s *Store) Close() {
	s.pool.Close()
}

// scanError converts a row-scan error into the store's error taxonomy:
// pgx.ErrNoRows becomes a not-found error, context deadline errors become
// timeouts, and anything else is an internal database fault.
func (s *Store) scanError(span trace.Span, err error, kind, id string) error {
	finishSpan(span, err)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return store.NotFound(kind, id)
	case errors.Is(err, context.DeadlineExceeded):
		return rxerr.Wrapf(err, rxerr.CodeTimeoutDatabase,
			"postgres: %s read timed out", kind)
	default:
		return rxerr.Wrapf(err, rxerr.CodeInternalDatabase,
			"postgres: %s read failed", kind)
	}
}

// startSpan creates a client span with database semantic attributes.
func (s *Store) startSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "store."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
	}
	if table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", table))
	}
	span.SetAttributes(attrs...)
	return ctx, span
}

// finishSpan records err on span and marks the span status as error.
func finishSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
