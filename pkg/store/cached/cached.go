package cached

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	rxerr "github.com/relexro/authz-core/pkg/errors"
	"github.com/relexro/authz-core/pkg/store"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/relexro/authz-core/pkg/store/cached"

// Cmdable defines the Redis command operations the cache performs. It is
// satisfied by [*redis.Client] and by mock implementations, enabling
// dependency injection via [NewFromClient] for testing without a real
// Redis instance.
type Cmdable interface {
	// Get returns the string value of a key.
	Get(ctx context.Context, key string) *redis.StringCmd

	// Set sets the string value of a key with an expiration.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd

	// Del deletes one or more keys.
	Del(ctx context.Context, keys ...string) *redis.IntCmd

	// Ping pings the Redis server.
	Ping(ctx context.Context) *redis.StatusCmd

	// Close closes the client connection.
	Close() error
}

// Compile-time interface compliance check.
var _ Cmdable = (*redis.Client)(nil)

// Store is a record store that serves reads from a Redis cache, falling
// back to the wrapped store on a miss or on any cache failure. Records
// found in the underlying store are written back with the configured TTL.
// Not-found results are never cached.
//
// A Store is safe for concurrent use. Create one with [New] for production
// use or [NewFromClient] for testing.
type Store struct {
	inner   store.RecordStore
	cmdable Cmdable
	ttl     time.Duration
	tracer  trace.Tracer
}

// Compile-time contract checks.
var (
	_ store.RecordStore = (*Store)(nil)
	_ store.Pinger      = (*Store)(nil)
)

// New creates a caching Store in front of inner. It validates the
// configuration, creates a go-redis client, and verifies connectivity with
// a ping. The caller must call [Store.Close] when done; closing the Store
// does not close the inner store.
func New(ctx context.Context, cfg Config, inner store.RecordStore) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, rxerr.Wrap(err, rxerr.CodeValidation,
			"cache: invalid configuration")
	}

	var opts *redis.Options
	if cfg.URI != "" {
		var err error
		opts, err = redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, rxerr.Wrap(err, rxerr.CodeValidation,
				"cache: failed to parse connection URI")
		}
		opts.PoolSize = cfg.PoolSize
		opts.MinIdleConns = cfg.MinIdleConns
		opts.DialTimeout = cfg.DialTimeout
		opts.ReadTimeout = cfg.ReadTimeout
		opts.WriteTimeout = cfg.WriteTimeout
	} else {
		opts = &redis.Options{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password:     cfg.Password.Value(),
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, rxerr.Wrap(err, rxerr.CodeUnavailableDependency,
			"cache: failed to connect to redis")
	}

	return &Store{
		inner:   inner,
		cmdable: rdb,
		ttl:     cfg.TTL,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// NewFromClient creates a Store with a pre-existing [Cmdable]. Intended
// for testing with mock implementations. A non-positive ttl falls back to
// [DefaultTTL].
func NewFromClient(cmdable Cmdable, inner store.RecordStore, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		inner:   inner,
		cmdable: cmdable,
		ttl:     ttl,
		tracer:  otel.Tracer(tracerName),
	}
}

// GetCase returns the case with the given id, serving from cache when
// possible.
func (s *Store) GetCase(ctx context.Context, id string) (*store.Case, error) {
	return readThrough(ctx, s, caseKey(id), func(ctx context.Context) (*store.Case, error) {
		return s.inner.GetCase(ctx, id)
	})
}

// GetParty returns the party with the given id, serving from cache when
// possible.
func (s *Store) GetParty(ctx context.Context, id string) (*store.Party, error) {
	return readThrough(ctx, s, partyKey(id), func(ctx context.Context) (*store.Party, error) {
		return s.inner.GetParty(ctx, id)
	})
}

// GetDocument returns the document with the given id, serving from cache
// when possible.
func (s *Store) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	return readThrough(ctx, s, documentKey(id), func(ctx context.Context) (*store.Document, error) {
		return s.inner.GetDocument(ctx, id)
	})
}

// FindMembership returns the membership of userID in organizationID,
// serving from cache when possible.
func (s *Store) FindMembership(ctx context.Context, userID, organizationID string) (*store.Membership, error) {
	return readThrough(ctx, s, membershipKey(userID, organizationID), func(ctx context.Context) (*store.Membership, error) {
		return s.inner.FindMembership(ctx, userID, organizationID)
	})
}

// InvalidateCase removes the cached entry for a case. Invalidation is
// best-effort: a cache failure is returned to the caller but stale entries
// also age out via the TTL.
func (s *Store) InvalidateCase(ctx context.Context, id string) error {
	return s.invalidate(ctx, caseKey(id))
}

// InvalidateParty removes the cached entry for a party.
func (s *Store) InvalidateParty(ctx context.Context, id string) error {
	return s.invalidate(ctx, partyKey(id))
}

// InvalidateDocument removes the cached entry for a document.
func (s *Store) InvalidateDocument(ctx context.Context, id string) error {
	return s.invalidate(ctx, documentKey(id))
}

// InvalidateMembership removes the cached entry for an organization
// membership.
func (s *Store) InvalidateMembership(ctx context.Context, userID, organizationID string) error {
	return s.invalidate(ctx, membershipKey(userID, organizationID))
}

// Ping verifies that both Redis and the underlying store (if it supports
// health checks) are reachable. It applies [DefaultHealthTimeout] if the
// provided context has no deadline.
func (s *Store) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping", "")
	defer span.End()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	if err := s.cmdable.Ping(ctx).Err(); err != nil {
		recordError(span, err)
		return rxerr.Wrap(err, rxerr.CodeUnavailableDependency,
			"cache: health check failed")
	}
	if p, ok := s.inner.(store.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			recordError(span, err)
			return err
		}
	}
	return nil
}

// Close releases the Redis connection resources. The inner store is not
// closed.
func (s *Store) Close() error {
	return s.cmdable.Close()
}

// readThrough implements the cache-aside read path shared by all record
// kinds: try Redis, fall back to the underlying store, then write the
// record back with the configured TTL. Cache reads and write-backs that
// fail are recorded on the span and otherwise ignored so that Redis
// outages never fail a permission check.
func readThrough[T any](ctx context.Context, s *Store, key string, fetch func(context.Context) (*T, error)) (*T, error) {
	ctx, span := s.startSpan(ctx, "Get", key)
	defer span.End()

	raw, err := s.cmdable.Get(ctx, key).Result()
	switch {
	case err == nil:
		var rec T
		if jsonErr := json.Unmarshal([]byte(raw), &rec); jsonErr == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &rec, nil
		}
		// A corrupt entry is dropped and refetched.
		_ = s.cmdable.Del(ctx, key).Err()
	case !errors.Is(err, redis.Nil):
		recordError(span, err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	rec, err := fetch(ctx)
	if err != nil {
		// Misses are never cached: a record created moments later must
		// be visible on the next check.
		return nil, err
	}

	if payload, jsonErr := json.Marshal(rec); jsonErr == nil {
		if setErr := s.cmdable.Set(ctx, key, payload, s.ttl).Err(); setErr != nil {
			recordError(span, setErr)
		}
	}
	return rec, nil
}

// invalidate deletes a cache key with tracing.
func (s *Store) invalidate(ctx context.Context, key string) error {
	ctx, span := s.startSpan(ctx, "Invalidate", key)
	defer span.End()

	if err := s.cmdable.Del(ctx, key).Err(); err != nil {
		recordError(span, err)
		return rxerr.Wrap(err, rxerr.CodeInternalDatabase,
			"cache: invalidate failed")
	}
	return nil
}

// Cache key construction. Keys are namespaced under "authz:" so the cache
// can share a Redis database with other services.

func caseKey(id string) string { return "authz:case:" + id }

func partyKey(id string) string { return "authz:party:" + id }

func documentKey(id string) string { return "authz:document:" + id }

func membershipKey(userID, organizationID string) string {
	return "authz:membership:" + organizationID + ":" + userID
}

// startSpan creates a client span with cache semantic attributes.
func (s *Store) startSpan(ctx context.Context, operation, key string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "cache."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "redis"),
	}
	if key != "" {
		attrs = append(attrs, attribute.String("cache.key", key))
	}
	span.SetAttributes(attrs...)
	return ctx, span
}

// recordError records err on span and marks the span status as error.
func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
