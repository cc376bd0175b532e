//go:build integration

// Package cached_test contains integration tests for the Redis-backed
// record cache that require running Redis and PostgreSQL instances via
// testcontainers-go. These tests are gated behind the "integration" build
// tag and are executed in CI with Docker.
//
// Run locally with:
//
//	go test -v -race -tags=integration ./pkg/store/cached/...
//
// # Architecture
//
// All tests run within a single [suite.Suite] that starts one Redis
// container and one PostgreSQL container in [SetupSuite] and terminates
// them in [TearDownSuite]. Test isolation is achieved via distinct record
// identifiers per test method rather than per-test containers, which
// reduces total execution time.
package cached_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/relexro/authz-core/internal/testutil/containers"
	rxerr "github.com/relexro/authz-core/pkg/errors"
	"github.com/relexro/authz-core/pkg/store/cached"
	"github.com/relexro/authz-core/pkg/store/postgres"
)

// CacheIntegrationSuite runs all cache integration tests against shared
// Redis and PostgreSQL containers.
type CacheIntegrationSuite struct {
	suite.Suite

	ctx context.Context

	redisResult    *containers.RedisResult
	postgresResult *containers.PostgresResult

	// admin is a raw pool used to create schema and mutate fixture rows,
	// since the record store itself is read-only.
	admin *pgxpool.Pool

	inner *postgres.Store
	cache *cached.Store
}

// SetupSuite starts the containers, applies the schema, and builds the
// cached store chain shared across all tests in the suite.
func (s *CacheIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	redisResult, err := containers.StartRedis(s.ctx)
	require.NoError(s.T(), err, "failed to start Redis container")
	s.redisResult = redisResult

	postgresResult, err := containers.StartPostgres(s.ctx)
	require.NoError(s.T(), err, "failed to start PostgreSQL container")
	s.postgresResult = postgresResult

	s.admin, err = pgxpool.New(s.ctx, postgresResult.ConnString)
	require.NoError(s.T(), err, "failed to create admin pool")

	_, err = s.admin.Exec(s.ctx, `
		CREATE TABLE cases (
			id TEXT PRIMARY KEY,
			owner_user_id TEXT NOT NULL,
			organization_id TEXT,
			assigned_user_id TEXT
		);
		CREATE TABLE parties (
			id TEXT PRIMARY KEY,
			owner_user_id TEXT NOT NULL
		);
		CREATE TABLE documents (
			id TEXT PRIMARY KEY,
			parent_case_id TEXT
		);
		CREATE TABLE organization_members (
			user_id TEXT NOT NULL,
			organization_id TEXT NOT NULL,
			role TEXT,
			PRIMARY KEY (user_id, organization_id)
		);
	`)
	require.NoError(s.T(), err, "failed to apply schema")

	pgCfg := postgres.DefaultConfig()
	pgCfg.URI = postgresResult.ConnString
	pgCfg.MaxConns = 5
	pgCfg.MinConns = 1
	s.inner, err = postgres.New(s.ctx, pgCfg)
	require.NoError(s.T(), err, "failed to create postgres store")

	cacheCfg := cached.DefaultConfig()
	cacheCfg.URI = redisResult.ConnString
	cacheCfg.TTL = 2 * time.Second
	s.cache, err = cached.New(s.ctx, cacheCfg, s.inner)
	require.NoError(s.T(), err, "failed to create cached store")
}

// TearDownSuite closes the store chain and terminates both containers.
func (s *CacheIntegrationSuite) TearDownSuite() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.inner != nil {
		s.inner.Close()
	}
	if s.admin != nil {
		s.admin.Close()
	}
	if s.redisResult != nil {
		_ = s.redisResult.Container.Terminate(s.ctx)
	}
	if s.postgresResult != nil {
		_ = s.postgresResult.Container.Terminate(s.ctx)
	}
}

// TestCacheIntegrationSuite is the entry point for the suite.
func TestCacheIntegrationSuite(t *testing.T) {
	suite.Run(t, new(CacheIntegrationSuite))
}

// TestGetCase_ServesStaleWithinTTL verifies the read-through contract
// against real backends: after the first read populates the cache, the
// row can be deleted from PostgreSQL and the record is still served until
// the TTL expires, after which the miss surfaces as not-found.
func (s *CacheIntegrationSuite) TestGetCase_ServesStaleWithinTTL() {
	_, err := s.admin.Exec(s.ctx,
		`INSERT INTO cases (id, owner_user_id, organization_id) VALUES ('case-ttl', 'user-1', 'org-1')`)
	require.NoError(s.T(), err)

	c, err := s.cache.GetCase(s.ctx, "case-ttl")
	require.NoError(s.T(), err)
	s.Equal("user-1", c.OwnerUserID)

	// Remove the row; the cached copy must still satisfy reads.
	_, err = s.admin.Exec(s.ctx, `DELETE FROM cases WHERE id = 'case-ttl'`)
	require.NoError(s.T(), err)

	c, err = s.cache.GetCase(s.ctx, "case-ttl")
	require.NoError(s.T(), err, "entry within TTL should be served from cache")
	s.Equal("user-1", c.OwnerUserID)

	// After the TTL the deletion becomes visible.
	time.Sleep(3 * time.Second)
	_, err = s.cache.GetCase(s.ctx, "case-ttl")
	s.True(rxerr.IsNotFound(err), "expired entry should fall through to the store")
}

// TestGetCase_MissNotCached verifies that not-found results are never
// cached: a record created after a failed read is visible immediately.
func (s *CacheIntegrationSuite) TestGetCase_MissNotCached() {
	_, err := s.cache.GetCase(s.ctx, "case-late")
	s.True(rxerr.IsNotFound(err))

	_, err = s.admin.Exec(s.ctx,
		`INSERT INTO cases (id, owner_user_id) VALUES ('case-late', 'user-2')`)
	require.NoError(s.T(), err)

	c, err := s.cache.GetCase(s.ctx, "case-late")
	require.NoError(s.T(), err, "record created after a miss must be visible at once")
	s.Equal("user-2", c.OwnerUserID)
}

// TestInvalidateMembership_ForcesRefetch verifies that explicit
// invalidation makes a role change visible before the TTL expires.
func (s *CacheIntegrationSuite) TestInvalidateMembership_ForcesRefetch() {
	_, err := s.admin.Exec(s.ctx,
		`INSERT INTO organization_members (user_id, organization_id, role) VALUES ('user-3', 'org-2', 'staff')`)
	require.NoError(s.T(), err)

	m, err := s.cache.FindMembership(s.ctx, "user-3", "org-2")
	require.NoError(s.T(), err)
	s.Equal("staff", m.Role)

	_, err = s.admin.Exec(s.ctx,
		`UPDATE organization_members SET role = 'administrator' WHERE user_id = 'user-3'`)
	require.NoError(s.T(), err)

	// Still the cached role.
	m, err = s.cache.FindMembership(s.ctx, "user-3", "org-2")
	require.NoError(s.T(), err)
	s.Equal("staff", m.Role)

	require.NoError(s.T(), s.cache.InvalidateMembership(s.ctx, "user-3", "org-2"))

	m, err = s.cache.FindMembership(s.ctx, "user-3", "org-2")
	require.NoError(s.T(), err)
	s.Equal("administrator", m.Role, "invalidation should force a refetch")
}

// TestPing verifies the combined health check against both live backends.
func (s *CacheIntegrationSuite) TestPing() {
	s.NoError(s.cache.Ping(s.ctx))
}
