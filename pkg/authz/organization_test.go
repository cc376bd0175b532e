package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relexro/authz-core/internal/testutil/fakestore"
	"github.com/relexro/authz-core/internal/testutil/fixtures"
	"github.com/relexro/authz-core/pkg/store"
)

func newOrgStore() *fakestore.Store {
	return fakestore.New().
		AddMembership(store.Membership{
			UserID:         fixtures.AdminID,
			OrganizationID: fixtures.OrgID,
			Role:           "administrator",
		}).
		AddMembership(store.Membership{
			UserID:         fixtures.StaffID,
			OrganizationID: fixtures.OrgID,
			Role:           "staff",
		})
}

func newOrgAuthorizer(st *fakestore.Store) *OrganizationAuthorizer {
	return NewOrganizationAuthorizer(st, DefaultPolicy())
}

func TestOrganization_AdminAllowedCoreActions(t *testing.T) {
	t.Parallel()
	a := newOrgAuthorizer(newOrgStore())

	for _, action := range []string{ActionRead, ActionList, ActionUpdate, ActionDelete, ActionManageMembers} {
		dec, err := a.Authorize(context.Background(), fixtures.AdminID, CheckRequest{
			ResourceType: ResourceOrganization,
			ResourceID:   fixtures.OrgID,
			Action:       action,
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "admin should be allowed %s", action)
	}
}

func TestOrganization_MemberManagementAliases(t *testing.T) {
	t.Parallel()
	a := newOrgAuthorizer(newOrgStore())

	aliases := []string{"addMember", "setMemberRole", "removeMember", "listMembers"}

	// The sub-actions expand to manage_members, so Administrators hold
	// them and Staff do not.
	for _, action := range aliases {
		dec, err := a.Authorize(context.Background(), fixtures.AdminID, CheckRequest{
			ResourceType: ResourceOrganization,
			ResourceID:   fixtures.OrgID,
			Action:       action,
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "admin should be allowed %s", action)
	}

	for _, action := range aliases {
		dec, err := a.Authorize(context.Background(), fixtures.StaffID, CheckRequest{
			ResourceType: ResourceOrganization,
			ResourceID:   fixtures.OrgID,
			Action:       action,
		})
		require.NoError(t, err)
		assert.False(t, dec.Allowed, "staff must be denied %s", action)
	}
}

func TestOrganization_StaffReadOnly(t *testing.T) {
	t.Parallel()
	a := newOrgAuthorizer(newOrgStore())

	for action, want := range map[string]bool{
		ActionRead:   true,
		ActionList:   true,
		ActionUpdate: false,
		ActionDelete: false,
	} {
		dec, err := a.Authorize(context.Background(), fixtures.StaffID, CheckRequest{
			ResourceType: ResourceOrganization,
			ResourceID:   fixtures.OrgID,
			Action:       action,
		})
		require.NoError(t, err)
		assert.Equal(t, want, dec.Allowed, "staff action %s", action)
	}
}

func TestOrganization_NonMemberDenied(t *testing.T) {
	t.Parallel()
	a := newOrgAuthorizer(newOrgStore())

	dec, err := a.Authorize(context.Background(), fixtures.OutsiderID, CheckRequest{
		ResourceType: ResourceOrganization,
		ResourceID:   fixtures.OrgID,
		Action:       ActionRead,
	})
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonNotMember, dec.Reason)
}

func TestOrganization_MembershipWithoutRoleDenied(t *testing.T) {
	t.Parallel()
	st := newOrgStore().AddMembership(store.Membership{
		UserID:         "user-broken",
		OrganizationID: fixtures.OrgID,
	})
	a := newOrgAuthorizer(st)

	dec, err := a.Authorize(context.Background(), "user-broken", CheckRequest{
		ResourceType: ResourceOrganization,
		ResourceID:   fixtures.OrgID,
		Action:       ActionRead,
	})
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonRoleUnset, dec.Reason)
}

func TestOrganization_OrganizationIDFallback(t *testing.T) {
	t.Parallel()
	a := newOrgAuthorizer(newOrgStore())

	// The target may arrive in the organizationId field instead of
	// resourceId.
	dec, err := a.Authorize(context.Background(), fixtures.AdminID, CheckRequest{
		ResourceType:   ResourceOrganization,
		Action:         ActionRead,
		OrganizationID: fixtures.OrgID,
	})
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestOrganization_MissingIdentifierDenied(t *testing.T) {
	t.Parallel()
	a := newOrgAuthorizer(newOrgStore())

	dec, err := a.Authorize(context.Background(), fixtures.AdminID, CheckRequest{
		ResourceType: ResourceOrganization,
		Action:       ActionRead,
	})
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonOrganizationIDRequired, dec.Reason)
}

func TestOrganization_StoreFailurePropagates(t *testing.T) {
	t.Parallel()
	st := newOrgStore()
	st.Err = errors.New("connection refused")
	a := newOrgAuthorizer(st)

	_, err := a.Authorize(context.Background(), fixtures.AdminID, CheckRequest{
		ResourceType: ResourceOrganization,
		ResourceID:   fixtures.OrgID,
		Action:       ActionRead,
	})
	require.Error(t, err)
}
