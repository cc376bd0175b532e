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

// newCaseStore seeds a fake store with the standard fixture world: an
// individual case, an unassigned organization case, a case assigned to
// the staff member, and admin/staff memberships in org-1.
func newCaseStore() *fakestore.Store {
	return fakestore.New().
		AddCase(store.Case{
			ID:          fixtures.IndividualCaseID,
			OwnerUserID: fixtures.OwnerID,
		}).
		AddCase(store.Case{
			ID:             fixtures.OrgCaseID,
			OwnerUserID:    fixtures.OwnerID,
			OrganizationID: fixtures.OrgID,
		}).
		AddCase(store.Case{
			ID:             fixtures.AssignedCaseID,
			OwnerUserID:    fixtures.OwnerID,
			OrganizationID: fixtures.OrgID,
			AssignedUserID: fixtures.StaffID,
		}).
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

func newCaseAuthorizer(st *fakestore.Store) *CaseAuthorizer {
	return NewCaseAuthorizer(st, DefaultPolicy())
}

// ===========================================================================
// Individual Case Tests
// ===========================================================================

func TestCase_Individual_OwnerAllowedEveryOwnerAction(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())

	for _, action := range []string{
		ActionRead, ActionUpdate, ActionDelete, ActionArchive,
		ActionAttachParty, ActionDetachParty, ActionUploadFile,
	} {
		dec, err := a.Authorize(context.Background(), fixtures.OwnerID, CheckRequest{
			ResourceType: ResourceCase,
			ResourceID:   fixtures.IndividualCaseID,
			Action:       action,
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "owner should be allowed %s on own individual case", action)
	}
}

func TestCase_Individual_NonOwnerDeniedEveryAction(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())

	for _, caller := range []string{fixtures.AdminID, fixtures.StaffID, fixtures.OutsiderID} {
		for _, action := range []string{ActionRead, ActionUpdate, ActionDelete} {
			dec, err := a.Authorize(context.Background(), caller, CheckRequest{
				ResourceType: ResourceCase,
				ResourceID:   fixtures.IndividualCaseID,
				Action:       action,
			})
			require.NoError(t, err)
			assert.False(t, dec.Allowed,
				"no role-based path exists for individual cases (caller %s, action %s)", caller, action)
			assert.Equal(t, ReasonCaseDenied, dec.Reason)
		}
	}
}

// Scenario: the owner of an individual case deletes it.
func TestCase_Individual_OwnerDelete(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())

	dec, err := a.Authorize(context.Background(), fixtures.OwnerID, CheckRequest{
		ResourceType: ResourceCase,
		ResourceID:   fixtures.IndividualCaseID,
		Action:       ActionDelete,
	})
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

// ===========================================================================
// Organization Case Tests
// ===========================================================================

func TestCase_Org_OwnerShortCircuitsBeforeMembership(t *testing.T) {
	t.Parallel()
	st := newCaseStore()
	a := newCaseAuthorizer(st)

	before := st.Reads()
	dec, err := a.Authorize(context.Background(), fixtures.OwnerID, CheckRequest{
		ResourceType: ResourceCase,
		ResourceID:   fixtures.OrgCaseID,
		Action:       ActionDelete,
	})
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 1, st.Reads()-before, "ownership must be decided without a membership lookup")
}

// A case creator who also holds an unassigned Staff membership keeps
// Owner-level rights: the ownership check fires before the assignment
// gate, so creators never lock themselves out.
func TestCase_Org_OwnerWithUnassignedStaffMembershipKeepsOwnerRights(t *testing.T) {
	t.Parallel()
	st := newCaseStore().AddMembership(store.Membership{
		UserID:         fixtures.OwnerID,
		OrganizationID: fixtures.OrgID,
		Role:           "staff",
	})
	a := newCaseAuthorizer(st)

	dec, err := a.Authorize(context.Background(), fixtures.OwnerID, CheckRequest{
		ResourceType: ResourceCase,
		ResourceID:   fixtures.OrgCaseID,
		Action:       ActionUpdate,
	})
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestCase_Org_AdminAllowedRegardlessOfAssignment(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())

	// AssignedCaseID is assigned to the staff member, not the admin.
	for _, action := range []string{ActionRead, ActionUpdate, ActionDelete, ActionArchive} {
		dec, err := a.Authorize(context.Background(), fixtures.AdminID, CheckRequest{
			ResourceType: ResourceCase,
			ResourceID:   fixtures.AssignedCaseID,
			Action:       action,
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "administrator should be allowed %s regardless of assignment", action)
	}
}

func TestCase_Org_StaffReadWithoutAssignment(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())

	// OrgCaseID has no assignee; read/list are exempt from the gate.
	for _, action := range []string{ActionRead, ActionList} {
		dec, err := a.Authorize(context.Background(), fixtures.StaffID, CheckRequest{
			ResourceType: ResourceCase,
			ResourceID:   fixtures.OrgCaseID,
			Action:       action,
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "staff %s should not require assignment", action)
	}
}

func TestCase_Org_StaffMutationsRequireAssignment(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())

	mutating := []string{
		ActionUpdate, ActionDelete, ActionArchive,
		ActionAttachParty, ActionDetachParty, ActionUploadFile,
	}

	// Unassigned case: every mutating action is denied.
	for _, action := range mutating {
		dec, err := a.Authorize(context.Background(), fixtures.StaffID, CheckRequest{
			ResourceType: ResourceCase,
			ResourceID:   fixtures.OrgCaseID,
			Action:       action,
		})
		require.NoError(t, err)
		assert.False(t, dec.Allowed, "unassigned staff should be denied %s", action)
		assert.Equal(t, ReasonNotAssigned, dec.Reason)
	}

	// Assigned case: the same actions are allowed.
	for _, action := range mutating {
		dec, err := a.Authorize(context.Background(), fixtures.StaffID, CheckRequest{
			ResourceType: ResourceCase,
			ResourceID:   fixtures.AssignedCaseID,
			Action:       action,
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "assigned staff should be allowed %s", action)
	}
}

func TestCase_Org_NonMemberDenied(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())

	dec, err := a.Authorize(context.Background(), fixtures.OutsiderID, CheckRequest{
		ResourceType: ResourceCase,
		ResourceID:   fixtures.OrgCaseID,
		Action:       ActionRead,
	})
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonNotOwnerOrMember, dec.Reason)
}

func TestCase_Org_CrossOrganizationIsolation(t *testing.T) {
	t.Parallel()
	// The admin of org-1 holds no role in org-2; a case in org-2 must be
	// out of reach regardless of the role held elsewhere.
	st := newCaseStore().AddCase(store.Case{
		ID:             "case-other-org",
		OwnerUserID:    "user-someone-else",
		OrganizationID: fixtures.AltOrgID,
	})
	a := newCaseAuthorizer(st)

	for _, action := range []string{ActionRead, ActionUpdate, ActionDelete} {
		dec, err := a.Authorize(context.Background(), fixtures.AdminID, CheckRequest{
			ResourceType: ResourceCase,
			ResourceID:   "case-other-org",
			Action:       action,
		})
		require.NoError(t, err)
		assert.False(t, dec.Allowed, "org-1 admin must be denied %s in org-2", action)
	}
}

func TestCase_Org_MembershipWithUnknownRoleDenied(t *testing.T) {
	t.Parallel()
	st := newCaseStore().AddMembership(store.Membership{
		UserID:         "user-contractor",
		OrganizationID: fixtures.OrgID,
		Role:           "contractor",
	})
	a := newCaseAuthorizer(st)

	dec, err := a.Authorize(context.Background(), "user-contractor", CheckRequest{
		ResourceType: ResourceCase,
		ResourceID:   fixtures.OrgCaseID,
		Action:       ActionRead,
	})
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
}

// ===========================================================================
// Create / List Tests
// ===========================================================================

func TestCase_CreateList_WithoutOrganizationUniversallyAllowed(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())

	for _, action := range []string{ActionCreate, ActionList} {
		dec, err := a.Authorize(context.Background(), fixtures.OutsiderID, CheckRequest{
			ResourceType: ResourceCase,
			Action:       action,
		})
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "individual %s needs no membership", action)
	}
}

func TestCase_CreateList_WithOrganizationRequiresMembership(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())

	for _, action := range []string{ActionCreate, ActionList} {
		for caller, want := range map[string]bool{
			fixtures.AdminID:    true,
			fixtures.StaffID:    true,
			fixtures.OutsiderID: false,
		} {
			dec, err := a.Authorize(context.Background(), caller, CheckRequest{
				ResourceType:   ResourceCase,
				Action:         action,
				OrganizationID: fixtures.OrgID,
			})
			require.NoError(t, err)
			assert.Equal(t, want, dec.Allowed, "caller %s action %s", caller, action)
		}
	}
}

// ===========================================================================
// Shape and Failure Tests
// ===========================================================================

func TestCase_MissingResourceID(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())

	dec, err := a.Authorize(context.Background(), fixtures.OwnerID, CheckRequest{
		ResourceType: ResourceCase,
		Action:       ActionRead,
	})
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonResourceIDRequired, dec.Reason)
}

func TestCase_NotFoundIsDenialNotError(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())

	dec, err := a.Authorize(context.Background(), fixtures.OwnerID, CheckRequest{
		ResourceType: ResourceCase,
		ResourceID:   "case-does-not-exist",
		Action:       ActionRead,
	})
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonCaseDenied, dec.Reason,
		"not-found must be indistinguishable from denial")
}

func TestCase_StoreFailurePropagates(t *testing.T) {
	t.Parallel()
	st := newCaseStore()
	st.Err = errors.New("connection refused")
	a := newCaseAuthorizer(st)

	_, err := a.Authorize(context.Background(), fixtures.OwnerID, CheckRequest{
		ResourceType: ResourceCase,
		ResourceID:   fixtures.OrgCaseID,
		Action:       ActionRead,
	})
	require.Error(t, err)
}

func TestCase_Idempotent(t *testing.T) {
	t.Parallel()
	a := newCaseAuthorizer(newCaseStore())
	req := CheckRequest{
		ResourceType: ResourceCase,
		ResourceID:   fixtures.AssignedCaseID,
		Action:       ActionUpdate,
	}

	first, err := a.Authorize(context.Background(), fixtures.StaffID, req)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := a.Authorize(context.Background(), fixtures.StaffID, req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
