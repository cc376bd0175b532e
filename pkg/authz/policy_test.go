package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rxerr "github.com/relexro/authz-core/pkg/errors"
)

// ===========================================================================
// ResourceType Tests
// ===========================================================================

func TestParseResourceType_KnownKinds(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"case", "organization", "party", "document"} {
		rt, err := ParseResourceType(s)
		require.Nil(t, err, "expected %q to parse", s)
		assert.Equal(t, ResourceType(s), rt)
	}
}

func TestParseResourceType_Unknown(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"", "Case", "invoice", "cases"} {
		_, err := ParseResourceType(s)
		require.NotNil(t, err, "expected %q to be rejected", s)
		assert.Equal(t, rxerr.CodeValidation, err.Code)
	}
}

// ===========================================================================
// CheckRequest Tests
// ===========================================================================

func TestCheckRequest_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     CheckRequest
		wantErr bool
	}{
		{"valid case read", CheckRequest{ResourceType: ResourceCase, ResourceID: "c1", Action: ActionRead}, false},
		{"valid create without id", CheckRequest{ResourceType: ResourceCase, Action: ActionCreate}, false},
		{"unknown resource type", CheckRequest{ResourceType: "invoice", Action: ActionRead}, true},
		{"empty resource type", CheckRequest{Action: ActionRead}, true},
		{"empty action", CheckRequest{ResourceType: ResourceParty}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Validate()
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, rxerr.CodeValidation, err.Code)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

// ===========================================================================
// Policy Tests
// ===========================================================================

func TestPolicy_UnknownRoleOrActionIsFalse(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy()

	// Any (resourceType, role, action) triple absent from the table
	// resolves to false, never to an error or wildcard.
	assert.False(t, p.Allows(ResourceCase, Role("manager"), ActionRead))
	assert.False(t, p.Allows(ResourceCase, RoleOwner, "transmogrify"))
	assert.False(t, p.Allows(ResourceDocument, RoleOwner, ActionRead), "documents have no direct policy")
	assert.False(t, p.Allows(ResourceType("invoice"), RoleOwner, ActionRead))
	assert.False(t, p.Allows(ResourceOrganization, RoleOwner, ActionRead), "owner is not an organization role")
}

func TestPolicy_CaseActionSets(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy()

	for _, role := range []Role{RoleOwner, RoleAdministrator, RoleStaff} {
		for _, action := range []string{
			ActionRead, ActionList, ActionCreate, ActionUpdate, ActionDelete,
			ActionArchive, ActionAttachParty, ActionDetachParty, ActionUploadFile,
		} {
			assert.True(t, p.Allows(ResourceCase, role, action),
				"case %s should allow %s", role, action)
		}
	}
}

func TestPolicy_OrganizationActionSets(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy()

	assert.True(t, p.Allows(ResourceOrganization, RoleAdministrator, ActionManageMembers))
	assert.True(t, p.Allows(ResourceOrganization, RoleAdministrator, ActionDelete))
	assert.True(t, p.Allows(ResourceOrganization, RoleStaff, ActionRead))
	assert.False(t, p.Allows(ResourceOrganization, RoleStaff, ActionManageMembers))
	assert.False(t, p.Allows(ResourceOrganization, RoleStaff, ActionUpdate))
}

func TestPolicy_PartyOwnerSet(t *testing.T) {
	t.Parallel()
	p := DefaultPolicy()

	assert.True(t, p.Allows(ResourceParty, RoleOwner, ActionRead))
	assert.True(t, p.Allows(ResourceParty, RoleOwner, ActionDelete))
	assert.False(t, p.Allows(ResourceParty, RoleOwner, ActionArchive),
		"archive is not a party action")
}

func TestPolicy_Extend_AddsActions(t *testing.T) {
	t.Parallel()
	base := DefaultPolicy()
	extended := base.Extend(Overrides{
		"party": {"owner": {"export"}},
		"case":  {"auditor": {"read", "list"}},
	})

	assert.True(t, extended.Allows(ResourceParty, RoleOwner, "export"))
	assert.True(t, extended.Allows(ResourceCase, Role("auditor"), ActionRead))
	assert.False(t, base.Allows(ResourceParty, RoleOwner, "export"),
		"Extend must not mutate the receiver")
}

func TestPolicy_Extend_NeverShrinks(t *testing.T) {
	t.Parallel()
	extended := DefaultPolicy().Extend(Overrides{
		"party": {"owner": {}},
	})
	assert.True(t, extended.Allows(ResourceParty, RoleOwner, ActionRead),
		"existing grants survive an empty override")
}

func TestPolicy_Extend_IgnoresUnknownResourceKind(t *testing.T) {
	t.Parallel()
	extended := DefaultPolicy().Extend(Overrides{
		"invoice": {"owner": {"read"}},
	})
	assert.False(t, extended.Allows(ResourceType("invoice"), RoleOwner, ActionRead))
}
