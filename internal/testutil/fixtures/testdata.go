// Package fixtures provides shared test data constants for the
// authorization service test suite.
//
// Using common constants for test identities prevents magic strings in
// tests and keeps caller/resource relationships consistent across
// packages.
package fixtures

// Standard caller identities used across authorization tests.
const (
	// OwnerID is the default resource owner in unit tests.
	OwnerID = "user-owner"

	// AdminID is a user holding an administrator membership in OrgID.
	AdminID = "user-admin"

	// StaffID is a user holding a staff membership in OrgID.
	StaffID = "user-staff"

	// OutsiderID is an authenticated user with no memberships and no
	// owned resources.
	OutsiderID = "user-outsider"
)

// Standard resource identifiers used across authorization tests.
const (
	// OrgID is the default organization.
	OrgID = "org-1"

	// AltOrgID is a second organization for cross-tenant isolation tests.
	AltOrgID = "org-2"

	// IndividualCaseID is a case owned by OwnerID with no organization.
	IndividualCaseID = "case-individual"

	// OrgCaseID is a case owned by OwnerID in OrgID, assigned to no one.
	OrgCaseID = "case-org"

	// AssignedCaseID is a case in OrgID assigned to StaffID.
	AssignedCaseID = "case-assigned"

	// PartyID is a party owned by OwnerID.
	PartyID = "party-1"

	// DocumentID is a document whose parent is OrgCaseID.
	DocumentID = "doc-1"

	// OrphanDocumentID is a document with no parent case.
	OrphanDocumentID = "doc-orphan"
)

// Standard identity values used in authentication tests.
const (
	// TestIssuer is the default end-user token issuer.
	TestIssuer = "https://id.relex.test"

	// TestGatewayIssuer is the default gateway token issuer.
	TestGatewayIssuer = "https://gateway.relex.test"

	// TestAudience is the default gateway token audience.
	TestAudience = "https://api.relex.test"
)
