package authz

// actionSet is an immutable set of action names.
type actionSet map[string]struct{}

func newActionSet(actions ...string) actionSet {
	s := make(actionSet, len(actions))
	for _, a := range actions {
		s[a] = struct{}{}
	}
	return s
}

func (s actionSet) contains(action string) bool {
	_, ok := s[action]
	return ok
}

// Policy is the permission table: resource kind → role → allowed actions.
// It is built once at startup, injected into the checkers, and never
// mutated afterwards; Extend returns a new Policy rather than changing
// the receiver. Unknown roles and unknown actions both resolve to false.
type Policy struct {
	table map[ResourceType]map[Role]actionSet
}

// DefaultPolicy returns the compiled-in permission table.
//
// The Staff case set lists every action a staff member may ever perform;
// the case checker additionally gates the mutating subset behind case
// assignment. manage_members appears only for organization
// Administrators and expands to the member-management sub-actions.
func DefaultPolicy() Policy {
	caseActions := []string{
		ActionRead, ActionList, ActionCreate,
		ActionUpdate, ActionDelete, ActionArchive,
		ActionAttachParty, ActionDetachParty, ActionUploadFile,
	}

	return Policy{table: map[ResourceType]map[Role]actionSet{
		ResourceCase: {
			RoleOwner:         newActionSet(caseActions...),
			RoleAdministrator: newActionSet(caseActions...),
			RoleStaff:         newActionSet(caseActions...),
		},
		ResourceOrganization: {
			RoleAdministrator: newActionSet(
				ActionRead, ActionList, ActionUpdate, ActionDelete,
				ActionManageMembers,
			),
			RoleStaff: newActionSet(ActionRead, ActionList),
		},
		ResourceParty: {
			RoleOwner: newActionSet(
				ActionRead, ActionList, ActionUpdate, ActionDelete,
			),
		},
		// Documents carry no policy of their own; their access is always
		// delegated to the parent case.
	}}
}

// Allows reports whether the policy grants the action to the role on the
// resource kind. Missing resource kinds, roles, and actions all report
// false; there is no wildcard.
func (p Policy) Allows(rt ResourceType, role Role, action string) bool {
	roles, ok := p.table[rt]
	if !ok {
		return false
	}
	actions, ok := roles[role]
	if !ok {
		return false
	}
	return actions.contains(action)
}

// Overrides is the file-loadable policy extension shape: resource kind →
// role → extra actions. Overrides only ever add actions; the compiled-in
// grants can never be revoked through configuration.
type Overrides map[string]map[string][]string

// Extend returns a new Policy with the override actions added. The
// receiver is not modified.
func (p Policy) Extend(ov Overrides) Policy {
	next := Policy{table: make(map[ResourceType]map[Role]actionSet, len(p.table))}
	for rt, roles := range p.table {
		next.table[rt] = make(map[Role]actionSet, len(roles))
		for role, actions := range roles {
			copied := make(actionSet, len(actions))
			for a := range actions {
				copied[a] = struct{}{}
			}
			next.table[rt][role] = copied
		}
	}

	for rt, roles := range ov {
		resourceType, err := ParseResourceType(rt)
		if err != nil {
			continue // Unknown resource kinds in overrides are ignored.
		}
		if next.table[resourceType] == nil {
			next.table[resourceType] = make(map[Role]actionSet)
		}
		for role, actions := range roles {
			set := next.table[resourceType][Role(role)]
			if set == nil {
				set = make(actionSet, len(actions))
				next.table[resourceType][Role(role)] = set
			}
			for _, a := range actions {
				set[a] = struct{}{}
			}
		}
	}
	return next
}

// mutatingCaseActions is the subset of case actions a Staff member may
// only perform on cases they are assigned to. read, list, and create are
// exempt from the assignment gate.
var mutatingCaseActions = newActionSet(
	ActionUpdate, ActionDelete, ActionArchive,
	ActionAttachParty, ActionDetachParty, ActionUploadFile,
)

// memberManagementActions are the sub-actions covered by the coarse
// manage_members organization grant.
var memberManagementActions = newActionSet(
	"addMember", "setMemberRole", "removeMember", "listMembers",
)
