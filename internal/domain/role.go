package domain

// Role enumerates the closed set of user roles.
type Role string

const (
	RoleConsumer          Role = "consumer"
	RoleHelpdeskAgent     Role = "helpdesk_agent"
	RoleSupportPerson     Role = "support_person"
	RoleHelpdeskManager   Role = "helpdesk_manager"
	RoleOrganizationAdmin Role = "organization_admin"
	RoleSystemAdmin       Role = "system_admin"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleConsumer, RoleHelpdeskAgent, RoleSupportPerson,
		RoleHelpdeskManager, RoleOrganizationAdmin, RoleSystemAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role is any non-consumer role.
func (r Role) IsStaff() bool {
	return r.Valid() && r != RoleConsumer
}

// IsAdmin reports whether the role carries organization or system admin powers.
func (r Role) IsAdmin() bool {
	return r == RoleOrganizationAdmin || r == RoleSystemAdmin
}
