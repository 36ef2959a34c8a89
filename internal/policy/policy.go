// Package policy holds the role capability table: which complaint slice each
// role sees and which mutations it may perform. All checks are pure functions
// over the authenticated actor, evaluated once per request by the services.
package policy

import (
	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/repository"
)

// VisibilityScope returns the complaint slice visible to the actor.
// orgName is the actor's organization name, required for matching guest
// complaints by their denormalized organization text.
func VisibilityScope(actor *domain.User, orgName string) repository.ComplaintScope {
	switch actor.Role {
	case domain.RoleSystemAdmin:
		return repository.ComplaintScope{All: true}
	case domain.RoleConsumer:
		return repository.ComplaintScope{ConsumerID: &actor.ID}
	case domain.RoleSupportPerson:
		return repository.ComplaintScope{AssignedSupportID: &actor.ID}
	case domain.RoleHelpdeskAgent:
		return repository.ComplaintScope{
			AssignedAgentID:    &actor.ID,
			OrganizationID:     actor.OrganizationID,
			OrganizationName:   orgName,
			OpenInOrganization: true,
		}
	case domain.RoleHelpdeskManager, domain.RoleOrganizationAdmin:
		return repository.ComplaintScope{
			OrganizationID:   actor.OrganizationID,
			OrganizationName: orgName,
		}
	}
	// Unknown role sees nothing.
	return repository.ComplaintScope{}
}

// CanUpdateComplaint reports whether the actor may mutate the complaint's
// status or assignment. complaintOrgID is the resolved organization of the
// complaint (nil when unresolvable, e.g. unmatched guest text).
func CanUpdateComplaint(actor *domain.User, complaint *domain.Complaint, complaintOrgID *int64) bool {
	switch actor.Role {
	case domain.RoleSystemAdmin:
		return true
	case domain.RoleHelpdeskManager, domain.RoleOrganizationAdmin:
		return complaintOrgID != nil && actor.InOrganization(*complaintOrgID)
	case domain.RoleHelpdeskAgent:
		return complaint.AssignedAgentID != nil && *complaint.AssignedAgentID == actor.ID
	case domain.RoleSupportPerson:
		return complaint.AssignedSupportID != nil && *complaint.AssignedSupportID == actor.ID
	}
	return false
}

// CanViewComplaint reports whether the actor may read the complaint.
func CanViewComplaint(actor *domain.User, complaint *domain.Complaint, complaintOrgID *int64) bool {
	switch actor.Role {
	case domain.RoleSystemAdmin:
		return true
	case domain.RoleConsumer:
		return complaint.ConsumerID != nil && *complaint.ConsumerID == actor.ID
	case domain.RoleHelpdeskAgent:
		if complaint.AssignedAgentID != nil && *complaint.AssignedAgentID == actor.ID {
			return true
		}
		return complaint.Status == domain.ComplaintStatusOpen &&
			complaintOrgID != nil && actor.InOrganization(*complaintOrgID)
	case domain.RoleSupportPerson:
		return complaint.AssignedSupportID != nil && *complaint.AssignedSupportID == actor.ID
	case domain.RoleHelpdeskManager, domain.RoleOrganizationAdmin:
		return complaintOrgID != nil && actor.InOrganization(*complaintOrgID)
	}
	return false
}

// ManageableRoles returns the roles the actor may assign when creating or
// editing users. An empty slice means no user management capability.
func ManageableRoles(actor *domain.User) []domain.Role {
	switch actor.Role {
	case domain.RoleSystemAdmin:
		return []domain.Role{
			domain.RoleConsumer, domain.RoleHelpdeskAgent, domain.RoleSupportPerson,
			domain.RoleHelpdeskManager, domain.RoleOrganizationAdmin, domain.RoleSystemAdmin,
		}
	case domain.RoleOrganizationAdmin:
		return []domain.Role{
			domain.RoleConsumer, domain.RoleHelpdeskAgent, domain.RoleSupportPerson,
			domain.RoleHelpdeskManager,
		}
	case domain.RoleHelpdeskManager:
		return []domain.Role{
			domain.RoleConsumer, domain.RoleHelpdeskAgent, domain.RoleSupportPerson,
		}
	}
	return nil
}

// CanManageUser reports whether the actor may edit, deactivate or delete the
// target user. Managers and org admins are confined to their own organization
// and may never touch peer-privilege or higher roles.
func CanManageUser(actor, target *domain.User) bool {
	switch actor.Role {
	case domain.RoleSystemAdmin:
		return true
	case domain.RoleOrganizationAdmin:
		if target.OrganizationID == nil || !actor.InOrganization(*target.OrganizationID) {
			return false
		}
		return target.Role != domain.RoleSystemAdmin && target.Role != domain.RoleOrganizationAdmin
	case domain.RoleHelpdeskManager:
		if target.OrganizationID == nil || !actor.InOrganization(*target.OrganizationID) {
			return false
		}
		return target.Role != domain.RoleSystemAdmin && target.Role != domain.RoleHelpdeskManager &&
			target.Role != domain.RoleOrganizationAdmin
	}
	return false
}

// CanDeleteUser adds the deletion-specific rules on top of CanManageUser:
// self-deletion is forbidden for managers and org admins, and system admins
// are never deletable.
func CanDeleteUser(actor, target *domain.User) bool {
	if target.Role == domain.RoleSystemAdmin {
		return false
	}
	if !CanManageUser(actor, target) {
		return false
	}
	if actor.Role != domain.RoleSystemAdmin && actor.ID == target.ID {
		return false
	}
	return true
}

// CanAssign reports whether the actor may manually assign complaints.
func CanAssign(actor *domain.User) bool {
	return actor.Role == domain.RoleHelpdeskManager || actor.Role == domain.RoleHelpdeskAgent
}

// CanAutoAssign reports whether the actor may trigger rule-based assignment.
func CanAutoAssign(actor *domain.User) bool {
	return actor.Role == domain.RoleHelpdeskManager
}

// CanEscalate reports whether the actor may escalate to a manager.
func CanEscalate(actor *domain.User) bool {
	return actor.Role == domain.RoleHelpdeskAgent || actor.Role == domain.RoleSupportPerson
}

// CanReassign reports whether the actor may overwrite existing assignments.
func CanReassign(actor *domain.User) bool {
	return actor.Role == domain.RoleHelpdeskManager
}
