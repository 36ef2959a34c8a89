package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/events"
	"github.com/spec-kit/complaint-portal/internal/policy"
	"github.com/spec-kit/complaint-portal/internal/repository"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util/errorutil"
)

// AssignmentService handles manual and rule-based complaint assignment.
type AssignmentService struct {
	complaints repository.ComplaintRepository
	users      repository.UserRepository
	orgs       repository.OrganizationRepository
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	UserRepo      repository.UserRepository
	OrgRepo       repository.OrganizationRepository
	Dispatcher    events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		complaints: deps.ComplaintRepo,
		users:      deps.UserRepo,
		orgs:       deps.OrgRepo,
		dispatcher: deps.Dispatcher,
	}
}

// AssignmentOutcome reports the result of an assignment attempt. A rule-based
// run that finds no eligible staff is not an error; Assigned is false and
// Reason says why.
type AssignmentOutcome struct {
	Assigned  bool
	Reason    string
	Assignee  *domain.User
	Complaint *domain.Complaint
}

// categoriesRequiringSupport lists complaint categories routed to support
// staff when combined with elevated priority.
var categoriesRequiringSupport = map[string]bool{
	"technical": true,
	"service":   true,
	"product":   true,
}

// AssignmentInput carries the independent agent and support assignments plus
// the mandatory reason note. A nil id clears the corresponding field.
type AssignmentInput struct {
	AgentID   *int64
	SupportID *int64
	Reason    string
}

// Assign manually sets the complaint's agent and support assignments. Both
// fields are written as given, so a complaint may carry an agent, a support
// person, both, or neither.
func (s *AssignmentService) Assign(ctx context.Context, actor *domain.User, complaintID int64, input AssignmentInput) (*AssignmentOutcome, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !policy.CanAssign(actor) {
		return nil, apperrors.NewForbidden("insufficient role for assignment")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, apperrors.NewValidationError("assignment reason required", nil)
	}
	complaint, orgID, err := s.accessibleComplaint(ctx, actor, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.HasAssignee() && !policy.CanReassign(actor) {
		return nil, apperrors.NewConflict("complaint already assigned", map[string]any{
			"complaint_id": complaintID,
		})
	}
	agent, support, err := s.eligibleAssignees(ctx, input, orgID)
	if err != nil {
		return nil, err
	}
	complaint.AssignedAgentID = input.AgentID
	complaint.AssignedSupportID = input.SupportID
	if err := s.commitAssignment(ctx, actor, complaint, input.Reason); err != nil {
		return nil, err
	}
	primary := agent
	if primary == nil {
		primary = support
	}
	s.publishAssigned(ctx, actor, complaint, primary, false)
	return &AssignmentOutcome{Assigned: primary != nil, Assignee: primary, Complaint: complaint}, nil
}

// AutoAssign routes the complaint by category and priority to the least
// loaded eligible staff member of the complaint's organization.
func (s *AssignmentService) AutoAssign(ctx context.Context, actor *domain.User, complaintID int64) (*AssignmentOutcome, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !policy.CanAutoAssign(actor) && actor.Role != domain.RoleSystemAdmin {
		return nil, apperrors.NewForbidden("insufficient role for rule-based assignment")
	}
	complaint, orgID, err := s.accessibleComplaint(ctx, actor, complaintID)
	if err != nil {
		return nil, err
	}
	if orgID == nil {
		return &AssignmentOutcome{Reason: "complaint organization could not be resolved", Complaint: complaint}, nil
	}

	targetRole := routeRole(complaint.Category, complaint.Priority)
	assignee, err := s.leastLoaded(ctx, *orgID, targetRole)
	if err != nil {
		return nil, err
	}
	if assignee == nil {
		return &AssignmentOutcome{Reason: "no active staff available", Complaint: complaint}, nil
	}
	if targetRole == domain.RoleSupportPerson {
		complaint.AssignedSupportID = &assignee.ID
	} else {
		complaint.AssignedAgentID = &assignee.ID
	}
	note := fmt.Sprintf("Auto-assigned to %s based on category %s and priority %s",
		assignee.Name, complaint.Category, complaint.Priority)
	if err := s.commitAssignment(ctx, actor, complaint, note); err != nil {
		return nil, err
	}
	s.publishAssigned(ctx, actor, complaint, assignee, false)
	return &AssignmentOutcome{Assigned: true, Assignee: assignee, Complaint: complaint}, nil
}

// Escalate hands the complaint to the organization's helpdesk manager.
func (s *AssignmentService) Escalate(ctx context.Context, actor *domain.User, complaintID int64, notes string) (*AssignmentOutcome, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !policy.CanEscalate(actor) {
		return nil, apperrors.NewForbidden("insufficient role for escalation")
	}
	complaint, orgID, err := s.accessibleComplaint(ctx, actor, complaintID)
	if err != nil {
		return nil, err
	}
	if orgID == nil {
		return &AssignmentOutcome{Reason: "complaint organization could not be resolved", Complaint: complaint}, nil
	}
	managers, err := s.users.List(ctx, repository.UserFilter{
		Role:           rolePtr(domain.RoleHelpdeskManager),
		OrganizationID: orgID,
		Active:         boolPtr(true),
		Limit:          1,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(managers) == 0 {
		return &AssignmentOutcome{Reason: "no active manager available", Complaint: complaint}, nil
	}
	manager := &managers[0]
	note := "escalated to " + manager.Name
	if notes != "" {
		note += ": " + notes
	}
	complaint.AssignedAgentID = &manager.ID
	if err := s.commitAssignment(ctx, actor, complaint, note); err != nil {
		return nil, err
	}
	s.publishAssigned(ctx, actor, complaint, manager, true)
	return &AssignmentOutcome{Assigned: true, Assignee: manager, Complaint: complaint}, nil
}

// Reassign overwrites both assignment fields unconditionally. Managers only.
// Targets are checked for existence and nothing more.
func (s *AssignmentService) Reassign(ctx context.Context, actor *domain.User, complaintID int64, input AssignmentInput) (*AssignmentOutcome, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !policy.CanReassign(actor) && actor.Role != domain.RoleSystemAdmin {
		return nil, apperrors.NewForbidden("insufficient role for reassignment")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, apperrors.NewValidationError("reassignment reason required", nil)
	}
	complaint, _, err := s.accessibleComplaint(ctx, actor, complaintID)
	if err != nil {
		return nil, err
	}
	agent, err := s.existingUser(ctx, input.AgentID)
	if err != nil {
		return nil, err
	}
	support, err := s.existingUser(ctx, input.SupportID)
	if err != nil {
		return nil, err
	}
	complaint.AssignedAgentID = input.AgentID
	complaint.AssignedSupportID = input.SupportID
	if err := s.commitAssignment(ctx, actor, complaint, input.Reason); err != nil {
		return nil, err
	}
	primary := agent
	if primary == nil {
		primary = support
	}
	s.publishAssigned(ctx, actor, complaint, primary, false)
	return &AssignmentOutcome{Assigned: primary != nil, Assignee: primary, Complaint: complaint}, nil
}

// routeRole picks the staff role a complaint should be routed to: elevated
// priority in a specialist category goes to support staff, everything else to
// helpdesk agents.
func routeRole(category string, priority domain.ComplaintPriority) domain.Role {
	elevated := priority == domain.ComplaintPriorityHigh || priority == domain.ComplaintPriorityUrgent
	if elevated && categoriesRequiringSupport[category] {
		return domain.RoleSupportPerson
	}
	return domain.RoleHelpdeskAgent
}

// leastLoaded returns the active staff member of the role with the fewest
// non-closed assigned complaints, lowest id winning ties. Nil when none exist.
func (s *AssignmentService) leastLoaded(ctx context.Context, orgID int64, role domain.Role) (*domain.User, error) {
	candidates, err := s.users.List(ctx, repository.UserFilter{
		Role:           &role,
		OrganizationID: &orgID,
		Active:         boolPtr(true),
		Limit:          1000,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	type loaded struct {
		user  *domain.User
		count int
	}
	ranked := make([]loaded, 0, len(candidates))
	for i := range candidates {
		count, err := s.complaints.CountAssignedOpen(ctx, candidates[i].ID, role)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		ranked = append(ranked, loaded{user: &candidates[i], count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count < ranked[j].count
		}
		return ranked[i].user.ID < ranked[j].user.ID
	})
	return ranked[0].user, nil
}

func (s *AssignmentService) accessibleComplaint(ctx context.Context, actor *domain.User, complaintID int64) (*domain.Complaint, *int64, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": complaintID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	orgID, err := s.resolveComplaintOrg(ctx, complaint)
	if err != nil {
		return nil, nil, err
	}
	if !policy.CanViewComplaint(actor, complaint, orgID) && !policy.CanUpdateComplaint(actor, complaint, orgID) {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	return complaint, orgID, nil
}

// eligibleAssignees resolves and validates the manual-assignment targets: the
// agent slot takes a helpdesk agent or manager, the support slot a support
// person; both must be active members of the complaint's organization.
func (s *AssignmentService) eligibleAssignees(ctx context.Context, input AssignmentInput, orgID *int64) (agent, support *domain.User, err error) {
	if input.AgentID != nil {
		agent, err = s.eligibleAssignee(ctx, *input.AgentID, orgID, domain.RoleHelpdeskAgent, domain.RoleHelpdeskManager)
		if err != nil {
			return nil, nil, err
		}
	}
	if input.SupportID != nil {
		support, err = s.eligibleAssignee(ctx, *input.SupportID, orgID, domain.RoleSupportPerson)
		if err != nil {
			return nil, nil, err
		}
	}
	return agent, support, nil
}

func (s *AssignmentService) eligibleAssignee(ctx context.Context, assigneeID int64, orgID *int64, roles ...domain.Role) (*domain.User, error) {
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.IsActive {
		return nil, apperrors.NewConflict("assignee is deactivated", map[string]any{"user_id": assigneeID})
	}
	allowed := false
	for _, role := range roles {
		if assignee.Role == role {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.NewValidationError("assignee role does not fit the assignment slot", map[string]any{
			"role": assignee.Role,
		})
	}
	if orgID != nil && !assignee.InOrganization(*orgID) {
		return nil, apperrors.NewForbidden("assignee outside complaint organization")
	}
	return assignee, nil
}

// existingUser resolves an optional user id, checking existence only.
func (s *AssignmentService) existingUser(ctx context.Context, id *int64) (*domain.User, error) {
	if id == nil {
		return nil, nil
	}
	user, err := s.users.GetByID(ctx, *id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": *id})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// commitAssignment persists the complaint's already-mutated assignment fields
// together with an audit row. An open complaint gaining any assignee moves to
// in_progress; when the status does not change, the row still records the
// assignment note with old_status equal to new_status.
func (s *AssignmentService) commitAssignment(ctx context.Context, actor *domain.User, complaint *domain.Complaint, note string) error {
	oldStatus := complaint.Status
	if complaint.Status == domain.ComplaintStatusOpen && complaint.HasAssignee() {
		complaint.Status = domain.ComplaintStatusInProgress
	}
	entry := &domain.StatusHistory{
		ComplaintID: complaint.ID,
		OldStatus:   &oldStatus,
		NewStatus:   complaint.Status,
		Notes:       note,
		ChangedBy:   actor.ID,
	}
	if err := s.complaints.UpdateWithHistory(ctx, complaint, entry); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AssignmentService) publishAssigned(ctx context.Context, actor *domain.User, complaint *domain.Complaint, assignee *domain.User, escalated bool) {
	if assignee == nil {
		return
	}
	s.publishEvent(ctx, events.Event{
		Type:         events.EventComplaintAssigned,
		ComplaintID:  complaint.ID,
		TicketNumber: complaint.TicketNumber,
		Actor:        userActor(actor),
		Payload: events.ComplaintAssignedPayload{
			AssigneeID:    assignee.ID,
			AssigneeRole:  assignee.Role,
			AssigneeEmail: assignee.Email,
			Escalated:     escalated,
		},
	})
}

// resolveComplaintOrg mirrors the complaint service's organization lookup.
func (s *AssignmentService) resolveComplaintOrg(ctx context.Context, complaint *domain.Complaint) (*int64, error) {
	if complaint.ConsumerID != nil {
		consumer, err := s.users.GetByID(ctx, *complaint.ConsumerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, apperrors.MapError(err)
		}
		return consumer.OrganizationID, nil
	}
	if complaint.GuestOrganization != nil {
		org, err := s.orgs.MatchByName(ctx, *complaint.GuestOrganization)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, apperrors.MapError(err)
		}
		return &org.ID, nil
	}
	return nil, nil
}

func (s *AssignmentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func rolePtr(r domain.Role) *domain.Role {
	return &r
}

func boolPtr(v bool) *bool {
	return &v
}
