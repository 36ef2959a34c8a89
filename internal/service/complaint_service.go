package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/events"
	"github.com/spec-kit/complaint-portal/internal/policy"
	"github.com/spec-kit/complaint-portal/internal/repository"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util/errorutil"
)

const ticketNumberAttempts = 5

// TrackingCache caches tracking-token to complaint id lookups for the public
// tracking page. Implementations must treat a miss and an outage the same way.
type TrackingCache interface {
	GetComplaintID(ctx context.Context, token string) (int64, bool)
	StoreComplaintID(ctx context.Context, token string, id int64)
}

// ComplaintService coordinates complaint workflows.
type ComplaintService struct {
	complaints repository.ComplaintRepository
	users      repository.UserRepository
	orgs       repository.OrganizationRepository
	history    repository.StatusHistoryRepository
	dispatcher events.Dispatcher
	tracking   TrackingCache
}

// ComplaintDependencies bundles repositories for the complaint service.
// TrackingCache is optional.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	UserRepo      repository.UserRepository
	OrgRepo       repository.OrganizationRepository
	HistoryRepo   repository.StatusHistoryRepository
	Dispatcher    events.Dispatcher
	TrackingCache TrackingCache
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	return &ComplaintService{
		complaints: deps.ComplaintRepo,
		users:      deps.UserRepo,
		orgs:       deps.OrgRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		tracking:   deps.TrackingCache,
	}
}

// ComplaintCreateInput describes complaint creation payload.
type ComplaintCreateInput struct {
	Title       string
	Description string
	Category    string
	Subcategory *string
	Priority    domain.ComplaintPriority
}

// GuestIdentity carries the identity fields a guest submits alongside the
// complaint. All three of Email, ConsumerNumber and Organization are used to
// match a registered consumer account.
type GuestIdentity struct {
	Name           string
	Email          string
	Phone          string
	Organization   string
	ConsumerNumber string
}

// ComplaintUpdateInput describes the fields a consumer may edit while the
// complaint is still open.
type ComplaintUpdateInput struct {
	Title       string
	Description string
	Category    string
	Subcategory *string
	Priority    domain.ComplaintPriority
}

// ComplaintListFilter captures listing parameters on top of the actor scope.
type ComplaintListFilter struct {
	Statuses   []domain.ComplaintStatus
	Priorities []domain.ComplaintPriority
	Category   *string
	Limit      int
	Offset     int
}

// CreateForConsumer files a complaint on the authenticated consumer's behalf.
func (s *ComplaintService) CreateForConsumer(ctx context.Context, consumer *domain.User, input ComplaintCreateInput) (*domain.Complaint, error) {
	if consumer == nil || consumer.Role != domain.RoleConsumer {
		return nil, apperrors.NewForbidden("consumer account required")
	}
	complaint := s.buildComplaint(input)
	complaint.ConsumerID = &consumer.ID

	if err := s.persistNew(ctx, complaint, consumer.ID); err != nil {
		return nil, err
	}
	s.publishCreated(ctx, complaint, userActor(consumer), consumer.Email)
	return complaint, nil
}

// CreateForGuest files a complaint through the public channel. The guest's
// email, consumer number and organization must together resolve to an active
// registered consumer; otherwise nothing is stored.
func (s *ComplaintService) CreateForGuest(ctx context.Context, guest GuestIdentity, input ComplaintCreateInput) (*domain.Complaint, error) {
	consumer, err := s.resolveGuestConsumer(ctx, guest)
	if err != nil {
		return nil, err
	}

	complaint := s.buildComplaint(input)
	complaint.ConsumerID = &consumer.ID
	complaint.GuestName = ptrString(guest.Name)
	complaint.GuestEmail = ptrString(guest.Email)
	if guest.Phone != "" {
		complaint.GuestPhone = ptrString(guest.Phone)
	}
	complaint.GuestOrganization = ptrString(guest.Organization)
	token := generateTrackingToken()
	complaint.TrackingToken = &token

	if err := s.persistNew(ctx, complaint, consumer.ID); err != nil {
		return nil, err
	}
	s.publishCreated(ctx, complaint, guestActor(), guest.Email)
	return complaint, nil
}

// OnBehalfIdentity identifies the consumer a staff member files for: either a
// direct consumer id, or email plus account number. The optional contact
// fields update the matched consumer's record.
type OnBehalfIdentity struct {
	ConsumerID      *int64
	ConsumerEmail   string
	ConsumerNumber  string
	ConsumerName    string
	ConsumerPhone   string
	ConsumerAddress string
}

// CreateOnBehalf lets staff file a complaint for a consumer of their own
// organization. The creating agent or support person is assigned to the new
// complaint, which therefore starts working immediately.
func (s *ComplaintService) CreateOnBehalf(ctx context.Context, staff *domain.User, identity OnBehalfIdentity, input ComplaintCreateInput) (*domain.Complaint, error) {
	if staff == nil || !staff.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff account required")
	}
	consumer, err := s.resolveOnBehalfConsumer(ctx, staff, identity)
	if err != nil {
		return nil, err
	}
	s.updateConsumerContact(ctx, consumer, identity)

	complaint := s.buildComplaint(input)
	complaint.ConsumerID = &consumer.ID

	if err := s.persistNew(ctx, complaint, staff.ID); err != nil {
		return nil, err
	}

	if staff.Role == domain.RoleHelpdeskAgent || staff.Role == domain.RoleSupportPerson {
		oldStatus := complaint.Status
		if staff.Role == domain.RoleSupportPerson {
			complaint.AssignedSupportID = &staff.ID
		} else {
			complaint.AssignedAgentID = &staff.ID
		}
		complaint.Status = domain.ComplaintStatusInProgress
		entry := &domain.StatusHistory{
			ComplaintID: complaint.ID,
			OldStatus:   &oldStatus,
			NewStatus:   complaint.Status,
			Notes:       "assigned to " + staff.Name,
			ChangedBy:   staff.ID,
		}
		if err := s.complaints.UpdateWithHistory(ctx, complaint, entry); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publishCreated(ctx, complaint, userActor(staff), consumer.Email)
	return complaint, nil
}

func (s *ComplaintService) resolveOnBehalfConsumer(ctx context.Context, staff *domain.User, identity OnBehalfIdentity) (*domain.User, error) {
	if identity.ConsumerID != nil {
		consumer, err := s.users.GetByID(ctx, *identity.ConsumerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewIdentityNotFound("no matching consumer account", map[string]any{
					"consumer_id": *identity.ConsumerID,
				})
			}
			return nil, apperrors.MapError(err)
		}
		if consumer.Role != domain.RoleConsumer {
			return nil, apperrors.NewValidationError("referenced user is not a consumer", map[string]any{
				"consumer_id": *identity.ConsumerID,
			})
		}
		if staff.Role != domain.RoleSystemAdmin {
			if staff.OrganizationID == nil || consumer.OrganizationID == nil || *consumer.OrganizationID != *staff.OrganizationID {
				return nil, apperrors.NewIdentityNotFound("no matching consumer account", map[string]any{
					"consumer_id": *identity.ConsumerID,
				})
			}
		}
		return consumer, nil
	}

	lookup := repository.ConsumerLookup{
		Email:          identity.ConsumerEmail,
		ConsumerNumber: identity.ConsumerNumber,
		ActiveOnly:     true,
	}
	if staff.Role != domain.RoleSystemAdmin {
		if staff.OrganizationID == nil {
			return nil, apperrors.NewForbidden("staff account has no organization")
		}
		lookup.OrganizationID = staff.OrganizationID
	}
	consumer, err := s.users.FindConsumer(ctx, lookup)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewIdentityNotFound("no matching consumer account", map[string]any{
				"email": identity.ConsumerEmail,
			})
		}
		return nil, apperrors.MapError(err)
	}
	return consumer, nil
}

// updateConsumerContact refreshes the matched consumer's contact details from
// the staff-supplied fields. Best effort; a failed update never blocks the
// complaint.
func (s *ComplaintService) updateConsumerContact(ctx context.Context, consumer *domain.User, identity OnBehalfIdentity) {
	changed := false
	if identity.ConsumerName != "" && identity.ConsumerName != consumer.Name {
		consumer.Name = identity.ConsumerName
		changed = true
	}
	if identity.ConsumerPhone != "" && identity.ConsumerPhone != consumer.Phone {
		consumer.Phone = identity.ConsumerPhone
		changed = true
	}
	if identity.ConsumerAddress != "" && identity.ConsumerAddress != consumer.Address {
		consumer.Address = identity.ConsumerAddress
		changed = true
	}
	if changed {
		_ = s.users.Update(ctx, consumer)
	}
}

// GetForActor fetches a complaint, enforcing role visibility.
func (s *ComplaintService) GetForActor(ctx context.Context, actor *domain.User, id int64) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	orgID, err := s.resolveComplaintOrg(ctx, complaint)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewComplaint(actor, complaint, orgID) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return complaint, nil
}

// ListForActor returns the complaints visible to the actor.
func (s *ComplaintService) ListForActor(ctx context.Context, actor *domain.User, filter ComplaintListFilter) ([]domain.Complaint, error) {
	scope, err := s.scopeForActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	repoFilter := repository.ComplaintFilter{
		Scope:      scope,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Category:   filter.Category,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	list, err := s.complaints.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// TrackByToken resolves a complaint by tracking token or ticket number for
// the unauthenticated tracking page.
func (s *ComplaintService) TrackByToken(ctx context.Context, token string) (*domain.Complaint, []domain.StatusHistory, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, apperrors.NewValidationError("tracking token required", nil)
	}

	var complaint *domain.Complaint
	if s.tracking != nil {
		if id, ok := s.tracking.GetComplaintID(ctx, token); ok {
			if cached, err := s.complaints.GetByID(ctx, id); err == nil {
				complaint = cached
			}
		}
	}
	if complaint == nil {
		found, err := s.complaints.GetByToken(ctx, token)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, apperrors.NewNotFound("complaint", nil)
			}
			return nil, nil, apperrors.MapError(err)
		}
		complaint = found
		if s.tracking != nil {
			s.tracking.StoreComplaintID(ctx, token, complaint.ID)
		}
	}

	entries, err := s.history.ListByComplaint(ctx, complaint.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return complaint, entries, nil
}

// HistoryForActor returns the audit trail of a complaint the actor can see.
func (s *ComplaintService) HistoryForActor(ctx context.Context, actor *domain.User, id int64) ([]domain.StatusHistory, error) {
	if _, err := s.GetForActor(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByComplaint(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// UpdateByConsumer edits complaint details. Only the owning consumer may do
// this, and only while the complaint is still open.
func (s *ComplaintService) UpdateByConsumer(ctx context.Context, consumer *domain.User, id int64, input ComplaintUpdateInput) (*domain.Complaint, error) {
	complaint, err := s.ownedOpenComplaint(ctx, consumer, id)
	if err != nil {
		return nil, err
	}

	complaint.Title = strings.TrimSpace(input.Title)
	complaint.Description = strings.TrimSpace(input.Description)
	complaint.Category = input.Category
	complaint.Subcategory = input.Subcategory
	if input.Priority != "" {
		complaint.Priority = input.Priority
	}
	if err := s.complaints.Update(ctx, complaint); err != nil {
		return nil, apperrors.MapError(err)
	}
	return complaint, nil
}

// DeleteByConsumer removes an open complaint owned by the consumer.
func (s *ComplaintService) DeleteByConsumer(ctx context.Context, consumer *domain.User, id int64) error {
	complaint, err := s.ownedOpenComplaint(ctx, consumer, id)
	if err != nil {
		return err
	}
	if err := s.complaints.Delete(ctx, complaint.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// UpdateStatus transitions the complaint lifecycle. Any move between two
// distinct valid statuses is allowed; the entity row and the audit row commit
// together, and the mandatory notes land in the audit row.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actor *domain.User, id int64, newStatus domain.ComplaintStatus, notes string) (*domain.Complaint, error) {
	if actor == nil || !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff account required")
	}
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, apperrors.NewValidationError("notes required", nil)
	}
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	orgID, err := s.resolveComplaintOrg(ctx, complaint)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdateComplaint(actor, complaint, orgID) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if !isValidTransition(complaint.Status, newStatus) {
		return nil, apperrors.NewInvalidState("invalid status transition", map[string]any{
			"from": complaint.Status,
			"to":   newStatus,
		})
	}

	oldStatus := complaint.Status
	now := time.Now()
	complaint.Status = newStatus
	switch newStatus {
	case domain.ComplaintStatusResolved:
		complaint.ResolvedAt = &now
		if notes != "" {
			complaint.ResolutionNotes = &notes
		}
	case domain.ComplaintStatusClosed:
		complaint.ClosedAt = &now
	}

	entry := &domain.StatusHistory{
		ComplaintID: complaint.ID,
		OldStatus:   &oldStatus,
		NewStatus:   newStatus,
		Notes:       notes,
		ChangedBy:   actor.ID,
	}
	if err := s.complaints.UpdateWithHistory(ctx, complaint, entry); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishStatusChanged(ctx, complaint, userActor(actor), oldStatus, newStatus, notes)
	return complaint, nil
}

// SubmitFeedback records consumer satisfaction on a resolved complaint and
// closes it.
func (s *ComplaintService) SubmitFeedback(ctx context.Context, consumer *domain.User, id int64, rating int, feedback string) (*domain.Complaint, error) {
	if consumer == nil || consumer.Role != domain.RoleConsumer {
		return nil, apperrors.NewForbidden("consumer account required")
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if complaint.ConsumerID == nil || *complaint.ConsumerID != consumer.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if err := s.closeWithFeedback(ctx, complaint, rating, feedback, consumer.ID, userActor(consumer)); err != nil {
		return nil, err
	}
	return complaint, nil
}

// SubmitFeedbackByToken records satisfaction on a resolved complaint looked up
// by tracking token or ticket number, the identifiers a guest holds, and
// closes it.
func (s *ComplaintService) SubmitFeedbackByToken(ctx context.Context, token string, rating int, feedback string) (*domain.Complaint, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewValidationError("tracking token required", nil)
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	complaint, err := s.complaints.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if complaint.ConsumerID == nil {
		return nil, apperrors.NewInvalidState("complaint has no linked consumer", nil)
	}
	if err := s.closeWithFeedback(ctx, complaint, rating, feedback, *complaint.ConsumerID, guestActor()); err != nil {
		return nil, err
	}
	return complaint, nil
}

// closeWithFeedback moves a resolved complaint to closed, storing the rating
// and a resolved→closed audit row.
func (s *ComplaintService) closeWithFeedback(ctx context.Context, complaint *domain.Complaint, rating int, feedback string, changedBy int64, actor events.Actor) error {
	if complaint.Status != domain.ComplaintStatusResolved {
		return apperrors.NewInvalidState("feedback requires a resolved complaint", map[string]any{
			"status": complaint.Status,
		})
	}

	oldStatus := complaint.Status
	now := time.Now()
	complaint.Status = domain.ComplaintStatusClosed
	complaint.ClosedAt = &now
	complaint.SatisfactionRating = &rating
	if feedback != "" {
		complaint.ConsumerFeedback = &feedback
	}

	entry := &domain.StatusHistory{
		ComplaintID: complaint.ID,
		OldStatus:   &oldStatus,
		NewStatus:   complaint.Status,
		Notes:       "feedback submitted",
		ChangedBy:   changedBy,
	}
	if err := s.complaints.UpdateWithHistory(ctx, complaint, entry); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:         events.EventComplaintFeedback,
		ComplaintID:  complaint.ID,
		TicketNumber: complaint.TicketNumber,
		Actor:        actor,
		Payload: events.ComplaintFeedbackPayload{
			Rating: rating,
		},
	})
	return nil
}

func (s *ComplaintService) buildComplaint(input ComplaintCreateInput) *domain.Complaint {
	complaint := &domain.Complaint{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Subcategory: input.Subcategory,
		Priority:    input.Priority,
		Status:      domain.ComplaintStatusOpen,
	}
	if complaint.Priority == "" {
		complaint.Priority = domain.ComplaintPriorityMedium
	}
	return complaint
}

// persistNew inserts the complaint with its opening history row, retrying
// ticket number collisions.
func (s *ComplaintService) persistNew(ctx context.Context, complaint *domain.Complaint, changedBy int64) error {
	for attempt := 0; attempt < ticketNumberAttempts; attempt++ {
		complaint.TicketNumber = generateTicketNumber()
		entry := &domain.StatusHistory{
			NewStatus: complaint.Status,
			Notes:     "complaint submitted",
			ChangedBy: changedBy,
		}
		err := s.complaints.Create(ctx, complaint, entry)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return apperrors.MapError(err)
		}
	}
	return apperrors.NewInternalError(errors.New("could not allocate unique ticket number"))
}

func (s *ComplaintService) resolveGuestConsumer(ctx context.Context, guest GuestIdentity) (*domain.User, error) {
	org, err := s.orgs.MatchByName(ctx, guest.Organization)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewIdentityNotFound("organization not recognized", map[string]any{
				"organization": guest.Organization,
			})
		}
		return nil, apperrors.MapError(err)
	}
	consumer, err := s.users.FindConsumer(ctx, repository.ConsumerLookup{
		Email:          guest.Email,
		ConsumerNumber: guest.ConsumerNumber,
		OrganizationID: &org.ID,
		ActiveOnly:     true,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewIdentityNotFound("no matching consumer account", map[string]any{
				"email": guest.Email,
			})
		}
		return nil, apperrors.MapError(err)
	}
	return consumer, nil
}

// resolveComplaintOrg finds the organization a complaint belongs to: the
// consumer's organization when linked, otherwise a fuzzy match on the guest
// organization text. Returns nil when unresolvable.
func (s *ComplaintService) resolveComplaintOrg(ctx context.Context, complaint *domain.Complaint) (*int64, error) {
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

func (s *ComplaintService) scopeForActor(ctx context.Context, actor *domain.User) (repository.ComplaintScope, error) {
	if actor == nil {
		return repository.ComplaintScope{}, apperrors.NewUnauthorized("authentication required")
	}
	orgName := ""
	if actor.OrganizationID != nil {
		org, err := s.orgs.GetByID(ctx, *actor.OrganizationID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return repository.ComplaintScope{}, apperrors.MapError(err)
		}
		if org != nil {
			orgName = org.Name
		}
	}
	return policy.VisibilityScope(actor, orgName), nil
}

func (s *ComplaintService) ownedOpenComplaint(ctx context.Context, consumer *domain.User, id int64) (*domain.Complaint, error) {
	if consumer == nil || consumer.Role != domain.RoleConsumer {
		return nil, apperrors.NewForbidden("consumer account required")
	}
	complaint, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("complaint", map[string]any{"complaint_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if complaint.ConsumerID == nil || *complaint.ConsumerID != consumer.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if complaint.Status != domain.ComplaintStatusOpen {
		return nil, apperrors.NewInvalidState("complaint is no longer open", map[string]any{
			"status": complaint.Status,
		})
	}
	return complaint, nil
}

func (s *ComplaintService) publishCreated(ctx context.Context, complaint *domain.Complaint, actor events.Actor, notifyEmail string) {
	payload := events.ComplaintCreatedPayload{
		Title:       complaint.Title,
		Category:    complaint.Category,
		Priority:    complaint.Priority,
		NotifyEmail: complaint.NotificationEmail(notifyEmail),
	}
	if complaint.TrackingToken != nil {
		payload.TrackingToken = *complaint.TrackingToken
	}
	s.publishEvent(ctx, events.Event{
		Type:         events.EventComplaintCreated,
		ComplaintID:  complaint.ID,
		TicketNumber: complaint.TicketNumber,
		Actor:        actor,
		Payload:      payload,
	})
}

func (s *ComplaintService) publishStatusChanged(ctx context.Context, complaint *domain.Complaint, actor events.Actor, oldStatus, newStatus domain.ComplaintStatus, notes string) {
	notifyEmail := ""
	if complaint.ConsumerID != nil {
		if consumer, err := s.users.GetByID(ctx, *complaint.ConsumerID); err == nil {
			notifyEmail = consumer.Email
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:         events.EventComplaintStatusChanged,
		ComplaintID:  complaint.ID,
		TicketNumber: complaint.TicketNumber,
		Actor:        actor,
		Payload: events.ComplaintStatusChangedPayload{
			OldStatus:   oldStatus,
			NewStatus:   newStatus,
			Notes:       notes,
			NotifyEmail: complaint.NotificationEmail(notifyEmail),
		},
	})
}

func (s *ComplaintService) publishEvent(ctx context.Context, event events.Event) {
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

func userActor(user *domain.User) events.Actor {
	return events.Actor{UserID: &user.ID, Role: user.Role}
}

func guestActor() events.Actor {
	return events.Actor{Guest: true}
}

func generateTicketNumber() string {
	raw := uuid.New()
	n := binary.BigEndian.Uint32(raw[0:4]) % 1000000
	return fmt.Sprintf("TKT-%06d", n)
}

func generateTrackingToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func ptrString(v string) *string {
	return &v
}

// isValidTransition accepts any move between distinct statuses. Backward
// moves, including reopening a closed complaint, are staff discretion; only a
// no-op "transition" to the same status is rejected, keeping the audit trail
// free of duplicate rows.
func isValidTransition(current, next domain.ComplaintStatus) bool {
	return current.Valid() && next.Valid() && current != next
}
