package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/events"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util/errorutil"
)

var ticketNumberPattern = regexp.MustCompile(`^TKT-\d{6}$`)

type complaintFixture struct {
	svc        *ComplaintService
	complaints *memComplaintRepo
	users      *memUserRepo
	orgs       *memOrgRepo
	dispatcher events.Dispatcher
	published  *[]events.Event
}

func newComplaintFixture() *complaintFixture {
	complaints := newMemComplaintRepo()
	users := newMemUserRepo()
	complaints.users = users
	orgs := newMemOrgRepo()
	dispatcher := events.NewInMemoryDispatcher()

	published := &[]events.Event{}
	for _, eventType := range []events.EventType{
		events.EventComplaintCreated,
		events.EventComplaintStatusChanged,
		events.EventComplaintAssigned,
		events.EventComplaintFeedback,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			*published = append(*published, event)
			return nil
		})
	}

	svc := NewComplaintService(ComplaintDependencies{
		ComplaintRepo: complaints,
		UserRepo:      users,
		OrgRepo:       orgs,
		HistoryRepo:   &memHistoryRepo{complaints: complaints},
		Dispatcher:    dispatcher,
	})
	return &complaintFixture{
		svc:        svc,
		complaints: complaints,
		users:      users,
		orgs:       orgs,
		dispatcher: dispatcher,
		published:  published,
	}
}

func (f *complaintFixture) seedOrg(id int64, name string) *domain.Organization {
	return f.orgs.add(domain.Organization{
		ID:                 id,
		OrganizationNumber: "ORG-" + name,
		Name:               name,
		Status:             domain.OrganizationStatusActive,
	})
}

func (f *complaintFixture) seedConsumer(id int64, email, consumerNumber string, orgID int64) *domain.User {
	return f.users.add(domain.User{
		ID:             id,
		Name:           "Consumer " + email,
		Email:          email,
		PasswordHash:   "hash",
		Role:           domain.RoleConsumer,
		OrganizationID: &orgID,
		ConsumerNumber: &consumerNumber,
		IsActive:       true,
	})
}

func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestCreateForConsumer(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)

	complaint, err := f.svc.CreateForConsumer(context.Background(), consumer, ComplaintCreateInput{
		Title:       "Broken router",
		Description: "No connectivity since Monday",
		Category:    "technical",
		Priority:    domain.ComplaintPriorityHigh,
	})
	require.NoError(t, err)

	assert.Regexp(t, ticketNumberPattern, complaint.TicketNumber)
	assert.Equal(t, domain.ComplaintStatusOpen, complaint.Status)
	require.NotNil(t, complaint.ConsumerID)
	assert.Equal(t, consumer.ID, *complaint.ConsumerID)
	assert.Nil(t, complaint.TrackingToken)

	history := f.complaints.historyFor(complaint.ID)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].OldStatus)
	assert.Equal(t, domain.ComplaintStatusOpen, history[0].NewStatus)
	assert.Equal(t, "complaint submitted", history[0].Notes)
	assert.Equal(t, consumer.ID, history[0].ChangedBy)

	require.Len(t, *f.published, 1)
	assert.Equal(t, events.EventComplaintCreated, (*f.published)[0].Type)
}

func TestCreateForConsumerRejectsStaff(t *testing.T) {
	f := newComplaintFixture()
	agentOrg := int64(1)
	agent := f.users.add(domain.User{ID: 2, Role: domain.RoleHelpdeskAgent, OrganizationID: &agentOrg, IsActive: true})

	_, err := f.svc.CreateForConsumer(context.Background(), agent, ComplaintCreateInput{
		Title: "x", Description: "y", Category: "other",
	})
	requireDomainCode(t, err, "FORBIDDEN")
}

func TestCreateForConsumerDefaultsPriority(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)

	complaint, err := f.svc.CreateForConsumer(context.Background(), consumer, ComplaintCreateInput{
		Title:       "Late invoice",
		Description: "Invoice arrived after due date",
		Category:    "billing",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintPriorityMedium, complaint.Priority)
}

func TestCreateForGuestResolvesIdentity(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)

	complaint, err := f.svc.CreateForGuest(context.Background(), GuestIdentity{
		Name:           "Jane Doe",
		Email:          "jane@example.com",
		Organization:   "Acme Corporation",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{
		Title:       "Wrong billing amount",
		Description: "Charged twice for the same month",
		Category:    "billing",
		Priority:    domain.ComplaintPriorityMedium,
	})
	require.NoError(t, err)

	require.NotNil(t, complaint.ConsumerID)
	assert.Equal(t, consumer.ID, *complaint.ConsumerID)
	require.NotNil(t, complaint.TrackingToken)
	assert.Len(t, *complaint.TrackingToken, 32)
	require.NotNil(t, complaint.GuestEmail)
	assert.Equal(t, "jane@example.com", *complaint.GuestEmail)
	require.NotNil(t, complaint.GuestOrganization)
	assert.Equal(t, "Acme Corporation", *complaint.GuestOrganization)
}

func TestCreateForGuestUnknownOrganization(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedConsumer(10, "jane@example.com", "C-100", 1)

	_, err := f.svc.CreateForGuest(context.Background(), GuestIdentity{
		Name:           "Jane Doe",
		Email:          "jane@example.com",
		Organization:   "Globex",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	requireDomainCode(t, err, "IDENTITY_NOT_FOUND")
	assert.Empty(t, f.complaints.complaints)
}

func TestCreateForGuestUnmatchedConsumer(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedConsumer(10, "jane@example.com", "C-100", 1)

	_, err := f.svc.CreateForGuest(context.Background(), GuestIdentity{
		Name:           "Jane Doe",
		Email:          "jane@example.com",
		Organization:   "Acme",
		ConsumerNumber: "C-999",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	requireDomainCode(t, err, "IDENTITY_NOT_FOUND")
	assert.Empty(t, f.complaints.complaints)
}

func TestCreateForGuestInactiveConsumer(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	consumer.IsActive = false
	require.NoError(t, f.users.Update(context.Background(), consumer))

	_, err := f.svc.CreateForGuest(context.Background(), GuestIdentity{
		Email:          "jane@example.com",
		Organization:   "Acme",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	requireDomainCode(t, err, "IDENTITY_NOT_FOUND")
}

func TestCreateOnBehalfScopedToStaffOrganization(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedOrg(2, "Globex")
	f.seedConsumer(10, "jane@example.com", "C-100", 1)
	otherOrg := int64(2)
	agent := f.users.add(domain.User{ID: 20, Name: "Agent", Role: domain.RoleHelpdeskAgent, OrganizationID: &otherOrg, IsActive: true})

	_, err := f.svc.CreateOnBehalf(context.Background(), agent, OnBehalfIdentity{
		ConsumerEmail:  "jane@example.com",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	requireDomainCode(t, err, "IDENTITY_NOT_FOUND")
}

func TestCreateOnBehalfSelfAssignsAgent(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	sameOrg := int64(1)
	agent := f.users.add(domain.User{ID: 20, Name: "Agent", Role: domain.RoleHelpdeskAgent, OrganizationID: &sameOrg, IsActive: true})

	complaint, err := f.svc.CreateOnBehalf(context.Background(), agent, OnBehalfIdentity{
		ConsumerEmail:  "jane@example.com",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{Title: "Phone line dead", Description: "No dial tone", Category: "technical"})
	require.NoError(t, err)
	require.NotNil(t, complaint.ConsumerID)
	assert.Equal(t, consumer.ID, *complaint.ConsumerID)

	// The creating agent picks up the complaint immediately.
	require.NotNil(t, complaint.AssignedAgentID)
	assert.Equal(t, agent.ID, *complaint.AssignedAgentID)
	assert.Equal(t, domain.ComplaintStatusInProgress, complaint.Status)

	history := f.complaints.historyFor(complaint.ID)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].OldStatus)
	assert.Equal(t, domain.ComplaintStatusOpen, history[0].NewStatus)
	assert.Equal(t, agent.ID, history[0].ChangedBy)
	require.NotNil(t, history[1].OldStatus)
	assert.Equal(t, domain.ComplaintStatusOpen, *history[1].OldStatus)
	assert.Equal(t, domain.ComplaintStatusInProgress, history[1].NewStatus)
}

func TestCreateOnBehalfSelfAssignsSupport(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedConsumer(10, "jane@example.com", "C-100", 1)
	sameOrg := int64(1)
	support := f.users.add(domain.User{ID: 21, Name: "Support", Role: domain.RoleSupportPerson, OrganizationID: &sameOrg, IsActive: true})

	complaint, err := f.svc.CreateOnBehalf(context.Background(), support, OnBehalfIdentity{
		ConsumerEmail:  "jane@example.com",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "technical"})
	require.NoError(t, err)
	require.NotNil(t, complaint.AssignedSupportID)
	assert.Equal(t, support.ID, *complaint.AssignedSupportID)
	assert.Nil(t, complaint.AssignedAgentID)
	assert.Equal(t, domain.ComplaintStatusInProgress, complaint.Status)
}

func TestCreateOnBehalfByManagerStaysOpen(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedConsumer(10, "jane@example.com", "C-100", 1)
	sameOrg := int64(1)
	manager := f.users.add(domain.User{ID: 30, Name: "Manager", Role: domain.RoleHelpdeskManager, OrganizationID: &sameOrg, IsActive: true})

	complaint, err := f.svc.CreateOnBehalf(context.Background(), manager, OnBehalfIdentity{
		ConsumerEmail:  "jane@example.com",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusOpen, complaint.Status)
	assert.False(t, complaint.HasAssignee())
	require.Len(t, f.complaints.historyFor(complaint.ID), 1)
}

func TestCreateOnBehalfByConsumerID(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	sameOrg := int64(1)
	manager := f.users.add(domain.User{ID: 30, Name: "Manager", Role: domain.RoleHelpdeskManager, OrganizationID: &sameOrg, IsActive: true})

	complaint, err := f.svc.CreateOnBehalf(context.Background(), manager, OnBehalfIdentity{
		ConsumerID: &consumer.ID,
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	require.NoError(t, err)
	require.NotNil(t, complaint.ConsumerID)
	assert.Equal(t, consumer.ID, *complaint.ConsumerID)

	missing := int64(999)
	_, err = f.svc.CreateOnBehalf(context.Background(), manager, OnBehalfIdentity{
		ConsumerID: &missing,
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	requireDomainCode(t, err, "IDENTITY_NOT_FOUND")

	_, err = f.svc.CreateOnBehalf(context.Background(), manager, OnBehalfIdentity{
		ConsumerID: &manager.ID,
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	requireDomainCode(t, err, "VALIDATION_FAILED")
}

func TestCreateOnBehalfUpdatesConsumerContact(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	sameOrg := int64(1)
	manager := f.users.add(domain.User{ID: 30, Name: "Manager", Role: domain.RoleHelpdeskManager, OrganizationID: &sameOrg, IsActive: true})

	_, err := f.svc.CreateOnBehalf(context.Background(), manager, OnBehalfIdentity{
		ConsumerEmail:   "jane@example.com",
		ConsumerNumber:  "C-100",
		ConsumerName:    "Jane A. Doe",
		ConsumerPhone:   "555-0100",
		ConsumerAddress: "1 Main St",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	require.NoError(t, err)

	stored, err := f.users.GetByID(context.Background(), consumer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane A. Doe", stored.Name)
	assert.Equal(t, "555-0100", stored.Phone)
	assert.Equal(t, "1 Main St", stored.Address)
}

func TestUpdateStatusTransitions(t *testing.T) {
	cases := []struct {
		name string
		from domain.ComplaintStatus
		to   domain.ComplaintStatus
		ok   bool
	}{
		{"open to in_progress", domain.ComplaintStatusOpen, domain.ComplaintStatusInProgress, true},
		{"open to resolved", domain.ComplaintStatusOpen, domain.ComplaintStatusResolved, true},
		{"in_progress to open", domain.ComplaintStatusInProgress, domain.ComplaintStatusOpen, true},
		{"resolved to in_progress", domain.ComplaintStatusResolved, domain.ComplaintStatusInProgress, true},
		{"resolved to closed", domain.ComplaintStatusResolved, domain.ComplaintStatusClosed, true},
		{"closed reopened", domain.ComplaintStatusClosed, domain.ComplaintStatusOpen, true},
		{"resolved back to open", domain.ComplaintStatusResolved, domain.ComplaintStatusOpen, true},
		{"same status rejected", domain.ComplaintStatusOpen, domain.ComplaintStatusOpen, false},
		{"same terminal status rejected", domain.ComplaintStatusClosed, domain.ComplaintStatusClosed, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newComplaintFixture()
			f.seedOrg(1, "Acme")
			consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)
			orgID := int64(1)
			manager := f.users.add(domain.User{ID: 30, Name: "Manager", Role: domain.RoleHelpdeskManager, OrganizationID: &orgID, IsActive: true})

			complaint, err := f.svc.CreateForConsumer(context.Background(), consumer, ComplaintCreateInput{
				Title: "x", Description: "y", Category: "other",
			})
			require.NoError(t, err)
			complaint.Status = tc.from
			require.NoError(t, f.complaints.Update(context.Background(), complaint))

			updated, err := f.svc.UpdateStatus(context.Background(), manager, complaint.ID, tc.to, "status reviewed")
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.to, updated.Status)
			} else {
				requireDomainCode(t, err, "INVALID_STATE")
			}
		})
	}
}

func TestUpdateStatusRequiresNotes(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	orgID := int64(1)
	manager := f.users.add(domain.User{ID: 30, Name: "Manager", Role: domain.RoleHelpdeskManager, OrganizationID: &orgID, IsActive: true})

	complaint, err := f.svc.CreateForConsumer(context.Background(), consumer, ComplaintCreateInput{
		Title: "x", Description: "y", Category: "other",
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), manager, complaint.ID, domain.ComplaintStatusInProgress, "   ")
	requireDomainCode(t, err, "VALIDATION_FAILED")
}

func TestUpdateStatusResolvedSetsResolutionFields(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	orgID := int64(1)
	manager := f.users.add(domain.User{ID: 30, Name: "Manager", Role: domain.RoleHelpdeskManager, OrganizationID: &orgID, IsActive: true})

	complaint, err := f.svc.CreateForConsumer(context.Background(), consumer, ComplaintCreateInput{
		Title: "x", Description: "y", Category: "other",
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(context.Background(), manager, complaint.ID, domain.ComplaintStatusResolved, "replaced the unit")
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)
	require.NotNil(t, updated.ResolutionNotes)
	assert.Equal(t, "replaced the unit", *updated.ResolutionNotes)

	history := f.complaints.historyFor(complaint.ID)
	require.Len(t, history, 2)
	require.NotNil(t, history[1].OldStatus)
	assert.Equal(t, domain.ComplaintStatusOpen, *history[1].OldStatus)
	assert.Equal(t, domain.ComplaintStatusResolved, history[1].NewStatus)
	assert.Equal(t, manager.ID, history[1].ChangedBy)
}

func TestUpdateStatusForeignManagerDenied(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedOrg(2, "Globex")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	otherOrg := int64(2)
	manager := f.users.add(domain.User{ID: 30, Role: domain.RoleHelpdeskManager, OrganizationID: &otherOrg, IsActive: true})

	complaint, err := f.svc.CreateForConsumer(context.Background(), consumer, ComplaintCreateInput{
		Title: "x", Description: "y", Category: "other",
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), manager, complaint.ID, domain.ComplaintStatusInProgress, "picking this up")
	requireDomainCode(t, err, "FORBIDDEN")
}

func TestSubmitFeedbackClosesResolvedComplaint(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)

	complaint, err := f.svc.CreateForConsumer(context.Background(), consumer, ComplaintCreateInput{
		Title: "x", Description: "y", Category: "other",
	})
	require.NoError(t, err)
	complaint.Status = domain.ComplaintStatusResolved
	require.NoError(t, f.complaints.Update(context.Background(), complaint))

	closed, err := f.svc.SubmitFeedback(context.Background(), consumer, complaint.ID, 4, "quick turnaround")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	require.NotNil(t, closed.SatisfactionRating)
	assert.Equal(t, 4, *closed.SatisfactionRating)
	require.NotNil(t, closed.ConsumerFeedback)
	assert.Equal(t, "quick turnaround", *closed.ConsumerFeedback)

	history := f.complaints.historyFor(complaint.ID)
	require.Len(t, history, 2)
	assert.Equal(t, "feedback submitted", history[1].Notes)
}

func TestSubmitFeedbackRequiresResolved(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)

	complaint, err := f.svc.CreateForConsumer(context.Background(), consumer, ComplaintCreateInput{
		Title: "x", Description: "y", Category: "other",
	})
	require.NoError(t, err)

	_, err = f.svc.SubmitFeedback(context.Background(), consumer, complaint.ID, 3, "")
	requireDomainCode(t, err, "INVALID_STATE")
}

func TestSubmitFeedbackRatingBounds(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)

	for _, rating := range []int{0, 6, -1} {
		_, err := f.svc.SubmitFeedback(context.Background(), consumer, 1, rating, "")
		requireDomainCode(t, err, "VALIDATION_FAILED")
	}
}

func TestSubmitFeedbackOtherConsumerDenied(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	owner := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	intruder := f.seedConsumer(11, "john@example.com", "C-101", 1)

	complaint, err := f.svc.CreateForConsumer(context.Background(), owner, ComplaintCreateInput{
		Title: "x", Description: "y", Category: "other",
	})
	require.NoError(t, err)
	complaint.Status = domain.ComplaintStatusResolved
	require.NoError(t, f.complaints.Update(context.Background(), complaint))

	_, err = f.svc.SubmitFeedback(context.Background(), intruder, complaint.ID, 5, "")
	requireDomainCode(t, err, "FORBIDDEN")
}

func TestSubmitFeedbackByTokenClosesResolvedComplaint(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)

	complaint, err := f.svc.CreateForGuest(context.Background(), GuestIdentity{
		Email:          "jane@example.com",
		Organization:   "Acme",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	require.NoError(t, err)
	complaint.Status = domain.ComplaintStatusResolved
	require.NoError(t, f.complaints.Update(context.Background(), complaint))

	closed, err := f.svc.SubmitFeedbackByToken(context.Background(), *complaint.TrackingToken, 5, "fixed fast")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusClosed, closed.Status)
	require.NotNil(t, closed.SatisfactionRating)
	assert.Equal(t, 5, *closed.SatisfactionRating)
	require.NotNil(t, closed.ConsumerFeedback)
	assert.Equal(t, "fixed fast", *closed.ConsumerFeedback)

	history := f.complaints.historyFor(complaint.ID)
	last := history[len(history)-1]
	require.NotNil(t, last.OldStatus)
	assert.Equal(t, domain.ComplaintStatusResolved, *last.OldStatus)
	assert.Equal(t, domain.ComplaintStatusClosed, last.NewStatus)
	assert.Equal(t, consumer.ID, last.ChangedBy)
}

func TestSubmitFeedbackByTicketNumber(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedConsumer(10, "jane@example.com", "C-100", 1)

	complaint, err := f.svc.CreateForGuest(context.Background(), GuestIdentity{
		Email:          "jane@example.com",
		Organization:   "Acme",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	require.NoError(t, err)
	complaint.Status = domain.ComplaintStatusResolved
	require.NoError(t, f.complaints.Update(context.Background(), complaint))

	closed, err := f.svc.SubmitFeedbackByToken(context.Background(), complaint.TicketNumber, 3, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ComplaintStatusClosed, closed.Status)
}

func TestSubmitFeedbackByTokenRequiresResolved(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedConsumer(10, "jane@example.com", "C-100", 1)

	complaint, err := f.svc.CreateForGuest(context.Background(), GuestIdentity{
		Email:          "jane@example.com",
		Organization:   "Acme",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	require.NoError(t, err)

	_, err = f.svc.SubmitFeedbackByToken(context.Background(), *complaint.TrackingToken, 4, "")
	requireDomainCode(t, err, "INVALID_STATE")
}

func TestSubmitFeedbackByTokenErrors(t *testing.T) {
	f := newComplaintFixture()

	_, err := f.svc.SubmitFeedbackByToken(context.Background(), "unknown-token", 4, "")
	requireDomainCode(t, err, "NOT_FOUND")

	_, err = f.svc.SubmitFeedbackByToken(context.Background(), "  ", 4, "")
	requireDomainCode(t, err, "VALIDATION_FAILED")

	_, err = f.svc.SubmitFeedbackByToken(context.Background(), "token", 9, "")
	requireDomainCode(t, err, "VALIDATION_FAILED")
}

func TestUpdateByConsumerOpenOnly(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)

	complaint, err := f.svc.CreateForConsumer(context.Background(), consumer, ComplaintCreateInput{
		Title: "Original", Description: "Original description", Category: "other",
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateByConsumer(context.Background(), consumer, complaint.ID, ComplaintUpdateInput{
		Title:       "Amended",
		Description: "Amended description",
		Category:    "billing",
		Priority:    domain.ComplaintPriorityHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, "Amended", updated.Title)
	assert.Equal(t, domain.ComplaintPriorityHigh, updated.Priority)

	updated.Status = domain.ComplaintStatusInProgress
	require.NoError(t, f.complaints.Update(context.Background(), updated))

	_, err = f.svc.UpdateByConsumer(context.Background(), consumer, complaint.ID, ComplaintUpdateInput{
		Title: "Too late", Description: "d", Category: "other",
	})
	requireDomainCode(t, err, "INVALID_STATE")
}

func TestDeleteByConsumer(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	owner := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	intruder := f.seedConsumer(11, "john@example.com", "C-101", 1)

	complaint, err := f.svc.CreateForConsumer(context.Background(), owner, ComplaintCreateInput{
		Title: "x", Description: "y", Category: "other",
	})
	require.NoError(t, err)

	err = f.svc.DeleteByConsumer(context.Background(), intruder, complaint.ID)
	requireDomainCode(t, err, "FORBIDDEN")

	require.NoError(t, f.svc.DeleteByConsumer(context.Background(), owner, complaint.ID))
	_, err = f.svc.GetForActor(context.Background(), owner, complaint.ID)
	requireDomainCode(t, err, "NOT_FOUND")
}

func TestTrackByToken(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedConsumer(10, "jane@example.com", "C-100", 1)

	complaint, err := f.svc.CreateForGuest(context.Background(), GuestIdentity{
		Email:          "jane@example.com",
		Organization:   "Acme",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	require.NoError(t, err)

	byToken, history, err := f.svc.TrackByToken(context.Background(), *complaint.TrackingToken)
	require.NoError(t, err)
	assert.Equal(t, complaint.ID, byToken.ID)
	require.Len(t, history, 1)

	byTicket, _, err := f.svc.TrackByToken(context.Background(), complaint.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, complaint.ID, byTicket.ID)

	_, _, err = f.svc.TrackByToken(context.Background(), "nope")
	requireDomainCode(t, err, "NOT_FOUND")

	_, _, err = f.svc.TrackByToken(context.Background(), "  ")
	requireDomainCode(t, err, "VALIDATION_FAILED")
}

type memTrackingCache struct {
	entries map[string]int64
	hits    int
	stores  int
}

func (c *memTrackingCache) GetComplaintID(_ context.Context, token string) (int64, bool) {
	id, ok := c.entries[token]
	if ok {
		c.hits++
	}
	return id, ok
}

func (c *memTrackingCache) StoreComplaintID(_ context.Context, token string, id int64) {
	c.entries[token] = id
	c.stores++
}

func TestTrackByTokenUsesCache(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedConsumer(10, "jane@example.com", "C-100", 1)

	cache := &memTrackingCache{entries: make(map[string]int64)}
	f.svc.tracking = cache

	complaint, err := f.svc.CreateForGuest(context.Background(), GuestIdentity{
		Email:          "jane@example.com",
		Organization:   "Acme",
		ConsumerNumber: "C-100",
	}, ComplaintCreateInput{Title: "x", Description: "y", Category: "other"})
	require.NoError(t, err)
	token := *complaint.TrackingToken

	_, _, err = f.svc.TrackByToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.stores)
	assert.Equal(t, 0, cache.hits)

	byToken, _, err := f.svc.TrackByToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, complaint.ID, byToken.ID)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, 1, cache.stores)
}

func TestListForActorConsumerScope(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	jane := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	john := f.seedConsumer(11, "john@example.com", "C-101", 1)

	_, err := f.svc.CreateForConsumer(context.Background(), jane, ComplaintCreateInput{Title: "a", Description: "d", Category: "other"})
	require.NoError(t, err)
	_, err = f.svc.CreateForConsumer(context.Background(), john, ComplaintCreateInput{Title: "b", Description: "d", Category: "other"})
	require.NoError(t, err)

	list, err := f.svc.ListForActor(context.Background(), jane, ComplaintListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].Title)
}

func (f *complaintFixture) seedRawComplaint(t *testing.T, complaint *domain.Complaint) *domain.Complaint {
	t.Helper()
	complaint.TicketNumber = generateTicketNumber()
	changedBy := int64(1)
	if complaint.ConsumerID != nil {
		changedBy = *complaint.ConsumerID
	}
	entry := &domain.StatusHistory{NewStatus: complaint.Status, Notes: "complaint submitted", ChangedBy: changedBy}
	require.NoError(t, f.complaints.Create(context.Background(), complaint, entry))
	return complaint
}

func TestListForActorAgentScope(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedOrg(2, "Globex")
	local := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	foreign := f.seedConsumer(11, "john@globex.com", "C-200", 2)
	orgID := int64(1)
	agent := f.users.add(domain.User{ID: 20, Name: "Agent", Role: domain.RoleHelpdeskAgent, OrganizationID: &orgID, IsActive: true})
	otherAgent := int64(21)

	mine := f.seedRawComplaint(t, &domain.Complaint{
		Title: "mine", Description: "d", Category: "other", Priority: domain.ComplaintPriorityLow,
		Status: domain.ComplaintStatusInProgress, ConsumerID: &local.ID, AssignedAgentID: &agent.ID,
	})
	openLocal := f.seedRawComplaint(t, &domain.Complaint{
		Title: "open local", Description: "d", Category: "other", Priority: domain.ComplaintPriorityLow,
		Status: domain.ComplaintStatusOpen, ConsumerID: &local.ID,
	})
	// Claimed by a colleague, no longer in the agent's view.
	f.seedRawComplaint(t, &domain.Complaint{
		Title: "claimed", Description: "d", Category: "other", Priority: domain.ComplaintPriorityLow,
		Status: domain.ComplaintStatusInProgress, ConsumerID: &local.ID, AssignedAgentID: &otherAgent,
	})
	f.seedRawComplaint(t, &domain.Complaint{
		Title: "open foreign", Description: "d", Category: "other", Priority: domain.ComplaintPriorityLow,
		Status: domain.ComplaintStatusOpen, ConsumerID: &foreign.ID,
	})

	list, err := f.svc.ListForActor(context.Background(), agent, ComplaintListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := map[int64]bool{list[0].ID: true, list[1].ID: true}
	assert.True(t, ids[mine.ID])
	assert.True(t, ids[openLocal.ID])
}

func TestListForActorSupportAssignedOnly(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	local := f.seedConsumer(10, "jane@example.com", "C-100", 1)
	orgID := int64(1)
	support := f.users.add(domain.User{ID: 50, Name: "Support", Role: domain.RoleSupportPerson, OrganizationID: &orgID, IsActive: true})

	assigned := f.seedRawComplaint(t, &domain.Complaint{
		Title: "assigned", Description: "d", Category: "technical", Priority: domain.ComplaintPriorityHigh,
		Status: domain.ComplaintStatusInProgress, ConsumerID: &local.ID, AssignedSupportID: &support.ID,
	})
	f.seedRawComplaint(t, &domain.Complaint{
		Title: "open local", Description: "d", Category: "other", Priority: domain.ComplaintPriorityLow,
		Status: domain.ComplaintStatusOpen, ConsumerID: &local.ID,
	})

	list, err := f.svc.ListForActor(context.Background(), support, ComplaintListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, assigned.ID, list[0].ID)
}

func TestListForActorManagerSeesGuestOrganizationMatch(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	f.seedConsumer(10, "jane@example.com", "C-100", 1)
	orgID := int64(1)
	manager := f.users.add(domain.User{ID: 30, Name: "Manager", Role: domain.RoleHelpdeskManager, OrganizationID: &orgID, IsActive: true})

	guestOrg := "Acme Corporation East"
	guest := f.seedRawComplaint(t, &domain.Complaint{
		Title: "guest", Description: "d", Category: "other", Priority: domain.ComplaintPriorityLow,
		Status: domain.ComplaintStatusOpen, GuestOrganization: &guestOrg,
	})

	list, err := f.svc.ListForActor(context.Background(), manager, ComplaintListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, guest.ID, list[0].ID)
}

func TestTicketNumberRetriesOnCollision(t *testing.T) {
	f := newComplaintFixture()
	f.seedOrg(1, "Acme")
	consumer := f.seedConsumer(10, "jane@example.com", "C-100", 1)

	// Many creates against the same in-memory store; duplicate ticket numbers
	// trigger the unique violation path and must be retried transparently.
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		complaint, err := f.svc.CreateForConsumer(context.Background(), consumer, ComplaintCreateInput{
			Title: "x", Description: "y", Category: "other",
		})
		require.NoError(t, err)
		assert.False(t, seen[complaint.TicketNumber])
		seen[complaint.TicketNumber] = true
	}
}

func TestIsValidTransitionUnknownStatus(t *testing.T) {
	assert.False(t, isValidTransition(domain.ComplaintStatus("bogus"), domain.ComplaintStatusOpen))
	assert.False(t, isValidTransition(domain.ComplaintStatusClosed, domain.ComplaintStatusClosed))
}
