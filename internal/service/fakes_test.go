package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/repository"
)

// In-memory repository fakes. They mimic the pgx repositories closely enough
// for service tests: pgx.ErrNoRows for misses and a 23505 PgError for ticket
// number collisions.

type memComplaintRepo struct {
	complaints map[int64]*domain.Complaint
	history    []domain.StatusHistory
	users      *memUserRepo
	nextID     int64
	nextHistID int64
}

func newMemComplaintRepo() *memComplaintRepo {
	return &memComplaintRepo{complaints: make(map[int64]*domain.Complaint)}
}

func (r *memComplaintRepo) Create(_ context.Context, complaint *domain.Complaint, history *domain.StatusHistory) error {
	for _, existing := range r.complaints {
		if existing.TicketNumber == complaint.TicketNumber {
			return &pgconn.PgError{Code: "23505", ConstraintName: "complaints_ticket_number_key"}
		}
	}
	r.nextID++
	complaint.ID = r.nextID
	complaint.CreatedAt = time.Now()
	complaint.UpdatedAt = complaint.CreatedAt
	clone := *complaint
	r.complaints[complaint.ID] = &clone
	history.ComplaintID = complaint.ID
	r.appendHistory(history)
	return nil
}

func (r *memComplaintRepo) Update(_ context.Context, complaint *domain.Complaint) error {
	if _, ok := r.complaints[complaint.ID]; !ok {
		return pgx.ErrNoRows
	}
	complaint.UpdatedAt = time.Now()
	clone := *complaint
	r.complaints[complaint.ID] = &clone
	return nil
}

func (r *memComplaintRepo) UpdateWithHistory(ctx context.Context, complaint *domain.Complaint, history *domain.StatusHistory) error {
	if err := r.Update(ctx, complaint); err != nil {
		return err
	}
	r.appendHistory(history)
	return nil
}

func (r *memComplaintRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.complaints[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.complaints, id)
	return nil
}

func (r *memComplaintRepo) GetByID(_ context.Context, id int64) (*domain.Complaint, error) {
	complaint, ok := r.complaints[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *complaint
	return &clone, nil
}

func (r *memComplaintRepo) GetByToken(_ context.Context, token string) (*domain.Complaint, error) {
	for _, complaint := range r.complaints {
		if complaint.TicketNumber == token {
			clone := *complaint
			return &clone, nil
		}
		if complaint.TrackingToken != nil && *complaint.TrackingToken == token {
			clone := *complaint
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memComplaintRepo) ListWithFilter(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for _, complaint := range r.complaints {
		if !r.matchesScope(complaint, filter.Scope) {
			continue
		}
		result = append(result, *complaint)
	}
	return result, nil
}

// matchesScope mirrors the SQL scope combinator: exactly one shape applies per
// role, the agent shape optionally widened with open complaints of the
// organization, and an unpopulated scope matches nothing.
func (r *memComplaintRepo) matchesScope(complaint *domain.Complaint, scope repository.ComplaintScope) bool {
	if scope.All {
		return true
	}
	if scope.ConsumerID != nil {
		return complaint.ConsumerID != nil && *complaint.ConsumerID == *scope.ConsumerID
	}
	if scope.AssignedSupportID != nil {
		return complaint.AssignedSupportID != nil && *complaint.AssignedSupportID == *scope.AssignedSupportID
	}
	if scope.AssignedAgentID != nil {
		if complaint.AssignedAgentID != nil && *complaint.AssignedAgentID == *scope.AssignedAgentID {
			return true
		}
		if scope.OpenInOrganization && scope.OrganizationID != nil {
			return complaint.Status == domain.ComplaintStatusOpen &&
				r.inOrganization(complaint, *scope.OrganizationID, scope.OrganizationName)
		}
		return false
	}
	if scope.OrganizationID != nil {
		return r.inOrganization(complaint, *scope.OrganizationID, scope.OrganizationName)
	}
	return false
}

// inOrganization matches the consumer's organization FK, or the denormalized
// guest organization text by case-insensitive substring.
func (r *memComplaintRepo) inOrganization(complaint *domain.Complaint, orgID int64, orgName string) bool {
	if complaint.ConsumerID != nil && r.users != nil {
		if consumer, ok := r.users.users[*complaint.ConsumerID]; ok {
			if consumer.OrganizationID != nil && *consumer.OrganizationID == orgID {
				return true
			}
		}
	}
	if complaint.GuestOrganization != nil && orgName != "" {
		return strings.Contains(strings.ToLower(*complaint.GuestOrganization), strings.ToLower(orgName))
	}
	return false
}

func (r *memComplaintRepo) CountAssignedOpen(_ context.Context, staffID int64, role domain.Role) (int, error) {
	count := 0
	for _, complaint := range r.complaints {
		if complaint.Status == domain.ComplaintStatusClosed {
			continue
		}
		if role == domain.RoleSupportPerson {
			if complaint.AssignedSupportID != nil && *complaint.AssignedSupportID == staffID {
				count++
			}
		} else if complaint.AssignedAgentID != nil && *complaint.AssignedAgentID == staffID {
			count++
		}
	}
	return count, nil
}

func (r *memComplaintRepo) StatusCounts(_ context.Context, _ repository.ComplaintScope) (map[domain.ComplaintStatus]int, error) {
	counts := make(map[domain.ComplaintStatus]int)
	for _, complaint := range r.complaints {
		counts[complaint.Status]++
	}
	return counts, nil
}

func (r *memComplaintRepo) GroupCounts(_ context.Context, _ repository.ComplaintScope, column string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, complaint := range r.complaints {
		switch column {
		case "priority":
			counts[string(complaint.Priority)]++
		case "category":
			counts[complaint.Category]++
		}
	}
	return counts, nil
}

func (r *memComplaintRepo) appendHistory(entry *domain.StatusHistory) {
	r.nextHistID++
	entry.ID = r.nextHistID
	entry.CreatedAt = time.Now()
	r.history = append(r.history, *entry)
}

func (r *memComplaintRepo) historyFor(complaintID int64) []domain.StatusHistory {
	var result []domain.StatusHistory
	for _, entry := range r.history {
		if entry.ComplaintID == complaintID {
			result = append(result, entry)
		}
	}
	return result
}

type memHistoryRepo struct {
	complaints *memComplaintRepo
}

func (r *memHistoryRepo) ListByComplaint(_ context.Context, complaintID int64) ([]domain.StatusHistory, error) {
	return r.complaints.historyFor(complaintID), nil
}

type memUserRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*domain.User)}
}

func (r *memUserRepo) add(user domain.User) *domain.User {
	if user.ID == 0 {
		r.nextID++
		user.ID = r.nextID
	} else if user.ID > r.nextID {
		r.nextID = user.ID
	}
	clone := user
	r.users[user.ID] = &clone
	return &clone
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) FindConsumer(_ context.Context, lookup repository.ConsumerLookup) (*domain.User, error) {
	for _, user := range r.users {
		if user.Role != domain.RoleConsumer {
			continue
		}
		if !strings.EqualFold(user.Email, lookup.Email) {
			continue
		}
		if user.ConsumerNumber == nil || *user.ConsumerNumber != lookup.ConsumerNumber {
			continue
		}
		if lookup.OrganizationID != nil {
			if user.OrganizationID == nil || *user.OrganizationID != *lookup.OrganizationID {
				continue
			}
		}
		if lookup.ActiveOnly && !user.IsActive {
			continue
		}
		clone := *user
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	var result []domain.User
	for _, user := range r.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.OrganizationID != nil {
			if user.OrganizationID == nil || *user.OrganizationID != *filter.OrganizationID {
				continue
			}
		}
		if filter.Active != nil && user.IsActive != *filter.Active {
			continue
		}
		result = append(result, *user)
	}
	return result, nil
}

func (r *memUserRepo) CountByRole(_ context.Context, organizationID *int64) (map[domain.Role]int, error) {
	counts := make(map[domain.Role]int)
	for _, user := range r.users {
		if organizationID != nil {
			if user.OrganizationID == nil || *user.OrganizationID != *organizationID {
				continue
			}
		}
		counts[user.Role]++
	}
	return counts, nil
}

type memOrgRepo struct {
	orgs   map[int64]*domain.Organization
	nextID int64
}

func newMemOrgRepo() *memOrgRepo {
	return &memOrgRepo{orgs: make(map[int64]*domain.Organization)}
}

func (r *memOrgRepo) add(org domain.Organization) *domain.Organization {
	if org.ID == 0 {
		r.nextID++
		org.ID = r.nextID
	} else if org.ID > r.nextID {
		r.nextID = org.ID
	}
	clone := org
	r.orgs[org.ID] = &clone
	return &clone
}

func (r *memOrgRepo) Create(_ context.Context, org *domain.Organization) error {
	r.nextID++
	org.ID = r.nextID
	org.CreatedAt = time.Now()
	clone := *org
	r.orgs[org.ID] = &clone
	return nil
}

func (r *memOrgRepo) Update(_ context.Context, org *domain.Organization) error {
	if _, ok := r.orgs[org.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *org
	r.orgs[org.ID] = &clone
	return nil
}

func (r *memOrgRepo) GetByID(_ context.Context, id int64) (*domain.Organization, error) {
	org, ok := r.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *org
	return &clone, nil
}

func (r *memOrgRepo) GetByNumber(_ context.Context, organizationNumber string) (*domain.Organization, error) {
	for _, org := range r.orgs {
		if org.OrganizationNumber == organizationNumber {
			clone := *org
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memOrgRepo) List(_ context.Context, activeOnly bool) ([]domain.Organization, error) {
	var result []domain.Organization
	for _, org := range r.orgs {
		if activeOnly && !org.IsActive() {
			continue
		}
		result = append(result, *org)
	}
	return result, nil
}

func (r *memOrgRepo) MatchByName(_ context.Context, guestOrganization string) (*domain.Organization, error) {
	needle := strings.ToLower(guestOrganization)
	var best *domain.Organization
	for _, org := range r.orgs {
		if strings.Contains(needle, strings.ToLower(org.Name)) || strings.Contains(strings.ToLower(org.Name), needle) {
			if best == nil || org.ID < best.ID {
				best = org
			}
		}
	}
	if best == nil {
		return nil, pgx.ErrNoRows
	}
	clone := *best
	return &clone, nil
}

type memResetRepo struct {
	tokens map[int64]*repository.PasswordResetToken
	nextID int64
}

func newMemResetRepo() *memResetRepo {
	return &memResetRepo{tokens: make(map[int64]*repository.PasswordResetToken)}
}

func (r *memResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.nextID++
	token.ID = r.nextID
	token.CreatedAt = time.Now()
	clone := *token
	r.tokens[token.ID] = &clone
	return nil
}

func (r *memResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	for _, token := range r.tokens {
		if token.Token == tokenStr {
			clone := *token
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memResetRepo) MarkUsed(_ context.Context, id int64) error {
	token, ok := r.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	token.UsedAt = &now
	return nil
}
