package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// ComplaintScope restricts a query to the slice of complaints a caller may
// see. Exactly one shape is populated per role; All overrides the rest.
type ComplaintScope struct {
	All               bool
	ConsumerID        *int64
	AssignedAgentID   *int64
	AssignedSupportID *int64
	// OrganizationID/OrganizationName select complaints whose consumer belongs
	// to the organization, or whose guest_organization text contains the
	// organization name. For agents OpenInOrganization widens the assignee
	// match with open complaints of the same organization.
	OrganizationID     *int64
	OrganizationName   string
	OpenInOrganization bool
}

// ComplaintFilter captures listing parameters.
type ComplaintFilter struct {
	Scope      ComplaintScope
	Statuses   []domain.ComplaintStatus
	Priorities []domain.ComplaintPriority
	Category   *string
	Limit      int
	Offset     int
}

// ComplaintRepository encapsulates complaint persistence. Mutations that
// affect status or assignment go through the *WithHistory methods, which
// commit the entity row and its audit row in one transaction.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint, history *domain.StatusHistory) error
	Update(ctx context.Context, complaint *domain.Complaint) error
	UpdateWithHistory(ctx context.Context, complaint *domain.Complaint, history *domain.StatusHistory) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Complaint, error)
	GetByToken(ctx context.Context, token string) (*domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	CountAssignedOpen(ctx context.Context, staffID int64, role domain.Role) (int, error)
	StatusCounts(ctx context.Context, scope ComplaintScope) (map[domain.ComplaintStatus]int, error)
	GroupCounts(ctx context.Context, scope ComplaintScope, column string) (map[string]int, error)
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const complaintColumns = `c.id, c.ticket_number, c.title, c.description, c.category, c.subcategory,
       c.priority, c.status, c.consumer_id, c.guest_name, c.guest_email, c.guest_phone,
       c.guest_organization, c.tracking_token, c.assigned_agent_id, c.assigned_support_id,
       c.resolution_notes, c.consumer_feedback, c.satisfaction_rating,
       c.resolved_at, c.closed_at, c.created_at, c.updated_at`

const complaintBase = `SELECT ` + complaintColumns + `
        FROM complaints c LEFT JOIN users cu ON cu.id = c.consumer_id`

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint, history *domain.StatusHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO complaints (ticket_number, title, description, category, subcategory, priority, status,
            consumer_id, guest_name, guest_email, guest_phone, guest_organization, tracking_token,
            assigned_agent_id, assigned_support_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		complaint.TicketNumber,
		complaint.Title,
		complaint.Description,
		complaint.Category,
		complaint.Subcategory,
		complaint.Priority,
		complaint.Status,
		complaint.ConsumerID,
		complaint.GuestName,
		complaint.GuestEmail,
		complaint.GuestPhone,
		complaint.GuestOrganization,
		complaint.TrackingToken,
		complaint.AssignedAgentID,
		complaint.AssignedSupportID,
	).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt); err != nil {
		return err
	}

	history.ComplaintID = complaint.ID
	if err := insertHistory(ctx, tx, history); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *complaintRepository) Update(ctx context.Context, complaint *domain.Complaint) error {
	cmd, err := r.pool.Exec(ctx, complaintUpdateSQL, complaintUpdateArgs(complaint)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateWithHistory writes the complaint row and its audit entry atomically.
func (r *complaintRepository) UpdateWithHistory(ctx context.Context, complaint *domain.Complaint, history *domain.StatusHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, complaintUpdateSQL, complaintUpdateArgs(complaint)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	history.ComplaintID = complaint.ID
	if err := insertHistory(ctx, tx, history); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const complaintUpdateSQL = `
        UPDATE complaints
        SET title=$1, description=$2, category=$3, subcategory=$4, priority=$5, status=$6,
            guest_name=$7, guest_email=$8, guest_phone=$9, guest_organization=$10,
            assigned_agent_id=$11, assigned_support_id=$12, resolution_notes=$13,
            consumer_feedback=$14, satisfaction_rating=$15, resolved_at=$16, closed_at=$17,
            updated_at=NOW()
        WHERE id=$18`

func complaintUpdateArgs(c *domain.Complaint) []any {
	return []any{
		c.Title,
		c.Description,
		c.Category,
		c.Subcategory,
		c.Priority,
		c.Status,
		c.GuestName,
		c.GuestEmail,
		c.GuestPhone,
		c.GuestOrganization,
		c.AssignedAgentID,
		c.AssignedSupportID,
		c.ResolutionNotes,
		c.ConsumerFeedback,
		c.SatisfactionRating,
		c.ResolvedAt,
		c.ClosedAt,
		c.ID,
	}
}

func insertHistory(ctx context.Context, tx pgx.Tx, history *domain.StatusHistory) error {
	const query = `
        INSERT INTO complaint_status_history (complaint_id, old_status, new_status, notes, changed_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		history.ComplaintID,
		history.OldStatus,
		history.NewStatus,
		history.Notes,
		history.ChangedBy,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *complaintRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM complaints WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *complaintRepository) GetByID(ctx context.Context, id int64) (*domain.Complaint, error) {
	return r.fetchSingle(ctx, complaintBase+` WHERE c.id=$1`, id)
}

// GetByToken resolves a complaint by tracking token or ticket number, the two
// identifiers a guest holds.
func (r *complaintRepository) GetByToken(ctx context.Context, token string) (*domain.Complaint, error) {
	return r.fetchSingle(ctx, complaintBase+` WHERE c.tracking_token=$1 OR c.ticket_number=$1`, token)
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if scope := scopeClause(filter.Scope, &args); scope != "" {
		clauses = append(clauses, scope)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("c.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("c.priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("c.category=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d`,
		complaintBase, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

// CountAssignedOpen returns the staff member's workload: complaints assigned
// through the role-appropriate field with status other than closed.
func (r *complaintRepository) CountAssignedOpen(ctx context.Context, staffID int64, role domain.Role) (int, error) {
	field := "assigned_agent_id"
	if role == domain.RoleSupportPerson {
		field = "assigned_support_id"
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM complaints WHERE %s=$1 AND status<>$2`, field)
	var count int
	if err := r.pool.QueryRow(ctx, query, staffID, domain.ComplaintStatusClosed).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *complaintRepository) StatusCounts(ctx context.Context, scope ComplaintScope) (map[domain.ComplaintStatus]int, error) {
	grouped, err := r.GroupCounts(ctx, scope, "status")
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.ComplaintStatus]int, len(grouped))
	for key, count := range grouped {
		counts[domain.ComplaintStatus(key)] = count
	}
	return counts, nil
}

// GroupCounts aggregates complaint counts by the given column within a scope.
// The column name is restricted to a fixed set; it is never caller input.
func (r *complaintRepository) GroupCounts(ctx context.Context, scope ComplaintScope, column string) (map[string]int, error) {
	switch column {
	case "status", "priority", "category":
	default:
		return nil, fmt.Errorf("unsupported group column %q", column)
	}

	clauses := []string{"1=1"}
	args := []any{}
	if sc := scopeClause(scope, &args); sc != "" {
		clauses = append(clauses, sc)
	}
	query := fmt.Sprintf(`SELECT c.%s, COUNT(*)
        FROM complaints c LEFT JOIN users cu ON cu.id = c.consumer_id
        WHERE %s GROUP BY c.%s`, column, strings.Join(clauses, " AND "), column)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

func scopeClause(scope ComplaintScope, args *[]any) string {
	if scope.All {
		return ""
	}
	if scope.ConsumerID != nil {
		*args = append(*args, *scope.ConsumerID)
		return fmt.Sprintf("c.consumer_id=$%d", len(*args))
	}
	if scope.AssignedSupportID != nil {
		*args = append(*args, *scope.AssignedSupportID)
		return fmt.Sprintf("c.assigned_support_id=$%d", len(*args))
	}
	if scope.AssignedAgentID != nil {
		*args = append(*args, *scope.AssignedAgentID)
		assigned := fmt.Sprintf("c.assigned_agent_id=$%d", len(*args))
		if scope.OpenInOrganization && scope.OrganizationID != nil {
			*args = append(*args, domain.ComplaintStatusOpen)
			statusPos := len(*args)
			org := organizationClause(*scope.OrganizationID, scope.OrganizationName, args)
			return fmt.Sprintf("(%s OR (c.status=$%d AND %s))", assigned, statusPos, org)
		}
		return assigned
	}
	if scope.OrganizationID != nil {
		return organizationClause(*scope.OrganizationID, scope.OrganizationName, args)
	}
	// Unpopulated scope matches nothing rather than everything.
	return "1=0"
}

// organizationClause matches complaints whose consumer belongs to the
// organization, or guest complaints whose denormalized organization text
// contains the organization name. The substring match is a known fuzzy spot
// for organizations with overlapping names.
func organizationClause(orgID int64, orgName string, args *[]any) string {
	*args = append(*args, orgID)
	idPos := len(*args)
	*args = append(*args, orgName)
	namePos := len(*args)
	return fmt.Sprintf("(cu.organization_id=$%d OR (c.guest_organization IS NOT NULL AND c.guest_organization ILIKE '%%' || $%d || '%%'))", idPos, namePos)
}

func (r *complaintRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Complaint, error) {
	var complaint domain.Complaint
	if err := scanComplaint(r.pool.QueryRow(ctx, query, args...), &complaint); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func scanComplaint(row pgx.Row, c *domain.Complaint) error {
	return row.Scan(
		&c.ID,
		&c.TicketNumber,
		&c.Title,
		&c.Description,
		&c.Category,
		&c.Subcategory,
		&c.Priority,
		&c.Status,
		&c.ConsumerID,
		&c.GuestName,
		&c.GuestEmail,
		&c.GuestPhone,
		&c.GuestOrganization,
		&c.TrackingToken,
		&c.AssignedAgentID,
		&c.AssignedSupportID,
		&c.ResolutionNotes,
		&c.ConsumerFeedback,
		&c.SatisfactionRating,
		&c.ResolvedAt,
		&c.ClosedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

func scanComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for rows.Next() {
		var complaint domain.Complaint
		if err := scanComplaint(rows, &complaint); err != nil {
			return nil, err
		}
		result = append(result, complaint)
	}
	return result, rows.Err()
}
