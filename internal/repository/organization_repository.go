package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// OrganizationRepository handles tenant persistence.
type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	Update(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id int64) (*domain.Organization, error)
	GetByNumber(ctx context.Context, organizationNumber string) (*domain.Organization, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Organization, error)
	MatchByName(ctx context.Context, guestOrganization string) (*domain.Organization, error)
}

type organizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository instantiates the repository.
func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

const organizationColumns = `id, organization_number, name, email, phone, address, status,
       support_email, support_phone, city, postal_code, country, created_at, updated_at`

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	const query = `
        INSERT INTO organizations (organization_number, name, email, phone, address, status,
            support_email, support_phone, city, postal_code, country)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		org.OrganizationNumber,
		org.Name,
		org.Email,
		org.Phone,
		org.Address,
		org.Status,
		org.SupportEmail,
		org.SupportPhone,
		org.City,
		org.PostalCode,
		org.Country,
	).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
}

func (r *organizationRepository) Update(ctx context.Context, org *domain.Organization) error {
	const query = `
        UPDATE organizations
        SET organization_number=$1, name=$2, email=$3, phone=$4, address=$5, status=$6,
            support_email=$7, support_phone=$8, city=$9, postal_code=$10, country=$11, updated_at=NOW()
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
		org.OrganizationNumber,
		org.Name,
		org.Email,
		org.Phone,
		org.Address,
		org.Status,
		org.SupportEmail,
		org.SupportPhone,
		org.City,
		org.PostalCode,
		org.Country,
		org.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id int64) (*domain.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *organizationRepository) GetByNumber(ctx context.Context, organizationNumber string) (*domain.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE organization_number=$1`
	return r.fetchSingle(ctx, query, organizationNumber)
}

// MatchByName finds the organization whose name contains the denormalized
// guest organization text. Substring matching can mismatch for overlapping
// names; callers treat the result as best effort.
func (r *organizationRepository) MatchByName(ctx context.Context, guestOrganization string) (*domain.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations
        WHERE name ILIKE '%' || $1 || '%' ORDER BY id LIMIT 1`
	return r.fetchSingle(ctx, query, guestOrganization)
}

func (r *organizationRepository) List(ctx context.Context, activeOnly bool) ([]domain.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations`
	args := []any{}
	if activeOnly {
		query += ` WHERE status=$1`
		args = append(args, domain.OrganizationStatusActive)
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := scanOrganization(rows, &org); err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	return result, rows.Err()
}

func (r *organizationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Organization, error) {
	var org domain.Organization
	if err := scanOrganization(r.pool.QueryRow(ctx, query, arg), &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func scanOrganization(row pgx.Row, org *domain.Organization) error {
	return row.Scan(
		&org.ID,
		&org.OrganizationNumber,
		&org.Name,
		&org.Email,
		&org.Phone,
		&org.Address,
		&org.Status,
		&org.SupportEmail,
		&org.SupportPhone,
		&org.City,
		&org.PostalCode,
		&org.Country,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
}
