package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/complaint-portal/internal/domain"
	"github.com/spec-kit/complaint-portal/internal/repository"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util/errorutil"
)

// OrganizationService manages tenants. Creation and status changes are
// system admin operations; organization admins may edit their own tenant's
// contact settings.
type OrganizationService struct {
	orgs repository.OrganizationRepository
}

// NewOrganizationService constructs the service.
func NewOrganizationService(orgs repository.OrganizationRepository) *OrganizationService {
	return &OrganizationService{orgs: orgs}
}

// OrganizationCreateInput describes a new tenant.
type OrganizationCreateInput struct {
	OrganizationNumber string
	Name               string
	Email              string
	Phone              string
	Address            string
	City               string
	PostalCode         string
	Country            string
}

// OrganizationSettingsInput carries the contact fields an organization admin
// may edit on their own tenant.
type OrganizationSettingsInput struct {
	Email        string
	Phone        string
	Address      string
	SupportEmail string
	SupportPhone string
	City         string
	PostalCode   string
	Country      string
}

func requireSystemAdmin(actor *domain.User) error {
	if actor == nil || actor.Role != domain.RoleSystemAdmin {
		return apperrors.NewForbidden("system admin role required")
	}
	return nil
}

// CreateOrganization registers a new tenant.
func (s *OrganizationService) CreateOrganization(ctx context.Context, actor *domain.User, input OrganizationCreateInput) (*domain.Organization, error) {
	if err := requireSystemAdmin(actor); err != nil {
		return nil, err
	}
	number := strings.TrimSpace(input.OrganizationNumber)
	if existing, err := s.orgs.GetByNumber(ctx, number); err == nil && existing != nil {
		return nil, apperrors.NewConflict("organization number already exists", map[string]any{
			"organization_number": number,
		})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	org := &domain.Organization{
		OrganizationNumber: number,
		Name:               strings.TrimSpace(input.Name),
		Email:              input.Email,
		Phone:              input.Phone,
		Address:            input.Address,
		Status:             domain.OrganizationStatusActive,
		City:               input.City,
		PostalCode:         input.PostalCode,
		Country:            input.Country,
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, apperrors.MapError(err)
	}
	return org, nil
}

// ListOrganizations returns tenants, system admin only.
func (s *OrganizationService) ListOrganizations(ctx context.Context, actor *domain.User, activeOnly bool) ([]domain.Organization, error) {
	if err := requireSystemAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.orgs.List(ctx, activeOnly)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// GetOrganization fetches a tenant. System admins see any; other roles only
// their own.
func (s *OrganizationService) GetOrganization(ctx context.Context, actor *domain.User, id int64) (*domain.Organization, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role != domain.RoleSystemAdmin && !actor.InOrganization(id) {
		return nil, apperrors.NewForbidden("access denied")
	}
	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("organization", map[string]any{"organization_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return org, nil
}

// SetStatus activates or deactivates a tenant.
func (s *OrganizationService) SetStatus(ctx context.Context, actor *domain.User, id int64, status domain.OrganizationStatus) (*domain.Organization, error) {
	if err := requireSystemAdmin(actor); err != nil {
		return nil, err
	}
	if status != domain.OrganizationStatusActive && status != domain.OrganizationStatusInactive {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("organization", map[string]any{"organization_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	org.Status = status
	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, apperrors.MapError(err)
	}
	return org, nil
}

// UpdateSettings edits contact settings. Organization admins are confined to
// their own tenant.
func (s *OrganizationService) UpdateSettings(ctx context.Context, actor *domain.User, id int64, input OrganizationSettingsInput) (*domain.Organization, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	switch actor.Role {
	case domain.RoleSystemAdmin:
	case domain.RoleOrganizationAdmin:
		if !actor.InOrganization(id) {
			return nil, apperrors.NewForbidden("access denied")
		}
	default:
		return nil, apperrors.NewForbidden("admin role required")
	}

	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("organization", map[string]any{"organization_id": id})
		}
		return nil, apperrors.MapError(err)
	}

	org.Email = input.Email
	org.Phone = input.Phone
	org.Address = input.Address
	org.SupportEmail = input.SupportEmail
	org.SupportPhone = input.SupportPhone
	org.City = input.City
	org.PostalCode = input.PostalCode
	if input.Country != "" {
		org.Country = input.Country
	}
	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, apperrors.MapError(err)
	}
	return org, nil
}
