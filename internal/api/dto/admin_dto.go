package dto

import (
	"time"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// CreateUserRequest payload for staff and consumer provisioning. Password is
// optional for consumers, whose accounts are claimed later.
type CreateUserRequest struct {
	Name           string      `json:"name" validate:"required"`
	Email          string      `json:"email" validate:"required,email"`
	Password       string      `json:"password" validate:"omitempty,min=8"`
	Role           domain.Role `json:"role" validate:"required"`
	OrganizationID *int64      `json:"organization_id,omitempty"`
	ConsumerNumber *string     `json:"consumer_number,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	Address        string      `json:"address,omitempty"`
}

// UpdateUserRequest payload.
type UpdateUserRequest struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// SetActiveRequest payload.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// CreateOrganizationRequest payload.
type CreateOrganizationRequest struct {
	OrganizationNumber string `json:"organization_number" validate:"required"`
	Name               string `json:"name" validate:"required"`
	Email              string `json:"email" validate:"omitempty,email"`
	Phone              string `json:"phone,omitempty"`
	Address            string `json:"address,omitempty"`
	City               string `json:"city,omitempty"`
	PostalCode         string `json:"postal_code,omitempty"`
	Country            string `json:"country,omitempty"`
}

// UpdateOrganizationSettingsRequest payload.
type UpdateOrganizationSettingsRequest struct {
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	SupportEmail string `json:"support_email" validate:"omitempty,email"`
	SupportPhone string `json:"support_phone,omitempty"`
	City         string `json:"city,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country,omitempty"`
}

// SetOrganizationStatusRequest payload.
type SetOrganizationStatusRequest struct {
	Status domain.OrganizationStatus `json:"status" validate:"required,oneof=active inactive"`
}

// OrganizationResponse represents a tenant in API responses.
type OrganizationResponse struct {
	ID                 int64                     `json:"id"`
	OrganizationNumber string                    `json:"organization_number"`
	Name               string                    `json:"name"`
	Email              string                    `json:"email,omitempty"`
	Phone              string                    `json:"phone,omitempty"`
	Address            string                    `json:"address,omitempty"`
	Status             domain.OrganizationStatus `json:"status"`
	SupportEmail       string                    `json:"support_email,omitempty"`
	SupportPhone       string                    `json:"support_phone,omitempty"`
	City               string                    `json:"city,omitempty"`
	PostalCode         string                    `json:"postal_code,omitempty"`
	Country            string                    `json:"country,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// NewOrganizationResponse maps a domain organization.
func NewOrganizationResponse(org *domain.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:                 org.ID,
		OrganizationNumber: org.OrganizationNumber,
		Name:               org.Name,
		Email:              org.Email,
		Phone:              org.Phone,
		Address:            org.Address,
		Status:             org.Status,
		SupportEmail:       org.SupportEmail,
		SupportPhone:       org.SupportPhone,
		City:               org.City,
		PostalCode:         org.PostalCode,
		Country:            org.Country,
		CreatedAt:          org.CreatedAt,
	}
}

// OverviewResponse aggregates dashboard counters.
type OverviewResponse struct {
	ByStatus    map[domain.ComplaintStatus]int `json:"by_status"`
	ByPriority  map[string]int                 `json:"by_priority"`
	ByCategory  map[string]int                 `json:"by_category"`
	UsersByRole map[domain.Role]int            `json:"users_by_role,omitempty"`
}
