package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-portal/internal/api/dto"
	"github.com/spec-kit/complaint-portal/internal/auth"
	"github.com/spec-kit/complaint-portal/internal/service"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util/errorutil"
)

// OrganizationsHandler exposes tenant management endpoints.
type OrganizationsHandler struct {
	orgs *service.OrganizationService
}

// NewOrganizationsHandler constructs handler.
func NewOrganizationsHandler(orgService *service.OrganizationService) *OrganizationsHandler {
	return &OrganizationsHandler{orgs: orgService}
}

// Create handles POST /admin/organizations.
func (h *OrganizationsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	org, err := h.orgs.CreateOrganization(c.Context(), principal.User, service.OrganizationCreateInput{
		OrganizationNumber: req.OrganizationNumber,
		Name:               req.Name,
		Email:              req.Email,
		Phone:              req.Phone,
		Address:            req.Address,
		City:               req.City,
		PostalCode:         req.PostalCode,
		Country:            req.Country,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOrganizationResponse(org)})
}

// List handles GET /admin/organizations.
func (h *OrganizationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	activeOnly := c.Query("active") == "true"
	orgs, err := h.orgs.ListOrganizations(c.Context(), principal.User, activeOnly)
	if err != nil {
		return err
	}
	items := make([]dto.OrganizationResponse, 0, len(orgs))
	for i := range orgs {
		items = append(items, dto.NewOrganizationResponse(&orgs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get handles GET /admin/organizations/:id.
func (h *OrganizationsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	org, err := h.orgs.GetOrganization(c.Context(), principal.User, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrganizationResponse(org)})
}

// SetStatus handles PATCH /admin/organizations/:id/status.
func (h *OrganizationsHandler) SetStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.SetOrganizationStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	org, err := h.orgs.SetStatus(c.Context(), principal.User, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrganizationResponse(org)})
}

// UpdateSettings handles PUT /admin/organizations/:id/settings.
func (h *OrganizationsHandler) UpdateSettings(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateOrganizationSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	org, err := h.orgs.UpdateSettings(c.Context(), principal.User, id, service.OrganizationSettingsInput{
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		SupportEmail: req.SupportEmail,
		SupportPhone: req.SupportPhone,
		City:         req.City,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOrganizationResponse(org)})
}
