package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-portal/internal/api/dto"
	"github.com/spec-kit/complaint-portal/internal/auth"
	"github.com/spec-kit/complaint-portal/internal/service"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util/errorutil"
)

// AssignmentHandler manages assignment endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignmentService}
}

// Assign handles POST /complaints/:id/assign.
func (h *AssignmentHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	outcome, err := h.assignments.Assign(c.Context(), principal.User, id, assignmentInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(outcome)})
}

// AutoAssign handles POST /complaints/:id/auto-assign.
func (h *AssignmentHandler) AutoAssign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	outcome, err := h.assignments.AutoAssign(c.Context(), principal.User, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(outcome)})
}

// Escalate handles POST /complaints/:id/escalate.
func (h *AssignmentHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	outcome, err := h.assignments.Escalate(c.Context(), principal.User, id, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(outcome)})
}

// Reassign handles POST /complaints/:id/reassign.
func (h *AssignmentHandler) Reassign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	outcome, err := h.assignments.Reassign(c.Context(), principal.User, id, assignmentInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(outcome)})
}

func assignmentInput(req dto.AssignRequest) service.AssignmentInput {
	return service.AssignmentInput{
		AgentID:   req.AgentID,
		SupportID: req.SupportID,
		Reason:    req.Reason,
	}
}

func assignmentResponse(outcome *service.AssignmentOutcome) dto.AssignmentResponse {
	resp := dto.AssignmentResponse{
		Assigned: outcome.Assigned,
		Reason:   outcome.Reason,
	}
	if outcome.Assignee != nil {
		assignee := dto.NewUserResponse(outcome.Assignee)
		resp.Assignee = &assignee
	}
	if outcome.Complaint != nil {
		summary := dto.NewComplaintSummary(outcome.Complaint)
		resp.Complaint = &summary
	}
	return resp
}
