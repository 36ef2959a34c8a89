package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-portal/internal/api/dto"
	"github.com/spec-kit/complaint-portal/internal/service"
	apperrors "github.com/spec-kit/complaint-portal/pkg/util/errorutil"
)

// GuestHandler exposes the unauthenticated submission and tracking channel.
type GuestHandler struct {
	complaints *service.ComplaintService
}

// NewGuestHandler constructs handler.
func NewGuestHandler(complaintService *service.ComplaintService) *GuestHandler {
	return &GuestHandler{complaints: complaintService}
}

// Submit handles POST /guest/complaints.
func (h *GuestHandler) Submit(c *fiber.Ctx) error {
	var req dto.GuestComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	complaint, err := h.complaints.CreateForGuest(c.Context(), service.GuestIdentity{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Organization:   req.Organization,
		ConsumerNumber: req.ConsumerNumber,
	}, createInput(req.CreateComplaintRequest))
	if err != nil {
		return err
	}

	resp := fiber.Map{
		"ticket_number": complaint.TicketNumber,
	}
	if complaint.TrackingToken != nil {
		resp["tracking_token"] = *complaint.TrackingToken
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": resp})
}

// Track handles GET /guest/complaints/:token.
func (h *GuestHandler) Track(c *fiber.Ctx) error {
	complaint, history, err := h.complaints.TrackByToken(c.Context(), c.Params("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTrackingResponse(complaint, history)})
}

// Feedback handles POST /guest/complaints/:token/feedback. The token is the
// only credential; it closes a resolved complaint with the guest's rating.
func (h *GuestHandler) Feedback(c *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	complaint, err := h.complaints.SubmitFeedbackByToken(c.Context(), c.Params("token"), req.Rating, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"ticket_number": complaint.TicketNumber,
			"status":        complaint.Status,
		},
	})
}
