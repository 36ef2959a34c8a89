package dto

import (
	"time"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// CreateComplaintRequest payload for an authenticated consumer.
type CreateComplaintRequest struct {
	Title       string                   `json:"title" validate:"required,max=255"`
	Description string                   `json:"description" validate:"required"`
	Category    string                   `json:"category" validate:"required"`
	Subcategory *string                  `json:"subcategory,omitempty"`
	Priority    domain.ComplaintPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// GuestComplaintRequest payload for the public submission channel.
type GuestComplaintRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone,omitempty"`
	Organization   string `json:"organization" validate:"required"`
	ConsumerNumber string `json:"consumer_number" validate:"required"`
	CreateComplaintRequest
}

// OnBehalfComplaintRequest payload for staff filing for a consumer. The
// consumer is named either directly by id or by email plus account number;
// the optional contact fields refresh the matched consumer's record.
type OnBehalfComplaintRequest struct {
	ConsumerID      *int64 `json:"consumer_id,omitempty"`
	ConsumerEmail   string `json:"consumer_email" validate:"required_without=ConsumerID,omitempty,email"`
	ConsumerNumber  string `json:"consumer_number" validate:"required_without=ConsumerID"`
	ConsumerName    string `json:"consumer_name,omitempty"`
	ConsumerPhone   string `json:"consumer_phone,omitempty"`
	ConsumerAddress string `json:"consumer_address,omitempty"`
	CreateComplaintRequest
}

// UpdateComplaintRequest payload for consumer edits while open.
type UpdateComplaintRequest struct {
	Title       string                   `json:"title" validate:"required,max=255"`
	Description string                   `json:"description" validate:"required"`
	Category    string                   `json:"category" validate:"required"`
	Subcategory *string                  `json:"subcategory,omitempty"`
	Priority    domain.ComplaintPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// UpdateStatusRequest payload for staff lifecycle transitions.
type UpdateStatusRequest struct {
	Status domain.ComplaintStatus `json:"status" validate:"required,oneof=open in_progress resolved closed"`
	Notes  string                 `json:"notes" validate:"required"`
}

// FeedbackRequest payload for consumer feedback on a resolved complaint.
type FeedbackRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback,omitempty"`
}

// AssignRequest payload for manual assignment and reassignment. Agent and
// support assignments are independent; either may be set, cleared, or both.
type AssignRequest struct {
	AgentID   *int64 `json:"assigned_agent_id,omitempty"`
	SupportID *int64 `json:"assigned_support_id,omitempty"`
	Reason    string `json:"reason" validate:"required"`
}

// EscalateRequest payload.
type EscalateRequest struct {
	Notes string `json:"notes,omitempty"`
}

// ComplaintSummary response.
type ComplaintSummary struct {
	ID                int64                    `json:"id"`
	TicketNumber      string                   `json:"ticket_number"`
	Title             string                   `json:"title"`
	Category          string                   `json:"category"`
	Subcategory       *string                  `json:"subcategory,omitempty"`
	Priority          domain.ComplaintPriority `json:"priority"`
	Status            domain.ComplaintStatus   `json:"status"`
	AssignedAgentID   *int64                   `json:"assigned_agent_id,omitempty"`
	AssignedSupportID *int64                   `json:"assigned_support_id,omitempty"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// ComplaintDetailResponse provides full complaint info.
type ComplaintDetailResponse struct {
	ComplaintSummary
	Description        string                  `json:"description"`
	GuestName          *string                 `json:"guest_name,omitempty"`
	GuestOrganization  *string                 `json:"guest_organization,omitempty"`
	TrackingToken      *string                 `json:"tracking_token,omitempty"`
	ResolutionNotes    *string                 `json:"resolution_notes,omitempty"`
	ConsumerFeedback   *string                 `json:"consumer_feedback,omitempty"`
	SatisfactionRating *int                    `json:"satisfaction_rating,omitempty"`
	ResolvedAt         *time.Time              `json:"resolved_at,omitempty"`
	ClosedAt           *time.Time              `json:"closed_at,omitempty"`
	History            []StatusHistoryResponse `json:"history,omitempty"`
}

// StatusHistoryResponse represents one audit trail entry.
type StatusHistoryResponse struct {
	ID        int64                   `json:"id"`
	OldStatus *domain.ComplaintStatus `json:"old_status,omitempty"`
	NewStatus domain.ComplaintStatus  `json:"new_status"`
	Notes     string                  `json:"notes,omitempty"`
	ChangedBy int64                   `json:"changed_by"`
	CreatedAt time.Time               `json:"created_at"`
}

// TrackingResponse is the public view returned for a tracking token. It
// deliberately omits internal assignment details.
type TrackingResponse struct {
	TicketNumber string                   `json:"ticket_number"`
	Title        string                   `json:"title"`
	Status       domain.ComplaintStatus   `json:"status"`
	Priority     domain.ComplaintPriority `json:"priority"`
	CreatedAt    time.Time                `json:"created_at"`
	ResolvedAt   *time.Time               `json:"resolved_at,omitempty"`
	ClosedAt     *time.Time               `json:"closed_at,omitempty"`
	History      []StatusHistoryResponse  `json:"history"`
}

// AssignmentResponse reports an assignment attempt.
type AssignmentResponse struct {
	Assigned  bool              `json:"assigned"`
	Reason    string            `json:"reason,omitempty"`
	Assignee  *UserResponse     `json:"assignee,omitempty"`
	Complaint *ComplaintSummary `json:"complaint,omitempty"`
}

// NewComplaintSummary maps a domain complaint.
func NewComplaintSummary(c *domain.Complaint) ComplaintSummary {
	return ComplaintSummary{
		ID:                c.ID,
		TicketNumber:      c.TicketNumber,
		Title:             c.Title,
		Category:          c.Category,
		Subcategory:       c.Subcategory,
		Priority:          c.Priority,
		Status:            c.Status,
		AssignedAgentID:   c.AssignedAgentID,
		AssignedSupportID: c.AssignedSupportID,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

// NewComplaintDetail maps a domain complaint with its audit trail.
func NewComplaintDetail(c *domain.Complaint, history []domain.StatusHistory) ComplaintDetailResponse {
	return ComplaintDetailResponse{
		ComplaintSummary:   NewComplaintSummary(c),
		Description:        c.Description,
		GuestName:          c.GuestName,
		GuestOrganization:  c.GuestOrganization,
		TrackingToken:      c.TrackingToken,
		ResolutionNotes:    c.ResolutionNotes,
		ConsumerFeedback:   c.ConsumerFeedback,
		SatisfactionRating: c.SatisfactionRating,
		ResolvedAt:         c.ResolvedAt,
		ClosedAt:           c.ClosedAt,
		History:            NewStatusHistoryResponses(history),
	}
}

// NewTrackingResponse maps the public tracking view.
func NewTrackingResponse(c *domain.Complaint, history []domain.StatusHistory) TrackingResponse {
	return TrackingResponse{
		TicketNumber: c.TicketNumber,
		Title:        c.Title,
		Status:       c.Status,
		Priority:     c.Priority,
		CreatedAt:    c.CreatedAt,
		ResolvedAt:   c.ResolvedAt,
		ClosedAt:     c.ClosedAt,
		History:      NewStatusHistoryResponses(history),
	}
}

// NewStatusHistoryResponses maps audit entries.
func NewStatusHistoryResponses(entries []domain.StatusHistory) []StatusHistoryResponse {
	resp := make([]StatusHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, StatusHistoryResponse{
			ID:        entry.ID,
			OldStatus: entry.OldStatus,
			NewStatus: entry.NewStatus,
			Notes:     entry.Notes,
			ChangedBy: entry.ChangedBy,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}
