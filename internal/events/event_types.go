package events

import (
	"time"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated       EventType = "complaint_created"
	EventComplaintStatusChanged EventType = "complaint_status_changed"
	EventComplaintAssigned      EventType = "complaint_assigned"
	EventComplaintFeedback      EventType = "complaint_feedback_submitted"
)

// Actor encapsulates actor metadata for an event. UserID is nil for guest
// submissions.
type Actor struct {
	UserID *int64      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
	Guest  bool        `json:"guest,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	ComplaintID  int64       `json:"complaint_id"`
	TicketNumber string      `json:"ticket_number"`
	Actor        Actor       `json:"actor"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Title         string                   `json:"title"`
	Category      string                   `json:"category"`
	Priority      domain.ComplaintPriority `json:"priority"`
	NotifyEmail   string                   `json:"notify_email,omitempty"`
	TrackingToken string                   `json:"tracking_token,omitempty"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	OldStatus   domain.ComplaintStatus `json:"old_status"`
	NewStatus   domain.ComplaintStatus `json:"new_status"`
	Notes       string                 `json:"notes,omitempty"`
	NotifyEmail string                 `json:"notify_email,omitempty"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	AssigneeID    int64       `json:"assignee_id"`
	AssigneeRole  domain.Role `json:"assignee_role"`
	AssigneeEmail string      `json:"assignee_email,omitempty"`
	Escalated     bool        `json:"escalated,omitempty"`
}

// ComplaintFeedbackPayload payload.
type ComplaintFeedbackPayload struct {
	Rating      int    `json:"rating"`
	NotifyEmail string `json:"notify_email,omitempty"`
}
