package domain

import "time"

// ComplaintStatus enumerates lifecycle states.
type ComplaintStatus string

const (
	ComplaintStatusOpen       ComplaintStatus = "open"
	ComplaintStatusInProgress ComplaintStatus = "in_progress"
	ComplaintStatusResolved   ComplaintStatus = "resolved"
	ComplaintStatusClosed     ComplaintStatus = "closed"
)

// Valid reports whether the status is a known value.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintStatusOpen, ComplaintStatusInProgress, ComplaintStatusResolved, ComplaintStatusClosed:
		return true
	}
	return false
}

// ComplaintPriority enumerates urgency levels.
type ComplaintPriority string

const (
	ComplaintPriorityLow    ComplaintPriority = "low"
	ComplaintPriorityMedium ComplaintPriority = "medium"
	ComplaintPriorityHigh   ComplaintPriority = "high"
	ComplaintPriorityUrgent ComplaintPriority = "urgent"
)

// Valid reports whether the priority is a known value.
func (p ComplaintPriority) Valid() bool {
	switch p {
	case ComplaintPriorityLow, ComplaintPriorityMedium, ComplaintPriorityHigh, ComplaintPriorityUrgent:
		return true
	}
	return false
}

// Complaint is the ticket aggregate. ConsumerID is nil only transiently for
// guest rows created before identity verification; in practice every stored
// complaint links to a real consumer, with the guest_* fields kept as the
// submitted record. TicketNumber and TrackingToken are immutable after create.
type Complaint struct {
	ID                 int64
	TicketNumber       string
	Title              string
	Description        string
	Category           string
	Subcategory        *string
	Priority           ComplaintPriority
	Status             ComplaintStatus
	ConsumerID         *int64
	GuestName          *string
	GuestEmail         *string
	GuestPhone         *string
	GuestOrganization  *string
	TrackingToken      *string
	AssignedAgentID    *int64
	AssignedSupportID  *int64
	ResolutionNotes    *string
	ConsumerFeedback   *string
	SatisfactionRating *int
	ResolvedAt         *time.Time
	ClosedAt           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsGuestComplaint reports whether the complaint came in through the guest
// channel: a guest email is recorded or no consumer link exists.
func (c *Complaint) IsGuestComplaint() bool {
	return c.GuestEmail != nil || c.ConsumerID == nil
}

// NotificationEmail picks the address status-change notifications go to.
// The consumer email must be supplied by the caller since the aggregate does
// not carry the joined user row.
func (c *Complaint) NotificationEmail(consumerEmail string) string {
	if c.IsGuestComplaint() {
		if c.GuestEmail != nil {
			return *c.GuestEmail
		}
		return ""
	}
	return consumerEmail
}

// HasAssignee reports whether any assignment field is set.
func (c *Complaint) HasAssignee() bool {
	return c.AssignedAgentID != nil || c.AssignedSupportID != nil
}
