package domain

import "time"

// OrganizationStatus enumerates tenant states.
type OrganizationStatus string

const (
	OrganizationStatusActive   OrganizationStatus = "active"
	OrganizationStatusInactive OrganizationStatus = "inactive"
)

// Organization is the tenant boundary. Every consumer and staff user except
// system admins belongs to exactly one.
type Organization struct {
	ID                 int64
	OrganizationNumber string
	Name               string
	Email              string
	Phone              string
	Address            string
	Status             OrganizationStatus
	SupportEmail       string
	SupportPhone       string
	City               string
	PostalCode         string
	Country            string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsActive reports whether the tenant accepts new activity.
func (o *Organization) IsActive() bool {
	return o.Status == OrganizationStatusActive
}
