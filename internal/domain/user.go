package domain

import "time"

// User models a consumer or staff account. OrganizationID is nil only for
// system admins; ConsumerNumber is set for consumers only and is unique.
type User struct {
	ID             int64
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	OrganizationID *int64
	ConsumerNumber *string
	Phone          string
	Address        string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// InOrganization reports whether the user belongs to the given organization.
func (u *User) InOrganization(orgID int64) bool {
	return u.OrganizationID != nil && *u.OrganizationID == orgID
}
