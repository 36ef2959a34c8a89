package dto

import (
	"time"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterConsumerRequest payload for claiming a pre-provisioned consumer
// account.
type RegisterConsumerRequest struct {
	OrganizationNumber string `json:"organization_number" validate:"required"`
	ConsumerNumber     string `json:"consumer_number" validate:"required"`
	Email              string `json:"email" validate:"required,email"`
	Password           string `json:"password" validate:"required,min=8"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse represents an account in API responses.
type UserResponse struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Role           domain.Role `json:"role"`
	OrganizationID *int64      `json:"organization_id,omitempty"`
	ConsumerNumber *string     `json:"consumer_number,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	Address        string      `json:"address,omitempty"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		ConsumerNumber: user.ConsumerNumber,
		Phone:          user.Phone,
		Address:        user.Address,
		IsActive:       user.IsActive,
		CreatedAt:      user.CreatedAt,
	}
}
