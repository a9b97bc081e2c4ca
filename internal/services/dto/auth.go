package dto

import (
	"time"

	"reviewflow/internal/models"
)

// LoginRequest - запрос входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

type ActorResponse struct {
	ID             string           `json:"id"`
	Role           models.ActorRole `json:"role"`
	Tenant         string           `json:"tenant,omitempty"`
	Email          string           `json:"email,omitempty"`
	Name           string           `json:"name,omitempty"`
	ImpersonatorID string           `json:"impersonatorId,omitempty"`
}

// SessionResponse is returned by login and by impersonation.
type SessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Actor     ActorResponse `json:"actor"`
}
