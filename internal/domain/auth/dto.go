package auth

import (
	"github.com/google/uuid"
)

// RegisterRequest for POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Nickname string `json:"nickname" validate:"required,min=2,max=30"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse returned after register/login
type AuthResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	Nickname    string    `json:"nickname"`
	Role        string    `json:"role"`
	AccessToken string    `json:"access_token"`
	Points      int       `json:"points"`
}
