package dto

import (
	"time"

	"github.com/spec-kit/mailroom-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	UserType domain.Role `json:"userType"`
	FullName string      `json:"fullName"`
	LNumber  string      `json:"lNumber"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	UserType domain.Role `json:"userType"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Type     domain.Role `json:"type"`
	LNumber  *string     `json:"lNumber"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// NewUserResponse maps the domain model.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Type:     user.Role,
		LNumber:  user.LNumber,
	}
}
