package auth

import (
	"endurancy-platform/pkg/session"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TestLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
}

// SessionUser is the user shape the web client keeps in its auth context.
type SessionUser struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId,omitempty"`
}

type LoginResponse struct {
	User     SessionUser `json:"user"`
	Redirect string      `json:"redirect"`
}

func sessionUser(d *session.Data) SessionUser {
	return SessionUser{
		ID:             d.UserID,
		Username:       d.Username,
		Name:           d.Name,
		Email:          d.Email,
		Role:           d.Role,
		OrganizationID: d.OrganizationID,
	}
}
