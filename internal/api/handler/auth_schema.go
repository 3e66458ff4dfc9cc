package handler

import (
	"time"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email"    validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Username  string `json:"username"   validate:"required,max=64"`
	Password  string `json:"password"   validate:"required,max=72"`
	AccountID string `json:"account_id" validate:"omitempty,ulid"`
}

type switchAccountRequest struct {
	AccountID string `json:"account_id" validate:"required,ulid"`
}

type changePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type registerResponse struct {
	User *domain.User `json:"user"`
}

type meResponse struct {
	UserID      string                  `json:"user_id"`
	AccountID   string                  `json:"account_id,omitempty"`
	TokenID     string                  `json:"token_id"`
	DeviceID    string                  `json:"device_id,omitempty"`
	Accounts    []domain.AccountSummary `json:"accounts"`
	Permissions []permissionPayload     `json:"permissions"`
}

type permissionPayload struct {
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Actions      domain.Actions `json:"actions"`
}

type authorizeResponse struct {
	Allowed      bool   `json:"allowed"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
}

type createAccountRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type accountsResponse struct {
	Accounts []domain.AccountSummary `json:"accounts"`
}

type rolesResponse struct {
	Roles []*domain.Role `json:"roles"`
}

func toTokenResponse(r *domain.TokenIssueResult) tokenResponse {
	return tokenResponse{Token: r.Token, TokenID: r.TokenID, ExpiresAt: r.ExpiresAt}
}

func toPermissionPayloads(perms []domain.Permission) []permissionPayload {
	out := make([]permissionPayload, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionPayload{
			ResourceType: p.ResourceType,
			ResourceID:   p.ResourceID.String(),
			Actions:      p.Actions,
		})
	}
	return out
}
