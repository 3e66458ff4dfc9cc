package ports

import (
	"context"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

// TokenValidator validates bearer tokens presented on each request.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (domain.TokenValidationResult, error)
}

// AuthService covers registration, sign-in and credential lifecycle.
// Operations other than Register and Login act on the UserContext in ctx.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, username, password, accountID string) (*domain.TokenIssueResult, error)
	SwitchAccount(ctx context.Context, accountID string) (*domain.TokenIssueResult, error)
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	ChangePassword(ctx context.Context, userID, newPassword string) error
}

// AccountService creates tenants and lists the caller's tenants.
type AccountService interface {
	CreateAccount(ctx context.Context, name string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.AccountSummary, error)
}

// MembershipService mutates role and group membership inside the caller's
// active account.
type MembershipService interface {
	ListRoles(ctx context.Context) ([]*domain.Role, error)
	AssignUserRole(ctx context.Context, userID, roleID string) error
	RemoveUserRole(ctx context.Context, userID, roleID string) error
	AddGroupMember(ctx context.Context, groupID, userID string) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error
	DeleteRole(ctx context.Context, roleID string) error
}
