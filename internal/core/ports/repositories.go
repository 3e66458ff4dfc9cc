package ports

import (
	"context"
	"time"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

// UserRepository persists users. Get and FindByUsername return
// domain.ErrUserNotFound when nothing matches. Writes after Create touch only
// the fields they name, so concurrent writers never undo each other.
type UserRepository interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	ListByAccount(ctx context.Context, accountID string) ([]*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	// RecordLoginFailure counts a failed login at and returns the new count.
	// A previous failure before since no longer counts, so the count
	// restarts at 1.
	RecordLoginFailure(ctx context.Context, id string, at, since time.Time) (int, error)
	// RecordLoginSuccess clears the failure count and stamps the last login.
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
	// SetPassword replaces the hash and clears the failure count.
	SetPassword(ctx context.Context, id, passwordHash string, at time.Time) error
	// UpdateMemberships applies change atomically.
	UpdateMemberships(ctx context.Context, id string, change domain.MembershipChange, at time.Time) error
}

// AccountRepository persists tenants.
type AccountRepository interface {
	Get(ctx context.Context, id string) (*domain.Account, error)
	// ListByIDs returns the accounts that exist among ids. Unknown ids are skipped.
	ListByIDs(ctx context.Context, ids []string) ([]*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
}

// RoleRepository persists account-scoped roles.
type RoleRepository interface {
	Get(ctx context.Context, accountID, id string) (*domain.Role, error)
	FindByName(ctx context.Context, accountID, name string) (*domain.Role, error)
	ListByAccount(ctx context.Context, accountID string) ([]*domain.Role, error)
	Create(ctx context.Context, role *domain.Role) error
	// Delete removes the role and every reference to it from users, groups and permissions.
	Delete(ctx context.Context, accountID, id string) error
}

// GroupRepository persists account-scoped groups.
type GroupRepository interface {
	Get(ctx context.Context, accountID, id string) (*domain.Group, error)
	// ListByIDs returns the groups among ids that belong to accountID.
	ListByIDs(ctx context.Context, accountID string, ids []string) ([]*domain.Group, error)
	Create(ctx context.Context, group *domain.Group) error
	Update(ctx context.Context, group *domain.Group) error
}

// PermissionRepository persists account-scoped permissions.
type PermissionRepository interface {
	// ListByRoles returns permissions of accountID granted to any of roleIDs.
	ListByRoles(ctx context.Context, accountID string, roleIDs []string) ([]domain.Permission, error)
	Create(ctx context.Context, permission *domain.Permission) error
}

// TrackedTokenRepository persists TrackedAuthToken records. Implementations
// must make Revoke and RevokeAllActive atomic per record.
type TrackedTokenRepository interface {
	Create(ctx context.Context, token *domain.TrackedAuthToken) error
	// FindActive returns the record for (userID, tokenID) when it is not
	// revoked and expires after now, or domain.ErrTokenNotFound.
	FindActive(ctx context.Context, userID, tokenID string, now time.Time) (*domain.TrackedAuthToken, error)
	// Revoke stamps revokedAt on the matching active record and reports
	// whether a record changed.
	Revoke(ctx context.Context, userID, tokenID string, revokedAt time.Time) (bool, error)
	// RevokeAllActive stamps revokedAt on every active record of userID.
	RevokeAllActive(ctx context.Context, userID string, revokedAt time.Time) (int64, error)
}
