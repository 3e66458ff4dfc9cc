package service

import (
	"context"
	"fmt"
	"time"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/pkg/metrics"
)

// PermissionResolver computes effective permissions: those granted to a role
// reachable from the user directly or through one of the user's groups, in
// the context's active account. It holds no per-user state.
type PermissionResolver struct {
	users       ports.UserRepository
	groups      ports.GroupRepository
	permissions ports.PermissionRepository
}

func NewPermissionResolver(users ports.UserRepository, groups ports.GroupRepository, permissions ports.PermissionRepository) *PermissionResolver {
	return &PermissionResolver{users: users, groups: groups, permissions: permissions}
}

// Resolve returns the effective permissions for uc. Without an active account
// the set is empty. Storage reads are issued one at a time.
func (r *PermissionResolver) Resolve(ctx context.Context, uc *domain.UserContext) ([]domain.Permission, error) {
	if !uc.HasActiveAccount() {
		return nil, nil
	}
	start := time.Now()
	defer func() { metrics.PermissionResolutionDuration.Observe(time.Since(start).Seconds()) }()

	// user → role
	user, err := r.users.Get(ctx, uc.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: load user: %w", err)
	}
	roles := make(map[string]struct{}, len(user.RoleIDs))
	for _, id := range user.RoleIDs {
		roles[id] = struct{}{}
	}

	// user → group → role, only for groups of the active account
	if len(user.GroupIDs) > 0 {
		groups, err := r.groups.ListByIDs(ctx, uc.AccountID, user.GroupIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve permissions: load groups: %w", err)
		}
		for _, g := range groups {
			for _, id := range g.RoleIDs {
				roles[id] = struct{}{}
			}
		}
	}
	if len(roles) == 0 {
		return nil, nil
	}

	roleIDs := make([]string, 0, len(roles))
	for id := range roles {
		roleIDs = append(roleIDs, id)
	}
	perms, err := r.permissions.ListByRoles(ctx, uc.AccountID, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: load permissions: %w", err)
	}
	return perms, nil
}
