package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
)

// membershipService is the undecorated implementation. It trusts its caller
// to have authorized the operation; see NewMembershipService.
type membershipService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	groups ports.GroupRepository
	audit  ports.AuditSink
	now    func() time.Time
}

func newMembershipCore(users ports.UserRepository, roles ports.RoleRepository, groups ports.GroupRepository, audit ports.AuditSink) *membershipService {
	return &membershipService{users: users, roles: roles, groups: groups, audit: audit, now: time.Now}
}

func (s *membershipService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	uc, err := activeAccount(ctx)
	if err != nil {
		return nil, err
	}
	return s.roles.ListByAccount(ctx, uc.AccountID)
}

func (s *membershipService) AssignUserRole(ctx context.Context, userID, roleID string) error {
	uc, err := activeAccount(ctx)
	if err != nil {
		return err
	}
	if _, err := s.roles.Get(ctx, uc.AccountID, roleID); err != nil {
		return err
	}
	user, err := s.member(ctx, uc.AccountID, userID)
	if err != nil {
		return err
	}
	if user.HasRole(roleID) {
		return nil
	}
	change := domain.MembershipChange{AddRoleIDs: []string{roleID}}
	return s.save(ctx, uc, user.ID, change, "role assigned", roleID)
}

// RemoveUserRole refuses to take the Owner role from the account's last owner.
func (s *membershipService) RemoveUserRole(ctx context.Context, userID, roleID string) error {
	uc, err := activeAccount(ctx)
	if err != nil {
		return err
	}
	role, err := s.roles.Get(ctx, uc.AccountID, roleID)
	if err != nil {
		return err
	}
	user, err := s.member(ctx, uc.AccountID, userID)
	if err != nil {
		return err
	}
	if !user.HasRole(roleID) {
		return nil
	}

	change := domain.MembershipChange{RemoveRoleIDs: []string{roleID}}
	after := user.Clone()
	change.Apply(after)
	if isOwnerRole(role) {
		if err := s.ensureOwnerRemains(ctx, uc.AccountID, role.ID, after); err != nil {
			return err
		}
	}
	return s.save(ctx, uc, user.ID, change, "role removed", roleID)
}

func (s *membershipService) AddGroupMember(ctx context.Context, groupID, userID string) error {
	uc, err := activeAccount(ctx)
	if err != nil {
		return err
	}
	if _, err := s.groups.Get(ctx, uc.AccountID, groupID); err != nil {
		return err
	}
	user, err := s.member(ctx, uc.AccountID, userID)
	if err != nil {
		return err
	}
	if user.InGroup(groupID) {
		return nil
	}
	change := domain.MembershipChange{AddGroupIDs: []string{groupID}}
	return s.save(ctx, uc, user.ID, change, "group member added", groupID)
}

// RemoveGroupMember refuses to remove the last owner's only path to the
// Owner role.
func (s *membershipService) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	uc, err := activeAccount(ctx)
	if err != nil {
		return err
	}
	group, err := s.groups.Get(ctx, uc.AccountID, groupID)
	if err != nil {
		return err
	}
	user, err := s.member(ctx, uc.AccountID, userID)
	if err != nil {
		return err
	}
	if !user.InGroup(groupID) {
		return nil
	}

	change := domain.MembershipChange{RemoveGroupIDs: []string{groupID}}
	after := user.Clone()
	change.Apply(after)
	owner, err := s.roles.FindByName(ctx, uc.AccountID, domain.RoleOwner)
	if err != nil && !errors.Is(err, domain.ErrRoleNotFound) {
		return err
	}
	if owner != nil && group.GrantsRole(owner.ID) {
		if err := s.ensureOwnerRemains(ctx, uc.AccountID, owner.ID, after); err != nil {
			return err
		}
	}
	return s.save(ctx, uc, user.ID, change, "group member removed", groupID)
}

func (s *membershipService) DeleteRole(ctx context.Context, roleID string) error {
	uc, err := activeAccount(ctx)
	if err != nil {
		return err
	}
	role, err := s.roles.Get(ctx, uc.AccountID, roleID)
	if err != nil {
		return err
	}
	if role.IsSystemDefined {
		return domain.ErrSystemRole
	}
	if err := s.roles.Delete(ctx, uc.AccountID, roleID); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	recordAudit(ctx, s.audit, domain.AuditEvent{
		Type:         domain.AuditMembership,
		UserID:       uc.UserID,
		AccountID:    uc.AccountID,
		Action:       domain.ActionDelete,
		ResourceType: domain.ResourceRole,
		ResourceID:   roleID,
		Detail:       "role deleted",
	})
	return nil
}

// ensureOwnerRemains fails with domain.ErrSoleOwner unless some member of the
// account still holds ownerRoleID, directly or through a group, once changed
// replaces its stored version.
func (s *membershipService) ensureOwnerRemains(ctx context.Context, accountID, ownerRoleID string, changed *domain.User) error {
	members, err := s.users.ListByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("owner check: %w", err)
	}

	var groupIDs []string
	for i, u := range members {
		if u.ID == changed.ID {
			members[i] = changed
			u = changed
		}
		for _, g := range u.GroupIDs {
			groupIDs = domain.AppendUnique(groupIDs, g)
		}
	}
	ownerGroups := make(map[string]struct{})
	if len(groupIDs) > 0 {
		groups, err := s.groups.ListByIDs(ctx, accountID, groupIDs)
		if err != nil {
			return fmt.Errorf("owner check: %w", err)
		}
		for _, g := range groups {
			if g.GrantsRole(ownerRoleID) {
				ownerGroups[g.ID] = struct{}{}
			}
		}
	}

	for _, u := range members {
		if u.HasRole(ownerRoleID) {
			return nil
		}
		for _, g := range u.GroupIDs {
			if _, ok := ownerGroups[g]; ok {
				return nil
			}
		}
	}
	return domain.ErrSoleOwner
}

// member loads userID and hides users outside accountID.
func (s *membershipService) member(ctx context.Context, accountID, userID string) (*domain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsMemberOf(accountID) {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// save writes only the membership delta so concurrent writes to other fields
// of the same user survive.
func (s *membershipService) save(ctx context.Context, uc *domain.UserContext, userID string, change domain.MembershipChange, detail, target string) error {
	if err := s.users.UpdateMemberships(ctx, userID, change, s.now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	recordAudit(ctx, s.audit, domain.AuditEvent{
		Type:         domain.AuditMembership,
		UserID:       uc.UserID,
		AccountID:    uc.AccountID,
		Action:       domain.ActionUpdate,
		ResourceType: domain.ResourceUser,
		ResourceID:   userID,
		Detail:       detail + " " + target,
	})
	return nil
}

func activeAccount(ctx context.Context) (*domain.UserContext, error) {
	uc := UserContextFrom(ctx)
	if uc == nil {
		return nil, domain.ErrUnauthorized
	}
	if !uc.HasActiveAccount() {
		return nil, domain.ErrNoActiveAccount
	}
	return uc, nil
}

func isOwnerRole(r *domain.Role) bool {
	return r.IsSystemDefined && r.Name == domain.RoleOwner
}
