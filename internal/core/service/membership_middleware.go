package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
)

// MembershipMiddleware wraps a MembershipService with a cross-cutting concern.
type MembershipMiddleware func(ports.MembershipService) ports.MembershipService

// ChainMembership applies mws around base. The first middleware is outermost.
func ChainMembership(base ports.MembershipService, mws ...MembershipMiddleware) ports.MembershipService {
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// NewMembershipService returns the membership service wrapped with logging
// and authorization, in that order.
func NewMembershipService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	groups ports.GroupRepository,
	audit ports.AuditSink,
	log zerolog.Logger,
) ports.MembershipService {
	return ChainMembership(
		newMembershipCore(users, roles, groups, audit),
		WithMembershipLogging(log),
		WithMembershipAuthorization(),
	)
}

// ---------------------------------------------------------------------------
// Authorization
// ---------------------------------------------------------------------------

// WithMembershipAuthorization checks every call against the Authorizer in
// ctx. Denials surface as domain.ErrUnauthorized.
func WithMembershipAuthorization() MembershipMiddleware {
	return func(next ports.MembershipService) ports.MembershipService {
		return &authorizedMembership{next: next}
	}
}

type authorizedMembership struct {
	next ports.MembershipService
}

func (m *authorizedMembership) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	if err := authorize(ctx, domain.ActionRead, domain.ResourceRole, domain.AllInstances); err != nil {
		return nil, err
	}
	return m.next.ListRoles(ctx)
}

func (m *authorizedMembership) AssignUserRole(ctx context.Context, userID, roleID string) error {
	if err := authorize(ctx, domain.ActionUpdate, domain.ResourceUser, domain.InstanceID(userID)); err != nil {
		return err
	}
	return m.next.AssignUserRole(ctx, userID, roleID)
}

func (m *authorizedMembership) RemoveUserRole(ctx context.Context, userID, roleID string) error {
	if err := authorize(ctx, domain.ActionUpdate, domain.ResourceUser, domain.InstanceID(userID)); err != nil {
		return err
	}
	return m.next.RemoveUserRole(ctx, userID, roleID)
}

func (m *authorizedMembership) AddGroupMember(ctx context.Context, groupID, userID string) error {
	if err := authorize(ctx, domain.ActionUpdate, domain.ResourceGroup, domain.InstanceID(groupID)); err != nil {
		return err
	}
	return m.next.AddGroupMember(ctx, groupID, userID)
}

func (m *authorizedMembership) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	if err := authorize(ctx, domain.ActionUpdate, domain.ResourceGroup, domain.InstanceID(groupID)); err != nil {
		return err
	}
	return m.next.RemoveGroupMember(ctx, groupID, userID)
}

func (m *authorizedMembership) DeleteRole(ctx context.Context, roleID string) error {
	if err := authorize(ctx, domain.ActionDelete, domain.ResourceRole, domain.InstanceID(roleID)); err != nil {
		return err
	}
	return m.next.DeleteRole(ctx, roleID)
}

func authorize(ctx context.Context, action domain.Action, resourceType string, id domain.ResourceID) error {
	ok, err := AuthorizerFrom(ctx).IsAuthorized(ctx, action, resourceType, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUnauthorized
	}
	return nil
}

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

// WithMembershipLogging logs each call with its outcome and duration.
func WithMembershipLogging(log zerolog.Logger) MembershipMiddleware {
	return func(next ports.MembershipService) ports.MembershipService {
		return &loggedMembership{next: next, log: log}
	}
}

type loggedMembership struct {
	next ports.MembershipService
	log  zerolog.Logger
}

func (m *loggedMembership) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	start := time.Now()
	roles, err := m.next.ListRoles(ctx)
	m.observe(ctx, "list_roles", start, err).Int("count", len(roles)).Send()
	return roles, err
}

func (m *loggedMembership) AssignUserRole(ctx context.Context, userID, roleID string) error {
	start := time.Now()
	err := m.next.AssignUserRole(ctx, userID, roleID)
	m.observe(ctx, "assign_user_role", start, err).Str("target_user_id", userID).Str("role_id", roleID).Send()
	return err
}

func (m *loggedMembership) RemoveUserRole(ctx context.Context, userID, roleID string) error {
	start := time.Now()
	err := m.next.RemoveUserRole(ctx, userID, roleID)
	m.observe(ctx, "remove_user_role", start, err).Str("target_user_id", userID).Str("role_id", roleID).Send()
	return err
}

func (m *loggedMembership) AddGroupMember(ctx context.Context, groupID, userID string) error {
	start := time.Now()
	err := m.next.AddGroupMember(ctx, groupID, userID)
	m.observe(ctx, "add_group_member", start, err).Str("group_id", groupID).Str("target_user_id", userID).Send()
	return err
}

func (m *loggedMembership) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	start := time.Now()
	err := m.next.RemoveGroupMember(ctx, groupID, userID)
	m.observe(ctx, "remove_group_member", start, err).Str("group_id", groupID).Str("target_user_id", userID).Send()
	return err
}

func (m *loggedMembership) DeleteRole(ctx context.Context, roleID string) error {
	start := time.Now()
	err := m.next.DeleteRole(ctx, roleID)
	m.observe(ctx, "delete_role", start, err).Str("role_id", roleID).Send()
	return err
}

// observe starts an event at Info, or Warn when err is set. Callers add
// fields and call Send.
func (m *loggedMembership) observe(ctx context.Context, op string, start time.Time, err error) *zerolog.Event {
	ev := m.log.Info()
	if err != nil {
		ev = m.log.Warn().Err(err)
	}
	if uc := UserContextFrom(ctx); uc != nil {
		ev = ev.Str("user_id", uc.UserID).Str("account_id", uc.AccountID)
	}
	return ev.Str("op", op).Dur("duration", time.Since(start))
}
