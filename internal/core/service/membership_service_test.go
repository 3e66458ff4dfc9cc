package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/pkg/ids"
)

type membershipFixture struct {
	*fixture
	svc     ports.MembershipService
	acct    *domain.Account
	owner   *domain.User
	member  *domain.User
	ownerID string
	adminID string
	userID  string
}

func newMembershipFixture(t *testing.T) *membershipFixture {
	t.Helper()
	f := newFixture(t)
	m := &membershipFixture{fixture: f}
	m.svc = NewMembershipService(f.users, f.roles, f.groups, f.audit, zerolog.Nop())
	m.owner = f.register(t, "owner")
	m.acct = f.createAccount(t, m.owner, "Acme")
	m.ownerID = f.roleByName(t, m.acct.ID, domain.RoleOwner).ID
	m.adminID = f.roleByName(t, m.acct.ID, domain.RoleAdmin).ID
	m.userID = f.roleByName(t, m.acct.ID, domain.RoleUser).ID
	m.member = f.register(t, "member")
	f.join(m.member, m.acct.ID, m.userID)
	return m
}

// ctxFor returns a fresh request context for u in the fixture's account.
func (m *membershipFixture) ctxFor(u *domain.User) context.Context {
	return m.as(&domain.UserContext{UserID: u.ID, AccountID: m.acct.ID})
}

func (m *membershipFixture) addGroup(roleIDs ...string) *domain.Group {
	g := &domain.Group{ID: ids.New(), AccountID: m.acct.ID, Name: "group", RoleIDs: roleIDs}
	_ = m.groups.Create(context.Background(), g)
	return g
}

// ---------------------------------------------------------------------------
// Role assignment
// ---------------------------------------------------------------------------

func TestAssignUserRole_Idempotent(t *testing.T) {
	m := newMembershipFixture(t)

	for i := 0; i < 2; i++ {
		if err := m.svc.AssignUserRole(m.ctxFor(m.owner), m.member.ID, m.adminID); err != nil {
			t.Fatalf("assign %d: %v", i, err)
		}
	}
	stored := m.users.stored(m.member.ID)
	if len(stored.RoleIDs) != 2 || !stored.HasRole(m.adminID) {
		t.Fatalf("expected user and admin roles once each, got %v", stored.RoleIDs)
	}
	if n := m.audit.count(domain.AuditMembership); n != 1 {
		t.Fatalf("a no-op assignment must not be audited, got %d events", n)
	}

	for i := 0; i < 2; i++ {
		if err := m.svc.RemoveUserRole(m.ctxFor(m.owner), m.member.ID, m.adminID); err != nil {
			t.Fatalf("remove %d: %v", i, err)
		}
	}
	if m.users.stored(m.member.ID).HasRole(m.adminID) {
		t.Fatalf("admin role should be gone")
	}
}

func TestAssignUserRole_ScopedToActiveAccount(t *testing.T) {
	m := newMembershipFixture(t)
	outsider := m.register(t, "outsider")
	other := m.createAccount(t, outsider, "Elsewhere")
	foreignRole := m.roleByName(t, other.ID, domain.RoleAdmin)

	if err := m.svc.AssignUserRole(m.ctxFor(m.owner), outsider.ID, m.adminID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("non-member: expected user not found, got %v", err)
	}
	if err := m.svc.AssignUserRole(m.ctxFor(m.owner), m.member.ID, foreignRole.ID); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("foreign role: expected role not found, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Sole owner protection
// ---------------------------------------------------------------------------

func TestRemoveUserRole_SoleOwner(t *testing.T) {
	m := newMembershipFixture(t)

	if err := m.svc.RemoveUserRole(m.ctxFor(m.owner), m.owner.ID, m.ownerID); !errors.Is(err, domain.ErrSoleOwner) {
		t.Fatalf("expected sole owner, got %v", err)
	}
	if !m.users.stored(m.owner.ID).HasRole(m.ownerID) {
		t.Fatalf("owner role must be kept")
	}

	if err := m.svc.AssignUserRole(m.ctxFor(m.owner), m.member.ID, m.ownerID); err != nil {
		t.Fatalf("assign second owner: %v", err)
	}
	if err := m.svc.RemoveUserRole(m.ctxFor(m.owner), m.owner.ID, m.ownerID); err != nil {
		t.Fatalf("with a second owner removal must succeed: %v", err)
	}
}

func TestSoleOwner_ThroughGroup(t *testing.T) {
	m := newMembershipFixture(t)
	owners := m.addGroup(m.ownerID)

	if err := m.svc.AddGroupMember(m.ctxFor(m.owner), owners.ID, m.member.ID); err != nil {
		t.Fatalf("add group member: %v", err)
	}
	// Keep update rights once the direct Owner role is gone.
	if err := m.svc.AssignUserRole(m.ctxFor(m.owner), m.owner.ID, m.adminID); err != nil {
		t.Fatalf("assign admin: %v", err)
	}
	if err := m.svc.RemoveUserRole(m.ctxFor(m.owner), m.owner.ID, m.ownerID); err != nil {
		t.Fatalf("group owner remains, removal must succeed: %v", err)
	}

	if err := m.svc.RemoveGroupMember(m.ctxFor(m.owner), owners.ID, m.member.ID); !errors.Is(err, domain.ErrSoleOwner) {
		t.Fatalf("expected sole owner, got %v", err)
	}
	if !m.users.stored(m.member.ID).InGroup(owners.ID) {
		t.Fatalf("group membership must be kept")
	}

	plain := m.addGroup(m.userID)
	if err := m.svc.AddGroupMember(m.ctxFor(m.owner), plain.ID, m.member.ID); err != nil {
		t.Fatalf("add plain group: %v", err)
	}
	if err := m.svc.RemoveGroupMember(m.ctxFor(m.owner), plain.ID, m.member.ID); err != nil {
		t.Fatalf("groups without Owner are unrestricted: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Roles
// ---------------------------------------------------------------------------

func TestDeleteRole(t *testing.T) {
	m := newMembershipFixture(t)

	if err := m.svc.DeleteRole(m.ctxFor(m.owner), m.userID); !errors.Is(err, domain.ErrSystemRole) {
		t.Fatalf("expected system role error, got %v", err)
	}

	custom := &domain.Role{ID: ids.New(), AccountID: m.acct.ID, Name: "auditor"}
	_ = m.roles.Create(context.Background(), custom)
	if err := m.svc.AssignUserRole(m.ctxFor(m.owner), m.member.ID, custom.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := m.svc.DeleteRole(m.ctxFor(m.owner), custom.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if m.users.stored(m.member.ID).HasRole(custom.ID) {
		t.Fatalf("deleted role must be detached from users")
	}
	if err := m.svc.DeleteRole(m.ctxFor(m.owner), custom.ID); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("expected role not found, got %v", err)
	}
}

func TestListRoles(t *testing.T) {
	m := newMembershipFixture(t)

	roles, err := m.svc.ListRoles(m.ctxFor(m.member))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("expected 3 roles, got %d", len(roles))
	}
}

// ---------------------------------------------------------------------------
// Decorators
// ---------------------------------------------------------------------------

func TestMembershipAuthorization_DeniesReadOnlyMember(t *testing.T) {
	m := newMembershipFixture(t)
	ctx := m.ctxFor(m.member)

	calls := []struct {
		name string
		fn   func() error
	}{
		{"assign", func() error { return m.svc.AssignUserRole(ctx, m.member.ID, m.adminID) }},
		{"remove", func() error { return m.svc.RemoveUserRole(ctx, m.owner.ID, m.ownerID) }},
		{"add group", func() error { return m.svc.AddGroupMember(ctx, m.addGroup().ID, m.member.ID) }},
		{"delete role", func() error { return m.svc.DeleteRole(ctx, m.adminID) }},
	}
	for _, c := range calls {
		if err := c.fn(); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", c.name, err)
		}
	}
	if m.users.stored(m.member.ID).HasRole(m.adminID) {
		t.Fatalf("a denied call must not reach the store")
	}
}

func TestMembershipCore_RequiresActiveAccount(t *testing.T) {
	m := newMembershipFixture(t)
	core := newMembershipCore(m.users, m.roles, m.groups, m.audit)

	if _, err := core.ListRoles(m.as(&domain.UserContext{UserID: m.owner.ID})); !errors.Is(err, domain.ErrNoActiveAccount) {
		t.Fatalf("expected no active account, got %v", err)
	}
	if _, err := core.ListRoles(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

type tracingMembership struct {
	ports.MembershipService
	name  string
	trace *[]string
}

func (t *tracingMembership) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	*t.trace = append(*t.trace, t.name)
	return t.MembershipService.ListRoles(ctx)
}

func TestChainMembership_Order(t *testing.T) {
	var trace []string
	mw := func(name string) MembershipMiddleware {
		return func(next ports.MembershipService) ports.MembershipService {
			return &tracingMembership{MembershipService: next, name: name, trace: &trace}
		}
	}
	base := &tracingMembership{MembershipService: stubMembership{}, name: "base", trace: &trace}

	svc := ChainMembership(base, mw("outer"), mw("inner"))
	if _, err := svc.ListRoles(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"outer", "inner", "base"}
	if len(trace) != len(want) {
		t.Fatalf("expected %v, got %v", want, trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, trace)
		}
	}
}

type stubMembership struct{ ports.MembershipService }

func (stubMembership) ListRoles(context.Context) ([]*domain.Role, error) { return nil, nil }
