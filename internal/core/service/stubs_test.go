package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/infrastructure/cryptoprovider"
)

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	getCalls int
	getErr   error
	saveErr  error
	// onFind runs after FindByUsername returns its copy, standing in for a
	// writer that lands between a caller's read and its write.
	onFind func()
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) Get(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	var found *domain.User
	for _, u := range r.users {
		if u.Username == username {
			found = u.Clone()
			break
		}
	}
	r.mu.Unlock()
	if found == nil {
		return nil, domain.ErrUserNotFound
	}
	if r.onFind != nil {
		r.onFind()
	}
	return found, nil
}

func (r *stubUserRepo) ListByAccount(_ context.Context, accountID string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if u.IsMemberOf(accountID) {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return domain.ErrUserExists
		}
	}
	r.users[user.ID] = user.Clone()
	return nil
}

// mutate applies fn to the stored user under the lock, like a single-document
// update on the real store.
func (r *stubUserRepo) mutate(id string, fn func(u *domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (r *stubUserRepo) RecordLoginFailure(_ context.Context, id string, at, since time.Time) (int, error) {
	var count int
	err := r.mutate(id, func(u *domain.User) {
		if u.LastFailedLoginAt == nil || u.LastFailedLoginAt.Before(since) {
			u.FailedLoginAttempts = 0
		}
		u.FailedLoginAttempts++
		u.LastFailedLoginAt = &at
		u.UpdatedAt = at
		count = u.FailedLoginAttempts
	})
	return count, err
}

func (r *stubUserRepo) RecordLoginSuccess(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.FailedLoginAttempts = 0
		u.LastFailedLoginAt = nil
		u.LastLoginAt = &at
		u.UpdatedAt = at
	})
}

func (r *stubUserRepo) SetPassword(_ context.Context, id, passwordHash string, at time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		u.PasswordHash = passwordHash
		u.FailedLoginAttempts = 0
		u.LastFailedLoginAt = nil
		u.UpdatedAt = at
	})
}

func (r *stubUserRepo) UpdateMemberships(_ context.Context, id string, change domain.MembershipChange, at time.Time) error {
	return r.mutate(id, func(u *domain.User) {
		change.Apply(u)
		u.UpdatedAt = at
	})
}

func (r *stubUserRepo) put(u *domain.User) { r.users[u.ID] = u.Clone() }

func (r *stubUserRepo) stored(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].Clone()
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	accounts map[string]*domain.Account
	listErr  error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *stubAccountRepo) Get(_ context.Context, id string) (*domain.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *stubAccountRepo) ListByIDs(_ context.Context, ids []string) ([]*domain.Account, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*domain.Account
	for _, id := range ids {
		if a, ok := r.accounts[id]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) error {
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

// ---------------------------------------------------------------------------
// Roles
// ---------------------------------------------------------------------------

type stubRoleRepo struct {
	roles map[string]*domain.Role
	perms *stubPermissionRepo
	users *stubUserRepo
}

func newStubRoleRepo() *stubRoleRepo {
	return &stubRoleRepo{roles: make(map[string]*domain.Role)}
}

func (r *stubRoleRepo) Get(_ context.Context, accountID, id string) (*domain.Role, error) {
	role, ok := r.roles[id]
	if !ok || role.AccountID != accountID {
		return nil, domain.ErrRoleNotFound
	}
	cp := *role
	return &cp, nil
}

func (r *stubRoleRepo) FindByName(_ context.Context, accountID, name string) (*domain.Role, error) {
	for _, role := range r.roles {
		if role.AccountID == accountID && role.Name == name {
			cp := *role
			return &cp, nil
		}
	}
	return nil, domain.ErrRoleNotFound
}

func (r *stubRoleRepo) ListByAccount(_ context.Context, accountID string) ([]*domain.Role, error) {
	var out []*domain.Role
	for _, role := range r.roles {
		if role.AccountID == accountID {
			cp := *role
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubRoleRepo) Create(_ context.Context, role *domain.Role) error {
	cp := *role
	r.roles[role.ID] = &cp
	return nil
}

func (r *stubRoleRepo) Delete(_ context.Context, accountID, id string) error {
	role, ok := r.roles[id]
	if !ok || role.AccountID != accountID {
		return domain.ErrRoleNotFound
	}
	delete(r.roles, id)
	if r.users != nil {
		for _, u := range r.users.users {
			u.RoleIDs, _ = domain.Remove(u.RoleIDs, id)
		}
	}
	if r.perms != nil {
		for i := range r.perms.perms {
			r.perms.perms[i].RoleIDs, _ = domain.Remove(r.perms.perms[i].RoleIDs, id)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Groups
// ---------------------------------------------------------------------------

type stubGroupRepo struct {
	groups map[string]*domain.Group
}

func newStubGroupRepo() *stubGroupRepo {
	return &stubGroupRepo{groups: make(map[string]*domain.Group)}
}

func cloneGroup(g *domain.Group) *domain.Group {
	cp := *g
	cp.RoleIDs = append([]string(nil), g.RoleIDs...)
	return &cp
}

func (r *stubGroupRepo) Get(_ context.Context, accountID, id string) (*domain.Group, error) {
	g, ok := r.groups[id]
	if !ok || g.AccountID != accountID {
		return nil, domain.ErrGroupNotFound
	}
	return cloneGroup(g), nil
}

func (r *stubGroupRepo) ListByIDs(_ context.Context, accountID string, ids []string) ([]*domain.Group, error) {
	var out []*domain.Group
	for _, id := range ids {
		if g, ok := r.groups[id]; ok && g.AccountID == accountID {
			out = append(out, cloneGroup(g))
		}
	}
	return out, nil
}

func (r *stubGroupRepo) Create(_ context.Context, g *domain.Group) error {
	r.groups[g.ID] = cloneGroup(g)
	return nil
}

func (r *stubGroupRepo) Update(_ context.Context, g *domain.Group) error {
	if _, ok := r.groups[g.ID]; !ok {
		return domain.ErrGroupNotFound
	}
	r.groups[g.ID] = cloneGroup(g)
	return nil
}

// ---------------------------------------------------------------------------
// Permissions
// ---------------------------------------------------------------------------

type stubPermissionRepo struct {
	perms     []domain.Permission
	listErr   error
	listCalls int
}

func (r *stubPermissionRepo) ListByRoles(_ context.Context, accountID string, roleIDs []string) ([]domain.Permission, error) {
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Permission
	for _, p := range r.perms {
		if p.AccountID != accountID {
			continue
		}
		for _, id := range roleIDs {
			if contains(p.RoleIDs, id) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (r *stubPermissionRepo) Create(_ context.Context, p *domain.Permission) error {
	cp := *p
	cp.RoleIDs = append([]string(nil), p.RoleIDs...)
	r.perms = append(r.perms, cp)
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Tracked tokens
// ---------------------------------------------------------------------------

type stubTokenRepo struct {
	mu        sync.Mutex
	tokens    map[string]*domain.TrackedAuthToken
	createErr error
	findErr   error
	findCalls int
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{tokens: make(map[string]*domain.TrackedAuthToken)}
}

func tokenKey(userID, tokenID string) string { return userID + "/" + tokenID }

func (r *stubTokenRepo) Create(_ context.Context, t *domain.TrackedAuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *t
	r.tokens[tokenKey(t.UserID, t.TokenID)] = &cp
	return nil
}

func (r *stubTokenRepo) FindActive(_ context.Context, userID, tokenID string, now time.Time) (*domain.TrackedAuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	t, ok := r.tokens[tokenKey(userID, tokenID)]
	if !ok || !t.Active(now) {
		return nil, domain.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *stubTokenRepo) Revoke(_ context.Context, userID, tokenID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenKey(userID, tokenID)]
	if !ok || t.RevokedAt != nil || !at.Before(t.ExpiresAt) {
		return false, nil
	}
	revokedAt := at
	t.RevokedAt = &revokedAt
	return true, nil
}

func (r *stubTokenRepo) RevokeAllActive(_ context.Context, userID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.UserID == userID && t.Active(at) {
			revokedAt := at
			t.RevokedAt = &revokedAt
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *recordingAudit) Record(_ context.Context, e domain.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) count(t domain.AuditEventType) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	users       *stubUserRepo
	accounts    *stubAccountRepo
	roles       *stubRoleRepo
	groups      *stubGroupRepo
	permissions *stubPermissionRepo
	tokens      *stubTokenRepo
	audit       *recordingAudit

	keys      *KeyMaterialProvider
	issuer    *TokenIssuer
	validator *TokenValidator
	revoker   *TokenRevoker
	resolver  *PermissionResolver
	auth      *AuthService
	clock     time.Time
}

// newFixture wires every service over in-memory repositories with a
// controllable clock.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	systemKey, err := cryptoprovider.NewStaticSystemKey(make([]byte, cryptoprovider.KeySize), 1, cryptoprovider.CodeAES)
	if err != nil {
		t.Fatalf("system key: %v", err)
	}
	keys, err := NewKeyMaterialProvider(systemKey, cryptoprovider.NewRegistry(), KeyAlgorithms{
		Symmetric:  cryptoprovider.CodeAES,
		Encryption: cryptoprovider.CodeX25519,
		Signature:  cryptoprovider.CodeES256,
	}, 16)
	if err != nil {
		t.Fatalf("key material provider: %v", err)
	}

	f := &fixture{
		users:       newStubUserRepo(),
		accounts:    newStubAccountRepo(),
		roles:       newStubRoleRepo(),
		groups:      newStubGroupRepo(),
		permissions: &stubPermissionRepo{},
		tokens:      newStubTokenRepo(),
		audit:       &recordingAudit{},
		keys:        keys,
		clock:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.roles.users = f.users
	f.roles.perms = f.permissions

	opts := TokenOptions{TTL: time.Hour, Issuer: "iam-test", ClockSkew: 5 * time.Second}
	now := func() time.Time { return f.clock }

	f.issuer = NewTokenIssuer(f.users, f.accounts, f.tokens, keys, opts, zerolog.Nop())
	f.issuer.now = now
	f.validator = NewTokenValidator(f.users, f.tokens, keys, opts, zerolog.Nop())
	f.validator.now = now
	f.revoker = NewTokenRevoker(f.tokens, zerolog.Nop())
	f.revoker.now = now
	f.resolver = NewPermissionResolver(f.users, f.groups, f.permissions)
	f.auth = NewAuthService(f.users, cryptoprovider.NewBcryptHasher(4), keys, f.issuer, f.revoker, f.audit, LoginPolicy{MaxFailedAttempts: 3, LockoutDuration: 15 * time.Minute}, zerolog.Nop())
	f.auth.now = now
	return f
}

// advance moves the shared clock forward.
func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

// register creates a user with a password through the auth service.
func (f *fixture) register(t *testing.T, username string) *domain.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), username, username+"@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

// as returns a context carrying a fresh Authorizer for uc.
func (f *fixture) as(uc *domain.UserContext) context.Context {
	return WithAuthorizer(context.Background(), NewAuthorizer(f.resolver, uc, f.audit, zerolog.Nop()))
}

// createAccount makes owner the Owner of a new account through the account service.
func (f *fixture) createAccount(t *testing.T, owner *domain.User, name string) *domain.Account {
	t.Helper()
	svc := NewAccountService(f.users, f.accounts, f.roles, f.permissions, f.keys, zerolog.Nop())
	a, err := svc.CreateAccount(f.as(&domain.UserContext{UserID: owner.ID}), name)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func (f *fixture) roleByName(t *testing.T, accountID, name string) *domain.Role {
	t.Helper()
	r, err := f.roles.FindByName(context.Background(), accountID, name)
	if err != nil {
		t.Fatalf("role %s: %v", name, err)
	}
	return r
}

// join adds u to accountID with the given role ids.
func (f *fixture) join(u *domain.User, accountID string, roleIDs ...string) {
	stored := f.users.stored(u.ID)
	stored.AccountIDs = domain.AppendUnique(stored.AccountIDs, accountID)
	for _, id := range roleIDs {
		stored.RoleIDs = domain.AppendUnique(stored.RoleIDs, id)
	}
	f.users.put(stored)
}
