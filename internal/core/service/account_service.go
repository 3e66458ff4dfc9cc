package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/pkg/ids"
)

// systemRoleOrder fixes the seeding order of system roles.
var systemRoleOrder = []string{domain.RoleOwner, domain.RoleAdmin, domain.RoleUser}

type accountService struct {
	users       ports.UserRepository
	accounts    ports.AccountRepository
	roles       ports.RoleRepository
	permissions ports.PermissionRepository
	keys        *KeyMaterialProvider
	now         func() time.Time
	log         zerolog.Logger
}

// NewAccountService returns an AccountService implementation.
func NewAccountService(
	users ports.UserRepository,
	accounts ports.AccountRepository,
	roles ports.RoleRepository,
	permissions ports.PermissionRepository,
	keys *KeyMaterialProvider,
	log zerolog.Logger,
) ports.AccountService {
	return &accountService{
		users:       users,
		accounts:    accounts,
		roles:       roles,
		permissions: permissions,
		keys:        keys,
		now:         time.Now,
		log:         log,
	}
}

// CreateAccount creates a tenant owned by the caller and seeds its
// system-defined roles.
func (s *accountService) CreateAccount(ctx context.Context, name string) (*domain.Account, error) {
	uc := UserContextFrom(ctx)
	if uc == nil {
		return nil, domain.ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: account name is required", domain.ErrInvalidInput)
	}

	owner, err := s.users.Get(ctx, uc.UserID)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	// 1. Account with its own keys.
	now := s.now().UTC()
	account := &domain.Account{ID: ids.New(), Name: name, CreatedAt: now, UpdatedAt: now}
	secret, err := s.keys.CreateSymmetricKey(ctx, domain.KeyUsageEncryption)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	account.SetSymmetricKey(secret)
	pair, err := s.keys.CreateAsymmetricKeyPair(ctx, domain.KeyUsageEncryption)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	account.SetAsymmetricKey(pair)
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	// 2. System roles, one ALL permission row each.
	var ownerRoleID string
	for _, roleName := range systemRoleOrder {
		role := &domain.Role{
			ID:              ids.New(),
			AccountID:       account.ID,
			Name:            roleName,
			IsSystemDefined: true,
			CreatedAt:       now,
		}
		if err := s.roles.Create(ctx, role); err != nil {
			return nil, fmt.Errorf("create account: seed role %s: %w", roleName, err)
		}
		perm := &domain.Permission{
			ID:           ids.New(),
			AccountID:    account.ID,
			ResourceType: domain.ResourceTypeAll,
			ResourceID:   domain.AllInstances,
			Actions:      domain.SystemRoleGrants[roleName],
			RoleIDs:      []string{role.ID},
		}
		if err := s.permissions.Create(ctx, perm); err != nil {
			return nil, fmt.Errorf("create account: seed permission %s: %w", roleName, err)
		}
		if roleName == domain.RoleOwner {
			ownerRoleID = role.ID
		}
	}

	// 3. Caller becomes owner.
	change := domain.MembershipChange{
		AddAccountIDs: []string{account.ID},
		AddRoleIDs:    []string{ownerRoleID},
	}
	if err := s.users.UpdateMemberships(ctx, owner.ID, change, now); err != nil {
		return nil, fmt.Errorf("create account: assign owner: %w", err)
	}

	s.log.Info().Str("account_id", account.ID).Str("owner_id", owner.ID).Msg("account created")
	return account, nil
}

// ListAccounts returns the accounts the caller may switch into and refreshes
// the caller's UserContext.Accounts with them.
func (s *accountService) ListAccounts(ctx context.Context) ([]domain.AccountSummary, error) {
	uc := UserContextFrom(ctx)
	if uc == nil {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.users.Get(ctx, uc.UserID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts, err := s.accounts.ListByIDs(ctx, user.AccountIDs)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]domain.AccountSummary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, domain.AccountSummary{ID: a.ID, Name: a.Name})
	}
	uc.Accounts = out
	return out, nil
}
