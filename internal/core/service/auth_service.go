package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/pkg/ids"
)

const (
	minPasswordLength      = 8
	defaultLockoutDuration = 15 * time.Minute
)

// LoginPolicy bounds password guessing. A user with MaxFailedAttempts
// failures inside LockoutDuration of the last one is locked until that
// window has passed. MaxFailedAttempts <= 0 disables lockout.
type LoginPolicy struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
}

// AuthService implements registration, sign-in and credential lifecycle.
type AuthService struct {
	users   ports.UserRepository
	hasher  ports.PasswordHasher
	keys    *KeyMaterialProvider
	issuer  *TokenIssuer
	revoker *TokenRevoker
	audit   ports.AuditSink
	policy  LoginPolicy
	now     func() time.Time
	log     zerolog.Logger
}

// NewAuthService wires the service.
func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	keys *KeyMaterialProvider,
	issuer *TokenIssuer,
	revoker *TokenRevoker,
	audit ports.AuditSink,
	policy LoginPolicy,
	log zerolog.Logger,
) *AuthService {
	if policy.LockoutDuration <= 0 {
		policy.LockoutDuration = defaultLockoutDuration
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		keys:    keys,
		issuer:  issuer,
		revoker: revoker,
		audit:   audit,
		policy:  policy,
		now:     time.Now,
		log:     log,
	}
}

// Register creates a user together with its signature, encryption and
// symmetric keys. A user without a signature key could never sign in.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           ids.New(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	signing, err := s.keys.CreateAsymmetricKeyPair(ctx, domain.KeyUsageSignature)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	user.SetAsymmetricKey(signing)
	encryption, err := s.keys.CreateAsymmetricKeyPair(ctx, domain.KeyUsageEncryption)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	user.SetAsymmetricKey(encryption)
	secret, err := s.keys.CreateSymmetricKey(ctx, domain.KeyUsageEncryption)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	user.SetSymmetricKey(secret)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login verifies the password and issues a token, scoped to accountID when
// it is not empty. Unknown users, disabled users and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password, accountID string) (*domain.TokenIssueResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	// 1. Credentials.
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		recordAudit(ctx, s.audit, domain.AuditEvent{Type: domain.AuditLoginFailed, Detail: "unknown user"})
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if user.Disabled {
		recordAudit(ctx, s.audit, domain.AuditEvent{Type: domain.AuditLoginFailed, UserID: user.ID, Detail: "disabled"})
		return nil, domain.ErrInvalidCredentials
	}
	now := s.now().UTC()
	if user.LockedAt(now, s.policy.MaxFailedAttempts, s.policy.LockoutDuration) {
		recordAudit(ctx, s.audit, domain.AuditEvent{Type: domain.AuditLoginFailed, UserID: user.ID, Detail: "locked"})
		return nil, domain.ErrUserLocked
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			return nil, fmt.Errorf("login: %w", err)
		}
		// 2. Failure counter. Failures older than the lockout window no
		// longer count. Failing to persist it must not reveal anything.
		since := now.Add(-s.policy.LockoutDuration)
		if _, uerr := s.users.RecordLoginFailure(ctx, user.ID, now, since); uerr != nil {
			s.log.Warn().Err(uerr).Str("user_id", user.ID).Msg("failed to record login failure")
		}
		recordAudit(ctx, s.audit, domain.AuditEvent{Type: domain.AuditLoginFailed, UserID: user.ID, Detail: "bad password"})
		return nil, domain.ErrInvalidCredentials
	}

	// 3. Success resets the counter.
	if err := s.users.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	// 4. Token.
	res, err := s.issue(ctx, user.ID, accountID)
	if err != nil {
		return nil, err
	}
	recordAudit(ctx, s.audit, domain.AuditEvent{Type: domain.AuditLoginSucceeded, UserID: user.ID, AccountID: accountID})
	return res, nil
}

// SwitchAccount issues a token for the caller scoped to accountID and
// revokes the token the caller presented.
func (s *AuthService) SwitchAccount(ctx context.Context, accountID string) (*domain.TokenIssueResult, error) {
	uc := UserContextFrom(ctx)
	if uc == nil {
		return nil, domain.ErrUnauthorized
	}
	res, err := s.issue(ctx, uc.UserID, accountID)
	if err != nil {
		return nil, err
	}
	if uc.TokenID != "" {
		if _, err := s.revoker.RevokeOne(ctx, uc.UserID, uc.TokenID); err != nil {
			s.log.Warn().Err(err).Str("user_id", uc.UserID).Msg("failed to revoke token after account switch")
		}
	}
	return res, nil
}

// Logout revokes the token the caller presented.
func (s *AuthService) Logout(ctx context.Context) error {
	uc := UserContextFrom(ctx)
	if uc == nil {
		return domain.ErrUnauthorized
	}
	revoked, err := s.revoker.RevokeOne(ctx, uc.UserID, uc.TokenID)
	if err != nil {
		return err
	}
	if revoked {
		recordAudit(ctx, s.audit, domain.AuditEvent{Type: domain.AuditTokenRevoked, UserID: uc.UserID, Detail: uc.TokenID})
	}
	return nil
}

// LogoutAll revokes every active token of the caller.
func (s *AuthService) LogoutAll(ctx context.Context) error {
	uc := UserContextFrom(ctx)
	if uc == nil {
		return domain.ErrUnauthorized
	}
	if err := s.revoker.RevokeAll(ctx, uc.UserID); err != nil {
		return err
	}
	recordAudit(ctx, s.audit, domain.AuditEvent{Type: domain.AuditTokensRevoked, UserID: uc.UserID})
	return nil
}

// ChangePassword is allowed on the caller's own record, or on a member of the
// caller's active account when the caller holds Update on that user. Every
// token of the target user is revoked afterwards.
func (s *AuthService) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	authz := AuthorizerFrom(ctx)
	self := authz.IsAuthorizedForSelf(userID)
	if !self && authz.UserContext() == nil {
		return domain.ErrUnauthorized
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if !self && errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	if !self {
		if !user.IsMemberOf(authz.UserContext().AccountID) {
			return domain.ErrUnauthorized
		}
		ok, err := authz.IsAuthorized(ctx, domain.ActionUpdate, domain.ResourceUser, domain.InstanceID(userID))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUnauthorized
		}
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, userID, hash, s.now().UTC()); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.revoker.RevokeAll(ctx, userID); err != nil {
		return err
	}

	actor := ""
	if uc := authz.UserContext(); uc != nil {
		actor = uc.UserID
	}
	recordAudit(ctx, s.audit, domain.AuditEvent{
		Type:         domain.AuditPasswordChange,
		UserID:       actor,
		ResourceType: domain.ResourceUser,
		ResourceID:   userID,
	})
	return nil
}

// issue maps issuance statuses onto domain errors for HTTP callers.
func (s *AuthService) issue(ctx context.Context, userID, accountID string) (*domain.TokenIssueResult, error) {
	res, err := s.issuer.IssueToken(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}
	switch res.Status {
	case domain.TokenIssued:
		return &res, nil
	case domain.TokenIssueUserNotFound:
		return nil, domain.ErrInvalidCredentials
	case domain.TokenIssueAccountNotFound:
		return nil, domain.ErrAccountNotFound
	case domain.TokenIssueSignatureKeyNotFound:
		return nil, domain.ErrSignatureKeyNotFound
	}
	return nil, fmt.Errorf("issue token: unexpected status %s", res.Status)
}
