package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/pkg/ids"
	"github.com/99minutos/iam-engine/internal/pkg/metrics"
)

// TokenIssuer mints tokens signed with the user's own signature key and
// records each one server side.
type TokenIssuer struct {
	users    ports.UserRepository
	accounts ports.AccountRepository
	tokens   ports.TrackedTokenRepository
	keys     *KeyMaterialProvider
	opts     TokenOptions
	now      func() time.Time
	log      zerolog.Logger
}

func NewTokenIssuer(
	users ports.UserRepository,
	accounts ports.AccountRepository,
	tokens ports.TrackedTokenRepository,
	keys *KeyMaterialProvider,
	opts TokenOptions,
	log zerolog.Logger,
) *TokenIssuer {
	return &TokenIssuer{
		users:    users,
		accounts: accounts,
		tokens:   tokens,
		keys:     keys,
		opts:     opts.withDefaults(),
		now:      time.Now,
		log:      log,
	}
}

// IssueToken signs a token for userID, scoped to accountID when it is not
// empty. Business outcomes are reported through the result status; an error
// means an environment failure and no token was disclosed.
func (i *TokenIssuer) IssueToken(ctx context.Context, userID, accountID string) (domain.TokenIssueResult, error) {
	result, err := i.issue(ctx, userID, accountID)
	if err != nil {
		metrics.TokensIssuedTotal.WithLabelValues("error").Inc()
		return domain.TokenIssueResult{}, err
	}
	metrics.TokensIssuedTotal.WithLabelValues(result.Status.String()).Inc()
	return result, nil
}

func (i *TokenIssuer) issue(ctx context.Context, userID, accountID string) (domain.TokenIssueResult, error) {
	// 1. User.
	user, err := i.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.TokenIssueResult{Status: domain.TokenIssueUserNotFound}, nil
	}
	if err != nil {
		return domain.TokenIssueResult{}, fmt.Errorf("issue token: load user: %w", err)
	}

	// 2. Signature key. Missing means registration never completed.
	key, ok := user.AsymmetricKey(domain.KeyUsageSignature)
	if !ok {
		i.log.Error().Str("user_id", userID).Msg("user has no signature key")
		return domain.TokenIssueResult{Status: domain.TokenIssueSignatureKeyNotFound}, nil
	}

	// 3. Memberships. A foreign or unknown account looks the same to the caller.
	accounts, err := i.accounts.ListByIDs(ctx, user.AccountIDs)
	if err != nil {
		return domain.TokenIssueResult{}, fmt.Errorf("issue token: list accounts: %w", err)
	}
	accountIDs := make([]string, 0, len(accounts))
	member := false
	for _, a := range accounts {
		accountIDs = append(accountIDs, a.ID)
		if a.ID == accountID {
			member = true
		}
	}
	if accountID != "" && !member {
		return domain.TokenIssueResult{Status: domain.TokenIssueAccountNotFound}, nil
	}

	// 4. Signing credentials.
	privateKey, err := i.keys.DecryptWithSystemKey(ctx, key.PrivateKey)
	if err != nil {
		return domain.TokenIssueResult{}, fmt.Errorf("issue token: decrypt signature key: %w", err)
	}
	signer, err := i.keys.GetSigningCredentials(key.Provider, privateKey, true)
	if err != nil {
		return domain.TokenIssueResult{}, fmt.Errorf("issue token: signing credentials: %w", err)
	}

	// 5. Identity and lifetime. JWT dates have second precision.
	jti := uuid.NewString()
	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.opts.TTL)

	// 6. Claims.
	claims := sessionClaims{
		Accounts:        accountIDs,
		SignedInAccount: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.opts.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}
	if i.opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.opts.Audience}
	}

	// 7. Sign with the user's own key.
	token := jwt.NewWithClaims(signer.Method, claims)
	token.Header["kid"] = key.ID
	signed, err := token.SignedString(signer.Key)
	if err != nil {
		return domain.TokenIssueResult{}, fmt.Errorf("issue token: sign: %w", err)
	}

	// 8. Track. Without a record the token is never returned.
	record := &domain.TrackedAuthToken{
		ID:        ids.New(),
		UserID:    user.ID,
		TokenID:   jti,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	if err := i.tokens.Create(ctx, record); err != nil {
		return domain.TokenIssueResult{}, fmt.Errorf("issue token: track: %w", err)
	}

	i.log.Info().
		Str("user_id", user.ID).
		Str("account_id", accountID).
		Str("jti", jti).
		Time("expires_at", expiresAt).
		Msg("token issued")

	// 9. Token and jti.
	return domain.TokenIssueResult{
		Status:    domain.TokenIssued,
		Token:     signed,
		TokenID:   jti,
		ExpiresAt: expiresAt,
	}, nil
}
