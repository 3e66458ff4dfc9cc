package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/pkg/ids"
	"github.com/99minutos/iam-engine/internal/pkg/metrics"
)

// TokenValidator checks bearer tokens. The tracking record is consulted before
// any signature work, so revoked and expired tokens never reach crypto.
type TokenValidator struct {
	users  ports.UserRepository
	tokens ports.TrackedTokenRepository
	keys   *KeyMaterialProvider
	opts   TokenOptions
	now    func() time.Time
	log    zerolog.Logger
}

func NewTokenValidator(
	users ports.UserRepository,
	tokens ports.TrackedTokenRepository,
	keys *KeyMaterialProvider,
	opts TokenOptions,
	log zerolog.Logger,
) *TokenValidator {
	return &TokenValidator{
		users:  users,
		tokens: tokens,
		keys:   keys,
		opts:   opts.withDefaults(),
		now:    time.Now,
		log:    log,
	}
}

// Validate runs the checks in order and stops at the first failure. The
// returned error is non-nil only when storage fails.
func (v *TokenValidator) Validate(ctx context.Context, tokenString string) (domain.TokenValidationResult, error) {
	result, err := v.validate(ctx, tokenString)
	if err != nil {
		metrics.TokenValidationsTotal.WithLabelValues("error").Inc()
		return domain.TokenValidationResult{Status: domain.TokenValidationFailed}, err
	}
	metrics.TokenValidationsTotal.WithLabelValues(result.Status.String()).Inc()
	return result, nil
}

func (v *TokenValidator) validate(ctx context.Context, tokenString string) (domain.TokenValidationResult, error) {
	failed := domain.TokenValidationResult{Status: domain.TokenValidationFailed}

	// 1. Structure.
	unverified := &sessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, unverified); err != nil {
		v.log.Debug().Err(err).Msg("token rejected: malformed")
		return domain.TokenValidationResult{Status: domain.TokenInvalidFormat}, nil
	}

	// 2. Subject.
	userID := unverified.Subject
	if !ids.Valid(userID) {
		return domain.TokenValidationResult{Status: domain.TokenMissingUserIDClaim}, nil
	}

	// 3. jti. Treated as untrackable rather than malformed.
	jti := unverified.ID
	if jti == "" {
		v.log.Debug().Str("user_id", userID).Msg("token rejected: no jti")
		return failed, nil
	}

	// 4. Tracking record.
	now := v.now()
	if _, err := v.tokens.FindActive(ctx, userID, jti, now); err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			v.log.Debug().Str("user_id", userID).Str("jti", jti).Msg("token rejected: not active")
			return failed, nil
		}
		return failed, fmt.Errorf("validate token: lookup: %w", err)
	}

	// 5. Public key. A deleted user and a rotated key look the same.
	user, err := v.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return failed, nil
		}
		return failed, fmt.Errorf("validate token: load user: %w", err)
	}
	key, ok := user.AsymmetricKey(domain.KeyUsageSignature)
	if !ok {
		return failed, nil
	}
	verifier, err := v.keys.GetSigningCredentials(key.Provider, key.PublicKey, false)
	if err != nil {
		v.log.Warn().Err(err).Str("user_id", userID).Msg("token rejected: unusable public key")
		return failed, nil
	}

	// 6. Signature, issuer, audience and lifetime.
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{verifier.Method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.opts.ClockSkew),
		jwt.WithTimeFunc(v.now),
	}
	if v.opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.opts.Issuer))
	}
	if v.opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.opts.Audience))
	}
	verified := &sessionClaims{}
	if _, err := jwt.NewParser(parserOpts...).ParseWithClaims(tokenString, verified, func(*jwt.Token) (any, error) {
		return verifier.Key, nil
	}); err != nil {
		v.log.Warn().Err(err).Str("user_id", userID).Str("jti", jti).Msg("token rejected: verification failed")
		return failed, nil
	}

	// 7. Active account and memberships, only when well formed.
	result := domain.TokenValidationResult{
		Status:  domain.TokenValid,
		UserID:  userID,
		TokenID: jti,
	}
	if ids.Valid(verified.SignedInAccount) {
		result.SignedInAccountID = verified.SignedInAccount
	}
	for _, id := range verified.Accounts {
		if ids.Valid(id) {
			result.AccountIDs = append(result.AccountIDs, id)
		}
	}
	return result, nil
}
