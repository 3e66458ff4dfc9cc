package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/pkg/metrics"
)

// TokenRevoker stamps revoked-at on tracked tokens. Revocation is monotonic.
type TokenRevoker struct {
	tokens ports.TrackedTokenRepository
	now    func() time.Time
	log    zerolog.Logger
}

func NewTokenRevoker(tokens ports.TrackedTokenRepository, log zerolog.Logger) *TokenRevoker {
	return &TokenRevoker{tokens: tokens, now: time.Now, log: log}
}

// RevokeOne revokes one active token. It returns false when nothing active
// matched, which includes tokens already revoked.
func (r *TokenRevoker) RevokeOne(ctx context.Context, userID, tokenID string) (bool, error) {
	revoked, err := r.tokens.Revoke(ctx, userID, tokenID, r.now().UTC())
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	if revoked {
		metrics.TokensRevokedTotal.WithLabelValues("one").Inc()
		r.log.Info().Str("user_id", userID).Str("jti", tokenID).Msg("token revoked")
	}
	return revoked, nil
}

// RevokeAll revokes every active token of userID.
func (r *TokenRevoker) RevokeAll(ctx context.Context, userID string) error {
	n, err := r.tokens.RevokeAllActive(ctx, userID, r.now().UTC())
	if err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}
	if n > 0 {
		metrics.TokensRevokedTotal.WithLabelValues("all").Add(float64(n))
	}
	r.log.Info().Str("user_id", userID).Int64("revoked", n).Msg("tokens revoked")
	return nil
}
