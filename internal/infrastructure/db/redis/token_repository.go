package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

const defaultRetention = 30 * 24 * time.Hour

// revokeScript stamps revoked_at when the record exists, is unrevoked and
// has not expired. Returns 1 on change, 0 when inactive, -1 when missing.
var revokeScript = redis.NewScript(`
local exp = redis.call('HGET', KEYS[1], 'expires_at')
if not exp then return -1 end
local rev = redis.call('HGET', KEYS[1], 'revoked_at')
if rev and rev ~= '' then return 0 end
if tonumber(exp) <= tonumber(ARGV[1]) then return 0 end
redis.call('HSET', KEYS[1], 'revoked_at', ARGV[1])
return 1
`)

// TokenRepository stores tracked tokens as one hash per token plus a per-user
// set of token ids. Records outlive their expiry by the retention period and
// are then dropped by Redis itself.
// Key format: authtoken:<user_id>:<token_id>, authtokens:<user_id>
type TokenRepository struct {
	client    *redis.Client
	retention time.Duration
}

// NewTokenRepository creates a TokenRepository. retention <= 0 uses 30 days.
func NewTokenRepository(client *redis.Client, retention time.Duration) *TokenRepository {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &TokenRepository{client: client, retention: retention}
}

func (r *TokenRepository) Create(ctx context.Context, t *domain.TrackedAuthToken) error {
	key := r.key(t.UserID, t.TokenID)
	index := r.indexKey(t.UserID)
	evictAt := t.ExpiresAt.Add(r.retention)

	fields := map[string]any{
		"id":         t.ID,
		"issued_at":  t.IssuedAt.UnixMilli(),
		"expires_at": t.ExpiresAt.UnixMilli(),
		"revoked_at": "",
	}
	if t.RevokedAt != nil {
		fields["revoked_at"] = t.RevokedAt.UnixMilli()
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		pipe.ExpireAt(ctx, key, evictAt)
		pipe.SAdd(ctx, index, t.TokenID)
		pipe.ExpireAt(ctx, index, evictAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (r *TokenRepository) FindActive(ctx context.Context, userID, tokenID string, now time.Time) (*domain.TrackedAuthToken, error) {
	if tokenID == "" {
		return nil, domain.ErrTokenNotFound
	}
	vals, err := r.client.HGetAll(ctx, r.key(userID, tokenID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("find token: %w", err)
	}
	if len(vals) == 0 {
		return nil, domain.ErrTokenNotFound
	}
	t, err := decodeToken(userID, tokenID, vals)
	if err != nil {
		return nil, err
	}
	if !t.Active(now) {
		return nil, domain.ErrTokenNotFound
	}
	return t, nil
}

func (r *TokenRepository) Revoke(ctx context.Context, userID, tokenID string, revokedAt time.Time) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := revokeScript.Run(ctx, r.client, []string{r.key(userID, tokenID)}, revokedAt.UnixMilli()).Int()
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return n == 1, nil
}

// RevokeAllActive revokes each indexed token with its own atomic script call
// and prunes ids whose record has been evicted.
func (r *TokenRepository) RevokeAllActive(ctx context.Context, userID string, revokedAt time.Time) (int64, error) {
	index := r.indexKey(userID)
	tokenIDs, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return 0, fmt.Errorf("list tokens: %w", err)
	}
	var revoked int64
	for _, id := range tokenIDs {
		n, err := revokeScript.Run(ctx, r.client, []string{r.key(userID, id)}, revokedAt.UnixMilli()).Int()
		if err != nil {
			return revoked, fmt.Errorf("revoke token: %w", err)
		}
		switch n {
		case 1:
			revoked++
		case -1:
			r.client.SRem(ctx, index, id)
		}
	}
	return revoked, nil
}

func (r *TokenRepository) key(userID, tokenID string) string {
	return fmt.Sprintf("authtoken:%s:%s", userID, tokenID)
}

func (r *TokenRepository) indexKey(userID string) string {
	return fmt.Sprintf("authtokens:%s", userID)
}

func decodeToken(userID, tokenID string, vals map[string]string) (*domain.TrackedAuthToken, error) {
	issued, err := strconv.ParseInt(vals["issued_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode token issued_at: %w", err)
	}
	expires, err := strconv.ParseInt(vals["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode token expires_at: %w", err)
	}
	t := &domain.TrackedAuthToken{
		ID:        vals["id"],
		UserID:    userID,
		TokenID:   tokenID,
		IssuedAt:  time.UnixMilli(issued).UTC(),
		ExpiresAt: time.UnixMilli(expires).UTC(),
	}
	if s := vals["revoked_at"]; s != "" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode token revoked_at: %w", err)
		}
		at := time.UnixMilli(ms).UTC()
		t.RevokedAt = &at
	}
	return t, nil
}
