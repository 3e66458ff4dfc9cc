package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

// MongoTokenRepository stores tracked tokens. Records are never deleted.
type MongoTokenRepository struct {
	coll *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *MongoTokenRepository {
	return &MongoTokenRepository{coll: db.Collection(tokensCollection)}
}

type mongoToken struct {
	ID        string     `bson:"_id"`
	UserID    string     `bson:"user_id"`
	TokenID   string     `bson:"token_id"`
	IssuedAt  time.Time  `bson:"issued_at"`
	ExpiresAt time.Time  `bson:"expires_at"`
	RevokedAt *time.Time `bson:"revoked_at"`
}

func (r *MongoTokenRepository) Create(ctx context.Context, t *domain.TrackedAuthToken) error {
	doc := mongoToken{
		ID:        t.ID,
		UserID:    t.UserID,
		TokenID:   t.TokenID,
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
		RevokedAt: t.RevokedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *MongoTokenRepository) FindActive(ctx context.Context, userID, tokenID string, now time.Time) (*domain.TrackedAuthToken, error) {
	if tokenID == "" {
		return nil, domain.ErrTokenNotFound
	}
	var doc mongoToken
	if err := r.coll.FindOne(ctx, activeFilter(userID, tokenID, now)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return &domain.TrackedAuthToken{
		ID:        doc.ID,
		UserID:    doc.UserID,
		TokenID:   doc.TokenID,
		IssuedAt:  doc.IssuedAt.UTC(),
		ExpiresAt: doc.ExpiresAt.UTC(),
		RevokedAt: doc.RevokedAt,
	}, nil
}

// Revoke is a single conditional update, so a concurrent revocation of the
// same token reports true exactly once.
func (r *MongoTokenRepository) Revoke(ctx context.Context, userID, tokenID string, revokedAt time.Time) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	res, err := r.coll.UpdateOne(ctx, activeFilter(userID, tokenID, revokedAt), bson.M{"$set": bson.M{"revoked_at": revokedAt}})
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoTokenRepository) RevokeAllActive(ctx context.Context, userID string, revokedAt time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx, activeFilter(userID, "", revokedAt), bson.M{"$set": bson.M{"revoked_at": revokedAt}})
	if err != nil {
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}
	return res.ModifiedCount, nil
}

// activeFilter matches unrevoked records of userID expiring after now,
// narrowed to tokenID when it is not empty.
func activeFilter(userID, tokenID string, now time.Time) bson.M {
	f := bson.M{
		"user_id":    userID,
		"revoked_at": nil,
		"expires_at": bson.M{"$gt": now},
	}
	if tokenID != "" {
		f["token_id"] = tokenID
	}
	return f
}
