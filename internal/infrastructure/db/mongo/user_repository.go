package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID                  string               `bson:"_id"`
	Username            string               `bson:"username"`
	Email               string               `bson:"email,omitempty"`
	PasswordHash        string               `bson:"password_hash"`
	Disabled            bool                 `bson:"disabled"`
	FailedLoginAttempts int                  `bson:"failed_login_attempts"`
	LastLoginAt         *time.Time           `bson:"last_login_at,omitempty"`
	LastFailedLoginAt   *time.Time           `bson:"last_failed_login_at,omitempty"`
	AccountIDs          []string             `bson:"account_ids"`
	RoleIDs             []string             `bson:"role_ids"`
	GroupIDs            []string             `bson:"group_ids"`
	SymmetricKeys       []mongoSymmetricKey  `bson:"symmetric_keys"`
	AsymmetricKeys      []mongoAsymmetricKey `bson:"asymmetric_keys"`
	CreatedAt           time.Time            `bson:"created_at"`
	UpdatedAt           time.Time            `bson:"updated_at"`
}

func (r *MongoUserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{"account_ids": accountID})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make([]*domain.User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, err := r.coll.InsertOne(ctx, toMongoUser(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// RecordLoginFailure uses a pipeline update so the window check and the
// increment happen in one atomic write.
func (r *MongoUserRepository) RecordLoginFailure(ctx context.Context, id string, at, since time.Time) (int, error) {
	count := bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$gte", Value: bson.A{"$last_failed_login_at", since}}},
		bson.D{{Key: "$add", Value: bson.A{"$failed_login_attempts", 1}}},
		1,
	}}}
	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "failed_login_attempts", Value: count},
		{Key: "last_failed_login_at", Value: at},
		{Key: "updated_at", Value: at},
	}}}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"failed_login_attempts": 1})

	var doc struct {
		FailedLoginAttempts int `bson:"failed_login_attempts"`
	}
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	return doc.FailedLoginAttempts, nil
}

func (r *MongoUserRepository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	return r.updateOne(ctx, id, "record login", bson.D{
		{Key: "$set", Value: bson.M{"failed_login_attempts": 0, "last_login_at": at, "updated_at": at}},
		{Key: "$unset", Value: bson.M{"last_failed_login_at": ""}},
	})
}

func (r *MongoUserRepository) SetPassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	return r.updateOne(ctx, id, "set password", bson.D{
		{Key: "$set", Value: bson.M{"password_hash": passwordHash, "failed_login_attempts": 0, "updated_at": at}},
		{Key: "$unset", Value: bson.M{"last_failed_login_at": ""}},
	})
}

// UpdateMemberships maps additions to $addToSet and removals to $pull.
func (r *MongoUserRepository) UpdateMemberships(ctx context.Context, id string, change domain.MembershipChange, at time.Time) error {
	if (len(change.AddRoleIDs) > 0 && len(change.RemoveRoleIDs) > 0) ||
		(len(change.AddGroupIDs) > 0 && len(change.RemoveGroupIDs) > 0) {
		return fmt.Errorf("%w: add and remove of the same reference in one change", domain.ErrInvalidInput)
	}
	add := bson.M{}
	for field, ids := range map[string][]string{
		"account_ids": change.AddAccountIDs,
		"role_ids":    change.AddRoleIDs,
		"group_ids":   change.AddGroupIDs,
	} {
		if len(ids) > 0 {
			add[field] = bson.M{"$each": ids}
		}
	}
	pull := bson.M{}
	for field, ids := range map[string][]string{
		"role_ids":  change.RemoveRoleIDs,
		"group_ids": change.RemoveGroupIDs,
	} {
		if len(ids) > 0 {
			pull[field] = bson.M{"$in": ids}
		}
	}

	update := bson.D{{Key: "$set", Value: bson.M{"updated_at": at}}}
	if len(add) > 0 {
		update = append(update, bson.E{Key: "$addToSet", Value: add})
	}
	if len(pull) > 0 {
		update = append(update, bson.E{Key: "$pull", Value: pull})
	}
	return r.updateOne(ctx, id, "update memberships", update)
}

func (r *MongoUserRepository) updateOne(ctx context.Context, id, op string, update bson.D) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		Disabled:            u.Disabled,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LastLoginAt:         u.LastLoginAt,
		LastFailedLoginAt:   u.LastFailedLoginAt,
		AccountIDs:          nonNil(u.AccountIDs),
		RoleIDs:             nonNil(u.RoleIDs),
		GroupIDs:            nonNil(u.GroupIDs),
		SymmetricKeys:       toMongoSymmetric(u.SymmetricKeys),
		AsymmetricKeys:      toMongoAsymmetric(u.AsymmetricKeys),
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (d *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:                  d.ID,
		Username:            d.Username,
		Email:               d.Email,
		PasswordHash:        d.PasswordHash,
		Disabled:            d.Disabled,
		FailedLoginAttempts: d.FailedLoginAttempts,
		LastLoginAt:         d.LastLoginAt,
		LastFailedLoginAt:   d.LastFailedLoginAt,
		AccountIDs:          d.AccountIDs,
		RoleIDs:             d.RoleIDs,
		GroupIDs:            d.GroupIDs,
		SymmetricKeys:       fromMongoSymmetric(d.SymmetricKeys),
		AsymmetricKeys:      fromMongoAsymmetric(d.AsymmetricKeys),
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
	}
}
