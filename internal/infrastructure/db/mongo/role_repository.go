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

type MongoRoleRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *MongoRoleRepository {
	return &MongoRoleRepository{db: db, coll: db.Collection(rolesCollection)}
}

type mongoRole struct {
	ID              string    `bson:"_id"`
	AccountID       string    `bson:"account_id"`
	Name            string    `bson:"name"`
	IsSystemDefined bool      `bson:"is_system_defined"`
	CreatedAt       time.Time `bson:"created_at"`
}

func (r *MongoRoleRepository) Get(ctx context.Context, accountID, id string) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"_id": id, "account_id": accountID})
}

func (r *MongoRoleRepository) FindByName(ctx context.Context, accountID, name string) (*domain.Role, error) {
	return r.findOne(ctx, bson.M{"account_id": accountID, "name": name})
}

func (r *MongoRoleRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Role, error) {
	cur, err := r.coll.Find(ctx, bson.M{"account_id": accountID})
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	var docs []mongoRole
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	out := make([]*domain.Role, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *MongoRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	doc := mongoRole{
		ID:              role.ID,
		AccountID:       role.AccountID,
		Name:            role.Name,
		IsSystemDefined: role.IsSystemDefined,
		CreatedAt:       role.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

// Delete removes the role, then pulls its id from users, groups and
// permissions. Each step is a single-collection write.
func (r *MongoRoleRepository) Delete(ctx context.Context, accountID, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "account_id": accountID})
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRoleNotFound
	}

	pull := bson.M{"$pull": bson.M{"role_ids": id}}
	if _, err := r.db.Collection(usersCollection).UpdateMany(ctx, bson.M{"role_ids": id}, pull); err != nil {
		return fmt.Errorf("delete role: unassign users: %w", err)
	}
	if _, err := r.db.Collection(groupsCollection).UpdateMany(ctx, bson.M{"account_id": accountID, "role_ids": id}, pull); err != nil {
		return fmt.Errorf("delete role: unassign groups: %w", err)
	}
	if _, err := r.db.Collection(permissionsCollection).UpdateMany(ctx, bson.M{"account_id": accountID, "role_ids": id}, pull); err != nil {
		return fmt.Errorf("delete role: detach permissions: %w", err)
	}
	return nil
}

func (r *MongoRoleRepository) findOne(ctx context.Context, filter bson.M) (*domain.Role, error) {
	var doc mongoRole
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return doc.toDomain(), nil
}

func (d *mongoRole) toDomain() *domain.Role {
	return &domain.Role{
		ID:              d.ID,
		AccountID:       d.AccountID,
		Name:            d.Name,
		IsSystemDefined: d.IsSystemDefined,
		CreatedAt:       d.CreatedAt.UTC(),
	}
}
