package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

type MongoPermissionRepository struct {
	coll *mongo.Collection
}

func NewPermissionRepository(db *mongo.Database) *MongoPermissionRepository {
	return &MongoPermissionRepository{coll: db.Collection(permissionsCollection)}
}

// mongoPermission stores "all instances" as a missing resource_id, never as
// an empty string or zero.
type mongoPermission struct {
	ID           string   `bson:"_id"`
	AccountID    string   `bson:"account_id"`
	ResourceType string   `bson:"resource_type"`
	ResourceID   *string  `bson:"resource_id,omitempty"`
	Create       bool     `bson:"create"`
	Read         bool     `bson:"read"`
	Update       bool     `bson:"update"`
	Delete       bool     `bson:"delete"`
	Execute      bool     `bson:"execute"`
	RoleIDs      []string `bson:"role_ids"`
}

func (r *MongoPermissionRepository) ListByRoles(ctx context.Context, accountID string, roleIDs []string) ([]domain.Permission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"account_id": accountID, "role_ids": bson.M{"$in": roleIDs}})
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	var docs []mongoPermission
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	out := make([]domain.Permission, 0, len(docs))
	for _, d := range docs {
		p := domain.Permission{
			ID:           d.ID,
			AccountID:    d.AccountID,
			ResourceType: d.ResourceType,
			ResourceID:   domain.AllInstances,
			Actions: domain.Actions{
				Create:  d.Create,
				Read:    d.Read,
				Update:  d.Update,
				Delete:  d.Delete,
				Execute: d.Execute,
			},
			RoleIDs: d.RoleIDs,
		}
		if d.ResourceID != nil {
			p.ResourceID = domain.InstanceID(*d.ResourceID)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *MongoPermissionRepository) Create(ctx context.Context, p *domain.Permission) error {
	doc := mongoPermission{
		ID:           p.ID,
		AccountID:    p.AccountID,
		ResourceType: p.ResourceType,
		Create:       p.Actions.Create,
		Read:         p.Actions.Read,
		Update:       p.Actions.Update,
		Delete:       p.Actions.Delete,
		Execute:      p.Actions.Execute,
		RoleIDs:      nonNil(p.RoleIDs),
	}
	if id, ok := p.ResourceID.ID(); ok {
		doc.ResourceID = &id
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert permission: %w", err)
	}
	return nil
}
