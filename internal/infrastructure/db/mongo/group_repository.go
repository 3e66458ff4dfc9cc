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

type MongoGroupRepository struct {
	coll *mongo.Collection
}

func NewGroupRepository(db *mongo.Database) *MongoGroupRepository {
	return &MongoGroupRepository{coll: db.Collection(groupsCollection)}
}

type mongoGroup struct {
	ID        string    `bson:"_id"`
	AccountID string    `bson:"account_id"`
	Name      string    `bson:"name"`
	RoleIDs   []string  `bson:"role_ids"`
	CreatedAt time.Time `bson:"created_at"`
}

func (r *MongoGroupRepository) Get(ctx context.Context, accountID, id string) (*domain.Group, error) {
	var doc mongoGroup
	if err := r.coll.FindOne(ctx, bson.M{"_id": id, "account_id": accountID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, fmt.Errorf("find group: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoGroupRepository) ListByIDs(ctx context.Context, accountID string, ids []string) ([]*domain.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}, "account_id": accountID})
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	var docs []mongoGroup
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode groups: %w", err)
	}
	out := make([]*domain.Group, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *MongoGroupRepository) Create(ctx context.Context, g *domain.Group) error {
	if _, err := r.coll.InsertOne(ctx, toMongoGroup(g)); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (r *MongoGroupRepository) Update(ctx context.Context, g *domain.Group) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": g.ID, "account_id": g.AccountID}, toMongoGroup(g))
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func toMongoGroup(g *domain.Group) mongoGroup {
	return mongoGroup{
		ID:        g.ID,
		AccountID: g.AccountID,
		Name:      g.Name,
		RoleIDs:   nonNil(g.RoleIDs),
		CreatedAt: g.CreatedAt,
	}
}

func (d *mongoGroup) toDomain() *domain.Group {
	return &domain.Group{
		ID:        d.ID,
		AccountID: d.AccountID,
		Name:      d.Name,
		RoleIDs:   d.RoleIDs,
		CreatedAt: d.CreatedAt.UTC(),
	}
}
