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

type MongoAccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *MongoAccountRepository {
	return &MongoAccountRepository{coll: db.Collection(accountsCollection)}
}

type mongoAccount struct {
	ID             string               `bson:"_id"`
	Name           string               `bson:"name"`
	SymmetricKeys  []mongoSymmetricKey  `bson:"symmetric_keys"`
	AsymmetricKeys []mongoAsymmetricKey `bson:"asymmetric_keys"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

func (r *MongoAccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	var doc mongoAccount
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoAccountRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	var docs []mongoAccount
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *MongoAccountRepository) Create(ctx context.Context, a *domain.Account) error {
	doc := mongoAccount{
		ID:             a.ID,
		Name:           a.Name,
		SymmetricKeys:  toMongoSymmetric(a.SymmetricKeys),
		AsymmetricKeys: toMongoAsymmetric(a.AsymmetricKeys),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (d *mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:             d.ID,
		Name:           d.Name,
		SymmetricKeys:  fromMongoSymmetric(d.SymmetricKeys),
		AsymmetricKeys: fromMongoAsymmetric(d.AsymmetricKeys),
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}
