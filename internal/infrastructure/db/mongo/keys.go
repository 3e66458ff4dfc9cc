package mongo

import (
	"time"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

type mongoSymmetricKey struct {
	Usage     string    `bson:"usage"`
	Provider  string    `bson:"provider"`
	Version   int       `bson:"version"`
	Key       string    `bson:"key"`
	CreatedAt time.Time `bson:"created_at"`
}

type mongoAsymmetricKey struct {
	ID         string    `bson:"id"`
	Usage      string    `bson:"usage"`
	Provider   string    `bson:"provider"`
	Version    int       `bson:"version"`
	PublicKey  string    `bson:"public_key"`
	PrivateKey string    `bson:"private_key"`
	CreatedAt  time.Time `bson:"created_at"`
}

func toMongoSymmetric(keys []domain.SymmetricKey) []mongoSymmetricKey {
	out := make([]mongoSymmetricKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, mongoSymmetricKey{
			Usage:     string(k.Usage),
			Provider:  k.Provider,
			Version:   k.Version,
			Key:       k.Key,
			CreatedAt: k.CreatedAt,
		})
	}
	return out
}

func fromMongoSymmetric(keys []mongoSymmetricKey) []domain.SymmetricKey {
	out := make([]domain.SymmetricKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.SymmetricKey{
			Usage:     domain.KeyUsage(k.Usage),
			Provider:  k.Provider,
			Version:   k.Version,
			Key:       k.Key,
			CreatedAt: k.CreatedAt.UTC(),
		})
	}
	return out
}

func toMongoAsymmetric(keys []domain.AsymmetricKey) []mongoAsymmetricKey {
	out := make([]mongoAsymmetricKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, mongoAsymmetricKey{
			ID:         k.ID,
			Usage:      string(k.Usage),
			Provider:   k.Provider,
			Version:    k.Version,
			PublicKey:  k.PublicKey,
			PrivateKey: k.PrivateKey,
			CreatedAt:  k.CreatedAt,
		})
	}
	return out
}

func fromMongoAsymmetric(keys []mongoAsymmetricKey) []domain.AsymmetricKey {
	out := make([]domain.AsymmetricKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.AsymmetricKey{
			ID:         k.ID,
			Usage:      domain.KeyUsage(k.Usage),
			Provider:   k.Provider,
			Version:    k.Version,
			PublicKey:  k.PublicKey,
			PrivateKey: k.PrivateKey,
			CreatedAt:  k.CreatedAt.UTC(),
		})
	}
	return out
}

// nonNil keeps empty id lists stored as [] so $in and $pull behave uniformly.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
