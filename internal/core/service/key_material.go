package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/pkg/ids"
)

const defaultVerificationCacheSize = 1024

// KeyAlgorithms selects the provider codes used for newly generated keys.
type KeyAlgorithms struct {
	Symmetric  string
	Encryption string
	Signature  string
}

// KeyMaterialProvider generates per-user and per-account keys and
// envelope-encrypts their secret halves under the system key.
type KeyMaterialProvider struct {
	systemKey  ports.SystemKeyProvider
	providers  ports.CryptoProviders
	algorithms KeyAlgorithms
	// verifiers caches parsed public keys. Only public material is cached,
	// keyed by a digest of the key text, so rotation never serves a stale key.
	verifiers *lru.Cache[string, ports.SigningHandle]
	now       func() time.Time
}

// NewKeyMaterialProvider fails when one of the default algorithm codes is unknown.
func NewKeyMaterialProvider(
	systemKey ports.SystemKeyProvider,
	providers ports.CryptoProviders,
	algorithms KeyAlgorithms,
	cacheSize int,
) (*KeyMaterialProvider, error) {
	if _, err := providers.Symmetric(algorithms.Symmetric); err != nil {
		return nil, err
	}
	if _, err := providers.AsymmetricEncryption(algorithms.Encryption); err != nil {
		return nil, err
	}
	if _, err := providers.Signature(algorithms.Signature); err != nil {
		return nil, err
	}
	if cacheSize <= 0 {
		cacheSize = defaultVerificationCacheSize
	}
	cache, err := lru.New[string, ports.SigningHandle](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("verification cache: %w", err)
	}
	return &KeyMaterialProvider{
		systemKey:  systemKey,
		providers:  providers,
		algorithms: algorithms,
		verifiers:  cache,
		now:        time.Now,
	}, nil
}

// CreateSymmetricKey generates random key material for usage and returns it
// encrypted under the current system key.
func (p *KeyMaterialProvider) CreateSymmetricKey(ctx context.Context, usage domain.KeyUsage) (domain.SymmetricKey, error) {
	provider, err := p.providers.Symmetric(p.algorithms.Symmetric)
	if err != nil {
		return domain.SymmetricKey{}, err
	}
	raw, err := provider.GenerateKey()
	if err != nil {
		return domain.SymmetricKey{}, err
	}
	sealed, version, err := p.encryptWithSystemKey(ctx, base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		return domain.SymmetricKey{}, fmt.Errorf("create symmetric key: %w", err)
	}
	return domain.SymmetricKey{
		Usage:     usage,
		Provider:  provider.Code(),
		Version:   version,
		Key:       sealed,
		CreatedAt: p.now().UTC(),
	}, nil
}

// CreateAsymmetricKeyPair generates a key pair whose algorithm family depends
// on usage. Only the private half is encrypted.
func (p *KeyMaterialProvider) CreateAsymmetricKeyPair(ctx context.Context, usage domain.KeyUsage) (domain.AsymmetricKey, error) {
	var (
		code      string
		pub, priv string
		err       error
	)
	switch usage {
	case domain.KeyUsageSignature:
		var sp ports.SignatureProvider
		if sp, err = p.providers.Signature(p.algorithms.Signature); err != nil {
			return domain.AsymmetricKey{}, err
		}
		code = sp.Code()
		pub, priv, err = sp.GenerateKeyPair()
	case domain.KeyUsageEncryption:
		var ep ports.AsymmetricEncryptionProvider
		if ep, err = p.providers.AsymmetricEncryption(p.algorithms.Encryption); err != nil {
			return domain.AsymmetricKey{}, err
		}
		code = ep.Code()
		pub, priv, err = ep.GenerateKeyPair()
	default:
		return domain.AsymmetricKey{}, fmt.Errorf("%w: key usage %q", domain.ErrInvalidInput, usage)
	}
	if err != nil {
		return domain.AsymmetricKey{}, fmt.Errorf("create key pair: %w", err)
	}

	sealed, version, err := p.encryptWithSystemKey(ctx, priv)
	if err != nil {
		return domain.AsymmetricKey{}, fmt.Errorf("create key pair: %w", err)
	}
	return domain.AsymmetricKey{
		ID:         ids.New(),
		Usage:      usage,
		Provider:   code,
		Version:    version,
		PublicKey:  pub,
		PrivateKey: sealed,
		CreatedAt:  p.now().UTC(),
	}, nil
}

// DecryptWithSystemKey returns "" for empty input. Corrupted ciphertext fails
// with domain.ErrDecryption.
func (p *KeyMaterialProvider) DecryptWithSystemKey(ctx context.Context, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	key, provider, err := p.currentSystemKey(ctx)
	if err != nil {
		return "", err
	}
	plaintext, err := provider.Decrypt(ciphertext, key.Material)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// GetSigningCredentials builds a signing handle from a private key or a
// verification handle from a public key.
func (p *KeyMaterialProvider) GetSigningCredentials(providerCode, keyMaterial string, isPrivate bool) (ports.SigningHandle, error) {
	sp, err := p.providers.Signature(providerCode)
	if err != nil {
		return ports.SigningHandle{}, err
	}
	if isPrivate {
		return sp.SigningHandle(keyMaterial)
	}

	sum := sha256.Sum256([]byte(keyMaterial))
	cacheKey := providerCode + ":" + hex.EncodeToString(sum[:])
	if h, ok := p.verifiers.Get(cacheKey); ok {
		return h, nil
	}
	h, err := sp.VerificationHandle(keyMaterial)
	if err != nil {
		return ports.SigningHandle{}, err
	}
	p.verifiers.Add(cacheKey, h)
	return h, nil
}

func (p *KeyMaterialProvider) encryptWithSystemKey(ctx context.Context, plaintext string) (string, int, error) {
	key, provider, err := p.currentSystemKey(ctx)
	if err != nil {
		return "", 0, err
	}
	sealed, err := provider.Encrypt([]byte(plaintext), key.Material)
	if err != nil {
		return "", 0, err
	}
	return sealed, key.Version, nil
}

func (p *KeyMaterialProvider) currentSystemKey(ctx context.Context) (ports.SystemKey, ports.SymmetricProvider, error) {
	key, err := p.systemKey.GetSystemSymmetricKey(ctx)
	if err != nil {
		return ports.SystemKey{}, nil, fmt.Errorf("system key: %w", err)
	}
	provider, err := p.providers.Symmetric(key.Provider)
	if err != nil {
		return ports.SystemKey{}, nil, err
	}
	return key, provider, nil
}
