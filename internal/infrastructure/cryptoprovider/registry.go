// Package cryptoprovider holds the symmetric, asymmetric-encryption and
// signature algorithms available to the key material provider, keyed by
// algorithm code.
package cryptoprovider

import (
	"fmt"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
)

// Registry implements ports.CryptoProviders.
type Registry struct {
	symmetric  map[string]ports.SymmetricProvider
	encryption map[string]ports.AsymmetricEncryptionProvider
	signature  map[string]ports.SignatureProvider
}

// NewRegistry returns a Registry with every built-in provider registered.
func NewRegistry() *Registry {
	r := &Registry{
		symmetric:  make(map[string]ports.SymmetricProvider),
		encryption: make(map[string]ports.AsymmetricEncryptionProvider),
		signature:  make(map[string]ports.SignatureProvider),
	}
	r.RegisterSymmetric(NewAESProvider())
	r.RegisterSymmetric(NewXChaCha20Provider())
	r.RegisterEncryption(NewRSAProvider())
	r.RegisterEncryption(NewX25519Provider())
	r.RegisterSignature(NewES256Provider())
	r.RegisterSignature(NewRS256Provider())
	r.RegisterSignature(NewEdDSAProvider())
	return r
}

func (r *Registry) RegisterSymmetric(p ports.SymmetricProvider) { r.symmetric[p.Code()] = p }

func (r *Registry) RegisterEncryption(p ports.AsymmetricEncryptionProvider) {
	r.encryption[p.Code()] = p
}

func (r *Registry) RegisterSignature(p ports.SignatureProvider) { r.signature[p.Code()] = p }

func (r *Registry) Symmetric(code string) (ports.SymmetricProvider, error) {
	if p, ok := r.symmetric[code]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: symmetric %q", domain.ErrUnsupportedAlgorithm, code)
}

func (r *Registry) AsymmetricEncryption(code string) (ports.AsymmetricEncryptionProvider, error) {
	if p, ok := r.encryption[code]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: encryption %q", domain.ErrUnsupportedAlgorithm, code)
}

func (r *Registry) Signature(code string) (ports.SignatureProvider, error) {
	if p, ok := r.signature[code]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: signature %q", domain.ErrUnsupportedAlgorithm, code)
}
