package cryptoprovider

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/iam-engine/internal/core/ports"
)

// Signature algorithm codes. They double as JWT "alg" values.
const (
	CodeES256 = "ES256"
	CodeRS256 = "RS256"
	CodeEdDSA = "EdDSA"
)

const rsaSignatureBits = 2048

type ES256Provider struct{}

// NewES256Provider returns ECDSA P-256 with SHA-256.
func NewES256Provider() *ES256Provider { return &ES256Provider{} }

func (ES256Provider) Code() string { return CodeES256 }

func (ES256Provider) GenerateKeyPair() (string, string, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("ES256: generate key: %w", err)
	}
	return encodeKeyPair(priv, &priv.PublicKey)
}

func (ES256Provider) SigningHandle(privateKey string) (ports.SigningHandle, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKey))
	if err != nil {
		return ports.SigningHandle{}, fmt.Errorf("ES256: parse private key: %w", err)
	}
	return ports.SigningHandle{Method: jwt.SigningMethodES256, Key: key}, nil
}

func (ES256Provider) VerificationHandle(publicKey string) (ports.SigningHandle, error) {
	key, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKey))
	if err != nil {
		return ports.SigningHandle{}, fmt.Errorf("ES256: parse public key: %w", err)
	}
	return ports.SigningHandle{Method: jwt.SigningMethodES256, Key: key}, nil
}

type RS256Provider struct{}

// NewRS256Provider returns RSASSA-PKCS1-v1_5 with SHA-256.
func NewRS256Provider() *RS256Provider { return &RS256Provider{} }

func (RS256Provider) Code() string { return CodeRS256 }

func (RS256Provider) GenerateKeyPair() (string, string, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaSignatureBits)
	if err != nil {
		return "", "", fmt.Errorf("RS256: generate key: %w", err)
	}
	return encodeKeyPair(priv, &priv.PublicKey)
}

func (RS256Provider) SigningHandle(privateKey string) (ports.SigningHandle, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKey))
	if err != nil {
		return ports.SigningHandle{}, fmt.Errorf("RS256: parse private key: %w", err)
	}
	return ports.SigningHandle{Method: jwt.SigningMethodRS256, Key: key}, nil
}

func (RS256Provider) VerificationHandle(publicKey string) (ports.SigningHandle, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKey))
	if err != nil {
		return ports.SigningHandle{}, fmt.Errorf("RS256: parse public key: %w", err)
	}
	return ports.SigningHandle{Method: jwt.SigningMethodRS256, Key: key}, nil
}

type EdDSAProvider struct{}

// NewEdDSAProvider returns Ed25519.
func NewEdDSAProvider() *EdDSAProvider { return &EdDSAProvider{} }

func (EdDSAProvider) Code() string { return CodeEdDSA }

func (EdDSAProvider) GenerateKeyPair() (string, string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("EdDSA: generate key: %w", err)
	}
	return encodeKeyPair(priv, pub)
}

func (EdDSAProvider) SigningHandle(privateKey string) (ports.SigningHandle, error) {
	key, err := jwt.ParseEdPrivateKeyFromPEM([]byte(privateKey))
	if err != nil {
		return ports.SigningHandle{}, fmt.Errorf("EdDSA: parse private key: %w", err)
	}
	return ports.SigningHandle{Method: jwt.SigningMethodEdDSA, Key: key}, nil
}

func (EdDSAProvider) VerificationHandle(publicKey string) (ports.SigningHandle, error) {
	key, err := jwt.ParseEdPublicKeyFromPEM([]byte(publicKey))
	if err != nil {
		return ports.SigningHandle{}, fmt.Errorf("EdDSA: parse public key: %w", err)
	}
	return ports.SigningHandle{Method: jwt.SigningMethodEdDSA, Key: key}, nil
}
