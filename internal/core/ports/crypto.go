package ports

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// SystemKey is the operator-supplied key that envelope-encrypts all stored secrets.
type SystemKey struct {
	Material []byte
	Version  int
	Provider string
}

// SystemKeyProvider supplies the current system key.
type SystemKeyProvider interface {
	GetSystemSymmetricKey(ctx context.Context) (SystemKey, error)
}

// SymmetricProvider encrypts with one symmetric algorithm. Ciphertexts are
// base64 strings.
type SymmetricProvider interface {
	Code() string
	GenerateKey() ([]byte, error)
	Encrypt(plaintext, key []byte) (string, error)
	Decrypt(ciphertext string, key []byte) ([]byte, error)
}

// AsymmetricEncryptionProvider encrypts to a public key with one algorithm family.
type AsymmetricEncryptionProvider interface {
	Code() string
	GenerateKeyPair() (publicKey, privateKey string, err error)
	Encrypt(plaintext []byte, publicKey string) (string, error)
	Decrypt(ciphertext, privateKey string) ([]byte, error)
}

// SigningHandle pairs a JWT signing method with the key it signs or verifies with.
type SigningHandle struct {
	Method jwt.SigningMethod
	Key    any
}

// SignatureProvider produces key pairs and signing handles for one algorithm.
type SignatureProvider interface {
	Code() string
	GenerateKeyPair() (publicKey, privateKey string, err error)
	SigningHandle(privateKey string) (SigningHandle, error)
	VerificationHandle(publicKey string) (SigningHandle, error)
}

// CryptoProviders looks up providers by algorithm code. Unknown codes yield
// domain.ErrUnsupportedAlgorithm.
type CryptoProviders interface {
	Symmetric(code string) (SymmetricProvider, error)
	AsymmetricEncryption(code string) (AsymmetricEncryptionProvider, error)
	Signature(code string) (SignatureProvider, error)
}

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns domain.ErrInvalidCredentials on mismatch.
	Compare(hash, password string) error
}
