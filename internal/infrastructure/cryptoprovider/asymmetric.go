package cryptoprovider

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

// Asymmetric encryption algorithm codes.
const (
	CodeRSA    = "RSA"
	CodeX25519 = "X25519"
)

const rsaEncryptionBits = 2048

// RSAProvider implements RSA-OAEP with SHA-256. Keys are PEM encoded
// (PKIX public, PKCS#8 private).
type RSAProvider struct{}

// NewRSAProvider returns the RSA-OAEP encryption provider.
func NewRSAProvider() *RSAProvider { return &RSAProvider{} }

func (RSAProvider) Code() string { return CodeRSA }

func (RSAProvider) GenerateKeyPair() (string, string, error) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaEncryptionBits)
	if err != nil {
		return "", "", fmt.Errorf("RSA: generate key: %w", err)
	}
	return encodeKeyPair(priv, &priv.PublicKey)
}

func (RSAProvider) Encrypt(plaintext []byte, publicKey string) (string, error) {
	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKey))
	if err != nil {
		return "", fmt.Errorf("RSA: parse public key: %w", err)
	}
	out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	if err != nil {
		return "", fmt.Errorf("RSA: encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

func (RSAProvider) Decrypt(ciphertext, privateKey string) ([]byte, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKey))
	if err != nil {
		return nil, fmt.Errorf("RSA: parse private key: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: RSA: decode: %v", domain.ErrDecryption, err)
	}
	out, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: RSA: %v", domain.ErrDecryption, err)
	}
	return out, nil
}

// X25519Provider encrypts with age to an X25519 recipient. Keys use the age
// text encodings ("age1..." and "AGE-SECRET-KEY-1...").
type X25519Provider struct{}

// NewX25519Provider returns the age X25519 encryption provider.
func NewX25519Provider() *X25519Provider { return &X25519Provider{} }

func (X25519Provider) Code() string { return CodeX25519 }

func (X25519Provider) GenerateKeyPair() (string, string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("X25519: generate identity: %w", err)
	}
	return identity.Recipient().String(), identity.String(), nil
}

func (X25519Provider) Encrypt(plaintext []byte, publicKey string) (string, error) {
	recipient, err := age.ParseX25519Recipient(strings.TrimSpace(publicKey))
	if err != nil {
		return "", fmt.Errorf("X25519: parse recipient: %w", err)
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", fmt.Errorf("X25519: encrypt: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("X25519: encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("X25519: finalize: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (X25519Provider) Decrypt(ciphertext, privateKey string) ([]byte, error) {
	identity, err := age.ParseX25519Identity(strings.TrimSpace(privateKey))
	if err != nil {
		return nil, fmt.Errorf("X25519: parse identity: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: X25519: decode: %v", domain.ErrDecryption, err)
	}
	r, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: X25519: %v", domain.ErrDecryption, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: X25519: %v", domain.ErrDecryption, err)
	}
	return out, nil
}

// encodeKeyPair PEM-encodes priv as PKCS#8 and pub as PKIX.
func encodeKeyPair(priv, pub any) (string, string, error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", "", fmt.Errorf("marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	return string(pubPEM), string(privPEM), nil
}
