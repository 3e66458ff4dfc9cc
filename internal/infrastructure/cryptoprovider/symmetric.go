package cryptoprovider

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

// KeySize is the key length of every symmetric provider.
const KeySize = 32

// Symmetric algorithm codes.
const (
	CodeAES       = "AES"
	CodeXChaCha20 = "XCHACHA20"
)

// AEADProvider implements ports.SymmetricProvider over any AEAD. Ciphertext
// layout is base64(nonce || sealed).
type AEADProvider struct {
	code    string
	newAEAD func(key []byte) (cipher.AEAD, error)
}

// NewAESProvider returns AES-256-GCM.
func NewAESProvider() *AEADProvider {
	return &AEADProvider{
		code: CodeAES,
		newAEAD: func(key []byte) (cipher.AEAD, error) {
			block, err := aes.NewCipher(key)
			if err != nil {
				return nil, err
			}
			return cipher.NewGCM(block)
		},
	}
}

// NewXChaCha20Provider returns XChaCha20-Poly1305 with 24-byte random nonces.
func NewXChaCha20Provider() *AEADProvider {
	return &AEADProvider{code: CodeXChaCha20, newAEAD: chacha20poly1305.NewX}
}

func (p *AEADProvider) Code() string { return p.code }

func (p *AEADProvider) GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("%s: generate key: %w", p.code, err)
	}
	return key, nil
}

func (p *AEADProvider) Encrypt(plaintext, key []byte) (string, error) {
	aead, err := p.aead(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%s: generate nonce: %w", p.code, err)
	}
	// Seal appends ciphertext and tag after the nonce.
	out := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (p *AEADProvider) Decrypt(ciphertext string, key []byte) ([]byte, error) {
	aead, err := p.aead(key)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %v", domain.ErrDecryption, p.code, err)
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: %s: ciphertext is %d bytes", domain.ErrDecryption, p.code, len(raw))
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDecryption, p.code, err)
	}
	return plaintext, nil
}

func (p *AEADProvider) aead(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%s: key is %d bytes, want %d", p.code, len(key), KeySize)
	}
	aead, err := p.newAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("%s: init cipher: %w", p.code, err)
	}
	return aead, nil
}
