package domain

import "time"

// KeyUsage tags what a key is used for. An owner holds at most one key per usage.
type KeyUsage string

const (
	KeyUsageEncryption KeyUsage = "Encryption"
	KeyUsageSignature  KeyUsage = "Signature"
)

// SymmetricKey holds secret material encrypted under the system key.
// Version records which system key generation produced Key.
type SymmetricKey struct {
	Usage     KeyUsage  `json:"usage"`
	Provider  string    `json:"provider"`
	Version   int       `json:"version"`
	Key       string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// AsymmetricKey holds a clear-text public key and a private key encrypted
// under the system key.
type AsymmetricKey struct {
	ID         string    `json:"id"`
	Usage      KeyUsage  `json:"usage"`
	Provider   string    `json:"provider"`
	Version    int       `json:"version"`
	PublicKey  string    `json:"public_key"`
	PrivateKey string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

func findAsymmetric(keys []AsymmetricKey, usage KeyUsage) (AsymmetricKey, bool) {
	for _, k := range keys {
		if k.Usage == usage {
			return k, true
		}
	}
	return AsymmetricKey{}, false
}

func putAsymmetric(keys []AsymmetricKey, k AsymmetricKey) []AsymmetricKey {
	for i := range keys {
		if keys[i].Usage == k.Usage {
			keys[i] = k
			return keys
		}
	}
	return append(keys, k)
}

func putSymmetric(keys []SymmetricKey, k SymmetricKey) []SymmetricKey {
	for i := range keys {
		if keys[i].Usage == k.Usage {
			keys[i] = k
			return keys
		}
	}
	return append(keys, k)
}
