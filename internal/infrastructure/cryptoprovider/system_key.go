package cryptoprovider

import (
	"context"
	"fmt"

	"github.com/99minutos/iam-engine/internal/core/ports"
)

// StaticSystemKey serves the operator-supplied system key loaded at startup.
// The key never changes while the process runs.
type StaticSystemKey struct {
	key ports.SystemKey
}

// NewStaticSystemKey validates material against the provider's key size.
func NewStaticSystemKey(material []byte, version int, provider string) (*StaticSystemKey, error) {
	if len(material) != KeySize {
		return nil, fmt.Errorf("system key is %d bytes, want %d", len(material), KeySize)
	}
	if version <= 0 {
		return nil, fmt.Errorf("system key version must be positive, got %d", version)
	}
	return &StaticSystemKey{key: ports.SystemKey{
		Material: append([]byte(nil), material...),
		Version:  version,
		Provider: provider,
	}}, nil
}

func (s *StaticSystemKey) GetSystemSymmetricKey(_ context.Context) (ports.SystemKey, error) {
	return s.key, nil
}
