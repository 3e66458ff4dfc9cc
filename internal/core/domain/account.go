package domain

import "time"

// Account is a tenant: an isolated namespace of users, groups, roles and permissions.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	SymmetricKeys  []SymmetricKey  `json:"-"`
	AsymmetricKeys []AsymmetricKey `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SetAsymmetricKey stores k, replacing any key with the same usage.
func (a *Account) SetAsymmetricKey(k AsymmetricKey) {
	a.AsymmetricKeys = putAsymmetric(a.AsymmetricKeys, k)
}

// SetSymmetricKey stores k, replacing any key with the same usage.
func (a *Account) SetSymmetricKey(k SymmetricKey) {
	a.SymmetricKeys = putSymmetric(a.SymmetricKeys, k)
}

// AccountSummary is the slice of an account exposed in a UserContext.
type AccountSummary struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
