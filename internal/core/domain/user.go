package domain

import "time"

// User models an authenticated actor. Role, group and account memberships are
// stored as id references on the user so a single read yields both hops of the
// permission graph.
type User struct {
	ID                  string          `json:"id"`
	Username            string          `json:"username"`
	Email               string          `json:"email,omitempty"`
	PasswordHash        string          `json:"-"`
	Disabled            bool            `json:"disabled"`
	FailedLoginAttempts int             `json:"-"`
	LastFailedLoginAt   *time.Time      `json:"-"`
	LastLoginAt         *time.Time      `json:"last_login_at,omitempty"`
	AccountIDs          []string        `json:"account_ids"`
	RoleIDs             []string        `json:"role_ids"`
	GroupIDs            []string        `json:"group_ids"`
	SymmetricKeys       []SymmetricKey  `json:"-"`
	AsymmetricKeys      []AsymmetricKey `json:"-"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// AsymmetricKey returns the user's key pair for usage, if any.
func (u *User) AsymmetricKey(usage KeyUsage) (AsymmetricKey, bool) {
	return findAsymmetric(u.AsymmetricKeys, usage)
}

// SetAsymmetricKey stores k, replacing any key with the same usage.
func (u *User) SetAsymmetricKey(k AsymmetricKey) {
	u.AsymmetricKeys = putAsymmetric(u.AsymmetricKeys, k)
}

// SetSymmetricKey stores k, replacing any key with the same usage.
func (u *User) SetSymmetricKey(k SymmetricKey) {
	u.SymmetricKeys = putSymmetric(u.SymmetricKeys, k)
}

// IsMemberOf reports whether the user belongs to accountID.
func (u *User) IsMemberOf(accountID string) bool {
	return contains(u.AccountIDs, accountID)
}

// HasRole reports whether roleID is directly assigned to the user.
func (u *User) HasRole(roleID string) bool {
	return contains(u.RoleIDs, roleID)
}

// InGroup reports whether the user is a member of groupID.
func (u *User) InGroup(groupID string) bool {
	return contains(u.GroupIDs, groupID)
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.AccountIDs = append([]string(nil), u.AccountIDs...)
	c.RoleIDs = append([]string(nil), u.RoleIDs...)
	c.GroupIDs = append([]string(nil), u.GroupIDs...)
	c.SymmetricKeys = append([]SymmetricKey(nil), u.SymmetricKeys...)
	c.AsymmetricKeys = append([]AsymmetricKey(nil), u.AsymmetricKeys...)
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	if u.LastFailedLoginAt != nil {
		t := *u.LastFailedLoginAt
		c.LastFailedLoginAt = &t
	}
	return &c
}

// LockedAt reports whether the user is locked out at now: at least
// maxFailed consecutive failures, the latest within window. maxFailed <= 0
// disables lockout.
func (u *User) LockedAt(now time.Time, maxFailed int, window time.Duration) bool {
	if maxFailed <= 0 || u.FailedLoginAttempts < maxFailed || u.LastFailedLoginAt == nil {
		return false
	}
	return now.Before(u.LastFailedLoginAt.Add(window))
}

// MembershipChange is an atomic edit of a user's id references. Adding and
// removing the same kind of reference in one change is not supported.
type MembershipChange struct {
	AddAccountIDs  []string
	AddRoleIDs     []string
	RemoveRoleIDs  []string
	AddGroupIDs    []string
	RemoveGroupIDs []string
}

// Apply performs c on u in memory. Repositories without atomic set
// operators use it under their own lock.
func (c MembershipChange) Apply(u *User) {
	for _, id := range c.AddAccountIDs {
		u.AccountIDs = AppendUnique(u.AccountIDs, id)
	}
	for _, id := range c.AddRoleIDs {
		u.RoleIDs = AppendUnique(u.RoleIDs, id)
	}
	for _, id := range c.RemoveRoleIDs {
		u.RoleIDs, _ = Remove(u.RoleIDs, id)
	}
	for _, id := range c.AddGroupIDs {
		u.GroupIDs = AppendUnique(u.GroupIDs, id)
	}
	for _, id := range c.RemoveGroupIDs {
		u.GroupIDs, _ = Remove(u.GroupIDs, id)
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AppendUnique appends id to ids unless already present.
func AppendUnique(ids []string, id string) []string {
	if contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

// Remove returns ids without id. The second result reports whether id was present.
func Remove(ids []string, id string) ([]string, bool) {
	out := ids[:0:0]
	found := false
	for _, v := range ids {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	return out, found
}
