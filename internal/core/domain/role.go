package domain

import "time"

// System-defined role names seeded into every account.
const (
	RoleOwner = "Owner"
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Role is an account-scoped bundle of permissions. System-defined roles cannot
// be deleted.
type Role struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	Name            string    `json:"name"`
	IsSystemDefined bool      `json:"is_system_defined"`
	CreatedAt       time.Time `json:"created_at"`
}

// Group is an account-scoped set of users. Members inherit the group's roles.
type Group struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	RoleIDs   []string  `json:"role_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// GrantsRole reports whether roleID is assigned to the group.
func (g *Group) GrantsRole(roleID string) bool {
	return contains(g.RoleIDs, roleID)
}

// SystemRoleGrants lists the action bits each system role receives on the
// "ALL" resource type for every instance.
var SystemRoleGrants = map[string]Actions{
	RoleOwner: {Create: true, Read: true, Update: true, Delete: true, Execute: true},
	RoleAdmin: {Create: true, Read: true, Update: true, Execute: true},
	RoleUser:  {Read: true},
}
