package domain

import "fmt"

// ResourceTypeAll is the wildcard resource type matching every type.
const ResourceTypeAll = "ALL"

// Resource types managed by this service itself.
const (
	ResourceAccount    = "Account"
	ResourceUser       = "User"
	ResourceRole       = "Role"
	ResourceGroup      = "Group"
	ResourcePermission = "Permission"
)

// Action is one of the five permission bits.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionExecute Action = "execute"
)

// ParseAction converts s into an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionExecute:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// ResourceID names a single resource instance, or every instance when unset.
// It replaces the zero-means-all convention so that no real id is ambiguous.
type ResourceID struct {
	id       string
	specific bool
}

// AllInstances matches every instance of a resource type.
var AllInstances = ResourceID{}

// InstanceID returns the ResourceID of one instance.
func InstanceID(id string) ResourceID {
	return ResourceID{id: id, specific: true}
}

// ID returns the instance id and whether one is set.
func (r ResourceID) ID() (string, bool) {
	return r.id, r.specific
}

func (r ResourceID) String() string {
	if !r.specific {
		return "*"
	}
	return r.id
}

// Actions holds the five independent action bits of a permission.
type Actions struct {
	Create  bool `json:"create"`
	Read    bool `json:"read"`
	Update  bool `json:"update"`
	Delete  bool `json:"delete"`
	Execute bool `json:"execute"`
}

// Allows reports whether the bit for a is set.
func (a Actions) Allows(action Action) bool {
	switch action {
	case ActionCreate:
		return a.Create
	case ActionRead:
		return a.Read
	case ActionUpdate:
		return a.Update
	case ActionDelete:
		return a.Delete
	case ActionExecute:
		return a.Execute
	}
	return false
}

// Permission grants actions on a resource type, optionally narrowed to one
// instance, to every role listed in RoleIDs.
type Permission struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"account_id"`
	ResourceType string     `json:"resource_type"`
	ResourceID   ResourceID `json:"-"`
	Actions      Actions    `json:"actions"`
	RoleIDs      []string   `json:"role_ids"`
}

// Matches reports whether p allows action on the given resource.
// A permission narrowed to one instance never matches a request for all instances.
func (p Permission) Matches(action Action, resourceType string, resourceID ResourceID) bool {
	if p.ResourceType != ResourceTypeAll && p.ResourceType != resourceType {
		return false
	}
	if want, ok := p.ResourceID.ID(); ok {
		got, ok := resourceID.ID()
		if !ok || got != want {
			return false
		}
	}
	return p.Actions.Allows(action)
}
