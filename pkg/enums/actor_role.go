package enums

import "fmt"

// ActorRole represents a tenant-level permissions role.
type ActorRole string

const (
	ActorRoleOwner       ActorRole = "owner"
	ActorRoleAdmin       ActorRole = "admin"
	ActorRoleSales       ActorRole = "sales"
	ActorRoleEngineering ActorRole = "engineering"
	ActorRoleManager     ActorRole = "manager"
	ActorRoleViewer      ActorRole = "viewer"
)

var validActorRoles = []ActorRole{
	ActorRoleOwner,
	ActorRoleAdmin,
	ActorRoleSales,
	ActorRoleEngineering,
	ActorRoleManager,
	ActorRoleViewer,
}

// String implements fmt.Stringer.
func (a ActorRole) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActorRole.
func (a ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsElevated reports whether the role carries tenant-wide administrative power.
func (a ActorRole) IsElevated() bool {
	return a == ActorRoleAdmin || a == ActorRoleOwner
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
