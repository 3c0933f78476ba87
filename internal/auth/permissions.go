package auth

import "slices"

// Permission represents a named capability in the API.
type Permission string

// Permission constants.
const (
	PermStateRead     Permission = "state:read"
	PermEntityOperate Permission = "entity:operate"
	PermConfigManage  Permission = "config:manage"
)

// rolePermissions maps each role to its granted permissions.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermStateRead,
	},
	RoleOperator: {
		PermStateRead,
		PermEntityOperate,
	},
	RoleAdmin: {
		PermStateRead,
		PermEntityOperate,
		PermConfigManage,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	return slices.Clone(perms)
}
