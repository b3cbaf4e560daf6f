// Package rbac gates routes by the caller's role.
package rbac

// Roles a user account can hold.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleCashier    = "cashier"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleCashier:
		return true
	}
	return false
}

// Managers may administer user accounts.
var Managers = []string{RoleSuperAdmin, RoleAdmin}
