package model

import "fmt"

// Role determines what a user may do and which tenants they may touch.
type Role string

const (
	// RoleUser is a regular member of a tenant.
	RoleUser Role = "user"
	// RoleTenantAdmin administers a single tenant.
	RoleTenantAdmin Role = "tenant_admin"
	// RoleSuperAdmin is the system-wide operator role and may be tenant-less.
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole validates a role literal coming from a request or a token.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleTenantAdmin, RoleSuperAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsAdmin reports whether the role carries tenant-administration rights.
func (r Role) IsAdmin() bool {
	return r == RoleTenantAdmin || r == RoleSuperAdmin
}

// IsSuperAdmin reports whether the role crosses tenant boundaries.
func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}
