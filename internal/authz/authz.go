// Package authz is the single place request handlers consult before touching
// tenant data. Every check receives the caller (from token claims) and the
// target resource's tenant/owner; deny rules are evaluated before any allow.
package authz

import (
	"taskhub/internal/apperr"
	"taskhub/internal/model"

	"github.com/google/uuid"
)

// Permission names an action on a resource kind.
type Permission string

const (
	TenantRead         Permission = "tenant:read"
	TenantUpdateName   Permission = "tenant:update_name"
	TenantUpdateLimits Permission = "tenant:update_limits"
	TenantList         Permission = "tenant:list"

	UserCreate        Permission = "user:create"
	UserList          Permission = "user:list"
	UserUpdateProfile Permission = "user:update_profile"
	UserUpdateRole    Permission = "user:update_role"
	UserDelete        Permission = "user:delete"

	ProjectCreate Permission = "project:create"
	ProjectRead   Permission = "project:read"
	ProjectUpdate Permission = "project:update"
	ProjectDelete Permission = "project:delete"

	TaskCreate Permission = "task:create"
	TaskRead   Permission = "task:read"
	TaskUpdate Permission = "task:update"
)

// Actor is the authenticated caller as carried in its token claims.
type Actor struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	Role     model.Role
}

// Target describes the resource being acted on. TenantID is the tenant that
// owns the resource; OwnerID is the project creator or, for profile
// operations, the user row's own id.
type Target struct {
	TenantID *uuid.UUID
	OwnerID  *uuid.UUID
}

// condition is the extra requirement a role must meet inside its own tenant.
type condition int

const (
	never condition = iota
	always
	selfOnly  // target owner must be the actor
	ownerOnly // actor must be the creator of the target
	notSelf   // target owner must NOT be the actor
)

// permission matrix for tenant-bound roles. super_admin is handled before
// the table is consulted and tenant membership is checked first, so a table
// entry only ever grants access within the actor's own tenant.
var matrix = map[model.Role]map[Permission]condition{
	model.RoleTenantAdmin: {
		TenantRead:        always,
		TenantUpdateName:  always,
		UserCreate:        always,
		UserList:          always,
		UserUpdateProfile: always,
		UserUpdateRole:    always,
		UserDelete:        notSelf,
		ProjectCreate:     always,
		ProjectRead:       always,
		ProjectUpdate:     always,
		ProjectDelete:     always,
		TaskCreate:        always,
		TaskRead:          always,
		TaskUpdate:        always,
	},
	model.RoleUser: {
		UserUpdateProfile: selfOnly,
		ProjectCreate:     always,
		ProjectRead:       always,
		ProjectUpdate:     ownerOnly,
		ProjectDelete:     ownerOnly,
		TaskCreate:        always,
		TaskRead:          always,
		TaskUpdate:        always,
	},
}

// Can reports whether the actor may perform perm against the target. It
// returns nil on allow and an apperr.Authorization on any deny; callers
// surface that error unchanged as the 403 response.
func Can(actor Actor, perm Permission, target Target) error {
	// Super admins cross tenant boundaries for every operation.
	if actor.Role == model.RoleSuperAdmin {
		return nil
	}

	// A tenant-less non-super-admin is an invalid state; deny outright.
	if actor.TenantID == nil {
		return apperr.Authorization("caller has no tenant context")
	}

	// Tenant isolation: target must live in the caller's tenant.
	if target.TenantID == nil || *target.TenantID != *actor.TenantID {
		return apperr.Authorization("access denied")
	}

	perms, ok := matrix[actor.Role]
	if !ok {
		return apperr.Authorization("unknown role")
	}

	switch perms[perm] {
	case always:
		return nil
	case selfOnly:
		if target.OwnerID != nil && *target.OwnerID == actor.UserID {
			return nil
		}
		return apperr.Authorization("access denied")
	case ownerOnly:
		if target.OwnerID != nil && *target.OwnerID == actor.UserID {
			return nil
		}
		return apperr.Authorization("only the creator or an admin may do this")
	case notSelf:
		if target.OwnerID != nil && *target.OwnerID == actor.UserID {
			return apperr.Authorization("cannot delete yourself")
		}
		return nil
	}
	return apperr.Authorization("insufficient permissions")
}

// RequireSuperAdmin guards the few operations with no tenant target at all,
// such as listing every tenant.
func RequireSuperAdmin(actor Actor) error {
	if actor.Role.IsSuperAdmin() {
		return nil
	}
	return apperr.Authorization("super admin only")
}

// SameTenant is the bare isolation check used by read paths that have no
// finer-grained rule: the target must belong to the actor's tenant unless
// the actor is a super admin.
func SameTenant(actor Actor, tenantID uuid.UUID) error {
	if actor.Role == model.RoleSuperAdmin {
		return nil
	}
	if actor.TenantID == nil || *actor.TenantID != tenantID {
		return apperr.Authorization("access denied")
	}
	return nil
}
