package store

import (
	"encoding/json"
	"time"

	"taskhub/internal/apperr"
	"taskhub/internal/model"

	"github.com/google/uuid"
)

// Partial updates are typed patch structures: a field is applied only when
// it was supplied, and the whole patch becomes one parameterized UPDATE.
// Query text is never assembled from strings.

// OptionalUUID distinguishes "absent" from "explicitly null" in a patch
// body, which plain pointers cannot. Sending null clears the column.
type OptionalUUID struct {
	Set   bool
	Value *uuid.UUID
}

func (o *OptionalUUID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// OptionalTime is the time-valued counterpart of OptionalUUID.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

// TenantPatch updates tenant fields. Everything beyond Name is reserved for
// super admins; handlers reject admin fields for tenant_admin callers before
// Columns is built.
type TenantPatch struct {
	Name             *string `json:"name"`
	Status           *string `json:"status"`
	SubscriptionPlan *string `json:"subscription_plan"`
	MaxUsers         *int    `json:"max_users"`
	MaxProjects      *int    `json:"max_projects"`
}

// HasAdminFields reports whether any field a tenant_admin may not touch was
// supplied.
func (p *TenantPatch) HasAdminFields() bool {
	return p.Status != nil || p.SubscriptionPlan != nil || p.MaxUsers != nil || p.MaxProjects != nil
}

// Columns validates the supplied fields and returns the update set.
func (p *TenantPatch) Columns() (map[string]interface{}, error) {
	cols := map[string]interface{}{}
	if p.Name != nil {
		if *p.Name == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		cols["name"] = *p.Name
	}
	if p.Status != nil {
		if !model.ValidTenantStatus(*p.Status) {
			return nil, apperr.Validation("invalid tenant status")
		}
		cols["status"] = *p.Status
	}
	if p.SubscriptionPlan != nil {
		cols["subscription_plan"] = *p.SubscriptionPlan
	}
	if p.MaxUsers != nil {
		if *p.MaxUsers < 1 {
			return nil, apperr.Validation("max_users must be positive")
		}
		cols["max_users"] = *p.MaxUsers
	}
	if p.MaxProjects != nil {
		if *p.MaxProjects < 1 {
			return nil, apperr.Validation("max_projects must be positive")
		}
		cols["max_projects"] = *p.MaxProjects
	}
	return cols, nil
}

// UserPatch updates user fields. Role and IsActive are admin-only.
type UserPatch struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// HasAdminFields reports whether role or activation state was supplied.
func (p *UserPatch) HasAdminFields() bool {
	return p.Role != nil || p.IsActive != nil
}

// Columns validates the supplied fields and returns the update set.
func (p *UserPatch) Columns() (map[string]interface{}, error) {
	cols := map[string]interface{}{}
	if p.FullName != nil {
		cols["full_name"] = *p.FullName
	}
	if p.Role != nil {
		role, err := model.ParseRole(*p.Role)
		if err != nil {
			return nil, apperr.Validation("invalid role")
		}
		// Promoting a tenant-bound user to a tenant-less role is not a
		// patch operation.
		if role == model.RoleSuperAdmin {
			return nil, apperr.Validation("cannot assign super_admin via update")
		}
		cols["role"] = string(role)
	}
	if p.IsActive != nil {
		cols["is_active"] = *p.IsActive
	}
	return cols, nil
}

// ProjectPatch updates project fields. TenantID and CreatedBy are immutable
// and have no patch field at all.
type ProjectPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Columns validates the supplied fields and returns the update set.
func (p *ProjectPatch) Columns() (map[string]interface{}, error) {
	cols := map[string]interface{}{}
	if p.Name != nil {
		if *p.Name == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		cols["name"] = *p.Name
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Status != nil {
		if !model.ValidProjectStatus(*p.Status) {
			return nil, apperr.Validation("invalid project status")
		}
		cols["status"] = *p.Status
	}
	return cols, nil
}

// TaskPatch updates task fields. AssignedTo and DueDate accept explicit null
// to clear the column; the assignee cross-reference is re-validated by the
// handler whenever AssignedTo is supplied with a value.
type TaskPatch struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	Status      *string      `json:"status"`
	Priority    *string      `json:"priority"`
	AssignedTo  OptionalUUID `json:"assigned_to"`
	DueDate     OptionalTime `json:"due_date"`
}

// Columns validates the supplied fields and returns the update set.
func (p *TaskPatch) Columns() (map[string]interface{}, error) {
	cols := map[string]interface{}{}
	if p.Title != nil {
		if *p.Title == "" {
			return nil, apperr.Validation("title must not be empty")
		}
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Status != nil {
		if !model.ValidTaskStatus(*p.Status) {
			return nil, apperr.Validation("invalid status value")
		}
		cols["status"] = *p.Status
	}
	if p.Priority != nil {
		if !model.ValidTaskPriority(*p.Priority) {
			return nil, apperr.Validation("invalid priority value")
		}
		cols["priority"] = *p.Priority
	}
	if p.AssignedTo.Set {
		if p.AssignedTo.Value != nil {
			cols["assigned_to"] = *p.AssignedTo.Value
		} else {
			cols["assigned_to"] = nil
		}
	}
	if p.DueDate.Set {
		if p.DueDate.Value != nil {
			cols["due_date"] = *p.DueDate.Value
		} else {
			cols["due_date"] = nil
		}
	}
	return cols, nil
}
