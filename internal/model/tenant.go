package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant statuses.
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

// Subscription plans and the limits a fresh registration starts with.
const (
	PlanFree = "free"
	PlanPro  = "pro"

	FreePlanMaxUsers    = 5
	FreePlanMaxProjects = 3
)

// Tenant represents an isolated organization owning its own users,
// projects and tasks. This is the core of the multi-tenant architecture.
type Tenant struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name             string    `json:"name" gorm:"type:varchar(255);not null"`
	Subdomain        string    `json:"subdomain" gorm:"type:varchar(255);uniqueIndex;not null"`
	Status           string    `json:"status" gorm:"type:varchar(50);not null;default:'active'"`
	SubscriptionPlan string    `json:"subscription_plan" gorm:"type:varchar(50);not null;default:'free'"`
	MaxUsers         int       `json:"max_users" gorm:"not null;default:5"`
	MaxProjects      int       `json:"max_projects" gorm:"not null;default:3"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the tenant may be logged into.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// ValidTenantStatus reports whether the submitted literal is a known status.
func ValidTenantStatus(s string) bool {
	return s == TenantStatusActive || s == TenantStatusSuspended
}
