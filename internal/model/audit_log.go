package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog is an append-only record of a security-relevant action. Rows are
// never updated or deleted by the application. TenantID is nil for actions
// taken by tenant-less super admins.
type AuditLog struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID   *uuid.UUID `json:"tenant_id" gorm:"type:uuid;index"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:uuid;index"`
	Action     string     `json:"action" gorm:"type:varchar(100);not null"`
	EntityType string     `json:"entity_type" gorm:"type:varchar(50)"`
	EntityID   string     `json:"entity_id" gorm:"type:varchar(64)"`
	IPAddress  string     `json:"ip_address" gorm:"type:varchar(64)"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
