// Package audit appends security-relevant actions to an append-only log.
// Writes are best effort: a failed insert is logged and counted, never
// surfaced, because the business operation it describes has already
// succeeded or failed on its own.
package audit

import (
	"taskhub/internal/model"
	"taskhub/pkg/logger"
	"taskhub/prometheus"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actions recorded by the handlers.
const (
	ActionRegisterTenant = "REGISTER_TENANT"
	ActionLogin          = "LOGIN"
	ActionLogout         = "LOGOUT"
	ActionUpdateTenant   = "UPDATE_TENANT"
	ActionCreateUser     = "CREATE_USER"
	ActionUpdateUser     = "UPDATE_USER"
	ActionDeleteUser     = "DELETE_USER"
	ActionCreateProject  = "CREATE_PROJECT"
	ActionUpdateProject  = "UPDATE_PROJECT"
	ActionDeleteProject  = "DELETE_PROJECT"
	ActionCreateTask     = "CREATE_TASK"
	ActionUpdateTask     = "UPDATE_TASK"
)

// Entry describes one recorded action.
type Entry struct {
	TenantID   *uuid.UUID
	UserID     uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	IPAddress  string
}

// Record appends one audit row on the request's own execution context. It
// never returns an error and must be called after the business transaction
// has committed, so a failed audit write cannot roll anything back.
func Record(db *gorm.DB, entry Entry) {
	row := model.AuditLog{
		TenantID:   entry.TenantID,
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		IPAddress:  entry.IPAddress,
	}
	if err := db.Create(&row).Error; err != nil {
		prometheus.RecordAuditFailure()
		logger.GetLogger().Error("audit log write failed",
			zap.String("action", entry.Action),
			zap.String("entity_type", entry.EntityType),
			zap.String("entity_id", entry.EntityID),
			zap.Error(err))
	}
}
