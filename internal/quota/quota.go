// Package quota enforces per-tenant subscription limits. A reservation is
// only meaningful inside the transaction that performs the insert: the
// tenant row is locked FOR UPDATE, so two concurrent creations against a
// tenant sitting one below its limit serialize and exactly one succeeds.
// Rolling the transaction back releases the lock and discards the
// reservation along with any partially-built entity.
package quota

import (
	"errors"
	"fmt"

	"taskhub/internal/apperr"
	"taskhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Resource kinds a tenant limit applies to.
const (
	ResourceUser    = "user"
	ResourceProject = "project"
)

// Reserve locks the tenant row and checks the current count of kind against
// the tenant's limit. It must run inside the caller's transaction, before
// the insert the reservation covers.
func Reserve(tx *gorm.DB, tenantID uuid.UUID, kind string) error {
	var tenant model.Tenant
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&tenant, "id = ?", tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("tenant not found")
		}
		return apperr.Internal("failed to lock tenant", err)
	}

	var count int64
	var limit int
	switch kind {
	case ResourceUser:
		limit = tenant.MaxUsers
		err = tx.Model(&model.User{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	case ResourceProject:
		limit = tenant.MaxProjects
		err = tx.Model(&model.Project{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	default:
		return apperr.Internal(fmt.Sprintf("unknown quota resource %q", kind), nil)
	}
	if err != nil {
		return apperr.Internal("failed to count tenant resources", err)
	}

	if count >= int64(limit) {
		return apperr.LimitExceeded(fmt.Sprintf("subscription %s limit reached", kind))
	}
	return nil
}

// ReserveUser reserves capacity for one additional user.
func ReserveUser(tx *gorm.DB, tenantID uuid.UUID) error {
	return Reserve(tx, tenantID, ResourceUser)
}

// ReserveProject reserves capacity for one additional project.
func ReserveProject(tx *gorm.DB, tenantID uuid.UUID) error {
	return Reserve(tx, tenantID, ResourceProject)
}
