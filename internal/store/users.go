package store

import (
	"errors"

	"taskhub/internal/apperr"
	"taskhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActiveUserByEmail finds an active account for login. Lookups are by email
// alone; the caller resolves the tenant from the stored row, never from
// client input.
func ActiveUserByEmail(db *gorm.DB, email string) (*model.User, error) {
	var user model.User
	err := db.First(&user, "email = ? AND is_active = ?", email, true).Error
	if err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return &user, nil
}

// UserByID loads a user without tenant scoping. Callers must run an authz
// check against the returned row's tenant before acting on it.
func UserByID(db *gorm.DB, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return &user, nil
}

// UserInTenant re-reads a referenced user and confirms it belongs to the
// given tenant. Used to validate task assignees before they are accepted.
func UserInTenant(db *gorm.DB, userID, tenantID uuid.UUID) (*model.User, error) {
	var user model.User
	err := db.First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validation("referenced entity outside tenant")
		}
		return nil, apperr.Internal("storage failure", err)
	}
	if user.TenantID == nil || *user.TenantID != tenantID {
		return nil, apperr.Validation("referenced entity outside tenant")
	}
	return &user, nil
}

// EmailTakenInTenant reports whether the email is already registered inside
// the tenant.
func EmailTakenInTenant(db *gorm.DB, tenantID uuid.UUID, email string) (bool, error) {
	var count int64
	err := db.Model(&model.User{}).
		Where("tenant_id = ? AND email = ?", tenantID, email).
		Count(&count).Error
	if err != nil {
		return false, apperr.Internal("storage failure", err)
	}
	return count > 0, nil
}

// UserListFilter narrows a tenant's user listing.
type UserListFilter struct {
	Search string
	Role   string
}

// ListUsers returns a page of the tenant's users plus the unpaginated total.
func ListUsers(db *gorm.DB, tenantID uuid.UUID, filter UserListFilter, page Page) ([]model.User, int64, error) {
	q := db.Model(&model.User{}).Where("tenant_id = ?", tenantID)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where("email ILIKE ? OR full_name ILIKE ?", pattern, pattern)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("storage failure", err)
	}

	var users []model.User
	err := q.Order("created_at DESC").
		Limit(page.Size).Offset(page.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, 0, apperr.Internal("storage failure", err)
	}
	return users, total, nil
}

// DeleteUser removes a user and unassigns their tasks in one transaction.
// Tasks survive the deletion; only the assignment is cleared.
func DeleteUser(db *gorm.DB, userID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Task{}).
			Where("assigned_to = ?", userID).
			Update("assigned_to", nil).Error
		if err != nil {
			return apperr.Internal("failed to unassign tasks", err)
		}
		if err := tx.Delete(&model.User{}, "id = ?", userID).Error; err != nil {
			return apperr.Internal("failed to delete user", err)
		}
		return nil
	})
}
