package store

import (
	"taskhub/internal/apperr"
	"taskhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantByID resolves a tenant by primary key.
func TenantByID(db *gorm.DB, id uuid.UUID) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := db.First(&tenant, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "tenant not found")
	}
	return &tenant, nil
}

// TenantBySubdomain resolves a tenant by its globally unique subdomain.
func TenantBySubdomain(db *gorm.DB, subdomain string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := db.First(&tenant, "subdomain = ?", subdomain).Error; err != nil {
		return nil, notFoundOr(err, "tenant not found")
	}
	return &tenant, nil
}

// TenantStats summarizes how much of its quota a tenant is using.
type TenantStats struct {
	TotalUsers    int64 `json:"total_users"`
	TotalProjects int64 `json:"total_projects"`
	TotalTasks    int64 `json:"total_tasks"`
}

// StatsForTenant counts the tenant's users, projects and tasks.
func StatsForTenant(db *gorm.DB, tenantID uuid.UUID) (*TenantStats, error) {
	var stats TenantStats
	if err := db.Model(&model.User{}).Where("tenant_id = ?", tenantID).Count(&stats.TotalUsers).Error; err != nil {
		return nil, apperr.Internal("storage failure", err)
	}
	if err := db.Model(&model.Project{}).Where("tenant_id = ?", tenantID).Count(&stats.TotalProjects).Error; err != nil {
		return nil, apperr.Internal("storage failure", err)
	}
	if err := db.Model(&model.Task{}).Where("tenant_id = ?", tenantID).Count(&stats.TotalTasks).Error; err != nil {
		return nil, apperr.Internal("storage failure", err)
	}
	return &stats, nil
}

// TenantListFilter narrows the super-admin tenant listing.
type TenantListFilter struct {
	Status           string
	SubscriptionPlan string
}

// ListTenants returns a page of tenants plus the unpaginated total. Only the
// super-admin listing endpoint reaches this; it is the one read in the
// system with no tenant scope.
func ListTenants(db *gorm.DB, filter TenantListFilter, page Page) ([]model.Tenant, int64, error) {
	q := db.Model(&model.Tenant{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.SubscriptionPlan != "" {
		q = q.Where("subscription_plan = ?", filter.SubscriptionPlan)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("storage failure", err)
	}

	var tenants []model.Tenant
	err := q.Order("created_at DESC").
		Limit(page.Size).Offset(page.Offset()).
		Find(&tenants).Error
	if err != nil {
		return nil, 0, apperr.Internal("storage failure", err)
	}
	return tenants, total, nil
}
