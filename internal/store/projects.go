package store

import (
	"errors"

	"taskhub/internal/apperr"
	"taskhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectByID loads a project without tenant scoping. Callers must run an
// authz check against the returned row's tenant before acting on it.
func ProjectByID(db *gorm.DB, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := db.First(&project, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	return &project, nil
}

// ProjectInTenant loads a project only if it belongs to the given tenant.
// A project in another tenant is indistinguishable from a missing one.
func ProjectInTenant(db *gorm.DB, projectID, tenantID uuid.UUID) (*model.Project, error) {
	var project model.Project
	err := db.First(&project, "id = ? AND tenant_id = ?", projectID, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("project not found")
		}
		return nil, apperr.Internal("storage failure", err)
	}
	return &project, nil
}

// ProjectListFilter narrows a tenant's project listing.
type ProjectListFilter struct {
	Status string
	Search string
}

// ProjectSummary is a project row joined with its creator's name and task
// counts for list responses.
type ProjectSummary struct {
	model.Project
	CreatorName        string `json:"creator_name"`
	TaskCount          int64  `json:"task_count"`
	CompletedTaskCount int64  `json:"completed_task_count"`
}

// ListProjects returns a page of the tenant's projects with creator names
// and task counts, plus the unpaginated total.
func ListProjects(db *gorm.DB, tenantID uuid.UUID, filter ProjectListFilter, page Page) ([]ProjectSummary, int64, error) {
	q := db.Model(&model.Project{}).Where("projects.tenant_id = ?", tenantID)
	if filter.Status != "" {
		q = q.Where("projects.status = ?", filter.Status)
	}
	if filter.Search != "" {
		q = q.Where("projects.name ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("storage failure", err)
	}

	var projects []ProjectSummary
	err := q.
		Select(`projects.*,
			u.full_name AS creator_name,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = projects.id) AS task_count,
			(SELECT COUNT(*) FROM tasks t WHERE t.project_id = projects.id AND t.status = ?) AS completed_task_count`,
			model.TaskStatusCompleted).
		Joins("LEFT JOIN users u ON u.id = projects.created_by").
		Order("projects.created_at DESC").
		Limit(page.Size).Offset(page.Offset()).
		Find(&projects).Error
	if err != nil {
		return nil, 0, apperr.Internal("storage failure", err)
	}
	return projects, total, nil
}

// DeleteProject removes a project and its tasks in one transaction.
func DeleteProject(db *gorm.DB, projectID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Task{}, "project_id = ?", projectID).Error; err != nil {
			return apperr.Internal("failed to delete project tasks", err)
		}
		if err := tx.Delete(&model.Project{}, "id = ?", projectID).Error; err != nil {
			return apperr.Internal("failed to delete project", err)
		}
		return nil
	})
}
