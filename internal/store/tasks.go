package store

import (
	"errors"

	"taskhub/internal/apperr"
	"taskhub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskInTenant loads a task only if it belongs to the given tenant. Like
// projects, a task in another tenant reads as missing.
func TaskInTenant(db *gorm.DB, taskID, tenantID uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := db.First(&task, "id = ? AND tenant_id = ?", taskID, tenantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("task not found")
		}
		return nil, apperr.Internal("storage failure", err)
	}
	return &task, nil
}

// TaskByID loads a task without tenant scoping, for super-admin paths.
func TaskByID(db *gorm.DB, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "task not found")
	}
	return &task, nil
}

// TaskListFilter narrows a project's task listing.
type TaskListFilter struct {
	Status     string
	Priority   string
	AssignedTo *uuid.UUID
	Search     string
}

// TaskSummary is a task row joined with its assignee for list responses.
type TaskSummary struct {
	model.Task
	AssigneeName  string `json:"assignee_name"`
	AssigneeEmail string `json:"assignee_email"`
}

// ListTasks returns a page of a project's tasks ordered high priority first,
// then by due date, plus the unpaginated total. The tenant filter is applied
// even though the project was already tenant-checked; a task row can never
// leak across tenants through this path.
func ListTasks(db *gorm.DB, projectID, tenantID uuid.UUID, filter TaskListFilter, page Page) ([]TaskSummary, int64, error) {
	q := db.Model(&model.Task{}).
		Where("tasks.project_id = ? AND tasks.tenant_id = ?", projectID, tenantID)
	if filter.Status != "" {
		q = q.Where("tasks.status = ?", filter.Status)
	}
	if filter.Priority != "" {
		q = q.Where("tasks.priority = ?", filter.Priority)
	}
	if filter.AssignedTo != nil {
		q = q.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Search != "" {
		q = q.Where("tasks.title ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("storage failure", err)
	}

	var tasks []TaskSummary
	err := q.
		Select("tasks.*, u.full_name AS assignee_name, u.email AS assignee_email").
		Joins("LEFT JOIN users u ON u.id = tasks.assigned_to").
		Order("CASE tasks.priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END").
		Order("tasks.due_date ASC NULLS LAST").
		Limit(page.Size).Offset(page.Offset()).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, apperr.Internal("storage failure", err)
	}
	return tasks, total, nil
}
