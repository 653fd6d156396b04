package handler

import (
	"net/http"
	"strconv"
	"time"

	"taskhub/internal/apperr"
	"taskhub/internal/audit"
	"taskhub/internal/authz"
	"taskhub/internal/middleware"
	"taskhub/internal/model"
	"taskhub/internal/store"
	"taskhub/pkg/database"
	"taskhub/pkg/logger"
	"taskhub/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// taskForActor loads a task visible to the actor, with the same
// cross-tenant-reads-as-404 behavior as projects.
func taskForActor(db *gorm.DB, actor authz.Actor, taskID uuid.UUID) (*model.Task, error) {
	if actor.Role.IsSuperAdmin() {
		return store.TaskByID(db, taskID)
	}
	if actor.TenantID == nil {
		return nil, apperr.Authorization("caller has no tenant context")
	}
	return store.TaskInTenant(db, taskID, *actor.TenantID)
}

// CreateTask creates a task under a project. The project must be visible to
// the caller and the assignee, if any, must belong to the project's tenant.
func CreateTask(c echo.Context) error {
	log := logger.FromContext(c)
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid project ID")
	}

	project, err := projectForActor(database.GetDB(), actor, projectID)
	if err != nil {
		return err
	}
	if err := authz.Can(actor, authz.TaskCreate, authz.Target{TenantID: &project.TenantID}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	var req struct {
		Title       string     `json:"title" validate:"required"`
		Description string     `json:"description"`
		Priority    string     `json:"priority"`
		AssignedTo  *uuid.UUID `json:"assigned_to"`
		DueDate     *time.Time `json:"due_date"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	priority := req.Priority
	if priority == "" {
		priority = model.TaskPriorityMedium
	}
	if !model.ValidTaskPriority(priority) {
		return apperr.Validation("invalid priority value")
	}
	if req.AssignedTo != nil {
		if _, err := store.UserInTenant(database.GetDB(), *req.AssignedTo, project.TenantID); err != nil {
			return err
		}
	}

	task := model.Task{
		ProjectID:   project.ID,
		TenantID:    project.TenantID,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskStatusTodo,
		Priority:    priority,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := database.GetDB().Create(&task).Error; err != nil {
		return apperr.Internal("task creation failed", err)
	}

	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   &project.TenantID,
		UserID:     actor.UserID,
		Action:     audit.ActionCreateTask,
		EntityType: "task",
		EntityID:   task.ID.String(),
		IPAddress:  c.RealIP(),
	})

	log.Info("Task created",
		zap.String("task_id", task.ID.String()),
		zap.String("project_id", project.ID.String()))

	return respond(c, http.StatusCreated, task)
}

// ListTasks returns a page of a project's tasks, high priority first.
func ListTasks(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid project ID")
	}

	project, err := projectForActor(database.GetDB(), actor, projectID)
	if err != nil {
		return err
	}
	if err := authz.Can(actor, authz.TaskRead, authz.Target{TenantID: &project.TenantID}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	filter := store.TaskListFilter{
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
		Search:   c.QueryParam("search"),
	}
	if filter.Status != "" && !model.ValidTaskStatus(filter.Status) {
		return apperr.Validation("invalid status value")
	}
	if filter.Priority != "" && !model.ValidTaskPriority(filter.Priority) {
		return apperr.Validation("invalid priority value")
	}
	if raw := c.QueryParam("assigned_to"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.Validation("invalid assigned_to")
		}
		filter.AssignedTo = &id
	}

	pageNum, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	page := store.NormalizePage(pageNum, limit, 50, 200)

	defer prometheus.TrackDBOperation("query")(time.Now())
	tasks, total, err := store.ListTasks(database.GetDB(), project.ID, project.TenantID, filter, page)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, echo.Map{
		"tasks": tasks,
		"pagination": Pagination{
			CurrentPage: page.Number,
			TotalPages:  page.TotalPages(total),
			Total:       total,
			Limit:       page.Size,
		},
	})
}

// UpdateTask applies a partial update. The assignee cross-reference is
// re-validated whenever the patch supplies it with a value.
func UpdateTask(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid task ID")
	}

	task, err := taskForActor(database.GetDB(), actor, taskID)
	if err != nil {
		return err
	}
	if err := authz.Can(actor, authz.TaskUpdate, authz.Target{TenantID: &task.TenantID}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	var patch store.TaskPatch
	if err := c.Bind(&patch); err != nil {
		return apperr.Validation("invalid request body")
	}
	cols, err := patch.Columns()
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return apperr.Validation("no updatable fields supplied")
	}
	if patch.AssignedTo.Set && patch.AssignedTo.Value != nil {
		if _, err := store.UserInTenant(database.GetDB(), *patch.AssignedTo.Value, task.TenantID); err != nil {
			return err
		}
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	res := database.GetDB().Model(&model.Task{}).Where("id = ?", taskID).Updates(cols)
	if res.Error != nil {
		return apperr.Internal("failed to update task", res.Error)
	}

	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   &task.TenantID,
		UserID:     actor.UserID,
		Action:     audit.ActionUpdateTask,
		EntityType: "task",
		EntityID:   taskID.String(),
		IPAddress:  c.RealIP(),
	})

	updated, err := taskForActor(database.GetDB(), actor, taskID)
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "Task updated successfully", updated)
}

// UpdateTaskStatus moves a task between the three states. Moves are
// unordered; only the literal is checked, and a bad literal leaves the
// stored status untouched.
func UpdateTaskStatus(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid task ID")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if !model.ValidTaskStatus(req.Status) {
		return apperr.Validation("invalid status value")
	}

	task, err := taskForActor(database.GetDB(), actor, taskID)
	if err != nil {
		return err
	}
	if err := authz.Can(actor, authz.TaskUpdate, authz.Target{TenantID: &task.TenantID}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	res := database.GetDB().Model(&model.Task{}).Where("id = ?", taskID).Update("status", req.Status)
	if res.Error != nil {
		return apperr.Internal("failed to update task status", res.Error)
	}

	return respond(c, http.StatusOK, echo.Map{
		"id":     task.ID,
		"status": req.Status,
	})
}
