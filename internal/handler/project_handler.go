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
	"taskhub/internal/quota"
	"taskhub/internal/store"
	"taskhub/pkg/database"
	"taskhub/pkg/logger"
	"taskhub/prometheus"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// workingTenant resolves the tenant a request operates in. Tenant-bound
// callers always get their own tenant; a super admin must qualify the
// request with ?tenant_id= explicitly, which is the only way the implicit
// scope is ever bypassed.
func workingTenant(c echo.Context, actor authz.Actor) (uuid.UUID, error) {
	if actor.Role.IsSuperAdmin() {
		raw := c.QueryParam("tenant_id")
		if raw == "" {
			return uuid.Nil, apperr.Validation("tenant_id query parameter required for super admin")
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, apperr.Validation("invalid tenant_id")
		}
		return id, nil
	}
	if actor.TenantID == nil {
		return uuid.Nil, apperr.Authorization("caller has no tenant context")
	}
	return *actor.TenantID, nil
}

// projectForActor loads a project visible to the actor. For tenant-bound
// callers a project in another tenant reads as not found; a super admin may
// load any project.
func projectForActor(db *gorm.DB, actor authz.Actor, projectID uuid.UUID) (*model.Project, error) {
	if actor.Role.IsSuperAdmin() {
		return store.ProjectByID(db, projectID)
	}
	if actor.TenantID == nil {
		return nil, apperr.Authorization("caller has no tenant context")
	}
	return store.ProjectInTenant(db, projectID, *actor.TenantID)
}

// CreateProject creates a project in the caller's tenant, reserving quota
// and inserting inside one transaction.
func CreateProject(c echo.Context) error {
	log := logger.FromContext(c)
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	// created_by must reference a user inside the project's tenant, so a
	// tenant-less super admin cannot be the creator.
	if actor.Role.IsSuperAdmin() {
		prometheus.RecordAuthError("forbidden")
		return apperr.Authorization("projects are created by tenant members")
	}
	tenantID, err := workingTenant(c, actor)
	if err != nil {
		return err
	}
	if err := authz.Can(actor, authz.ProjectCreate, authz.Target{TenantID: &tenantID}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	var req struct {
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
		Status      string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	status := req.Status
	if status == "" {
		status = model.ProjectStatusActive
	}
	if !model.ValidProjectStatus(status) {
		return apperr.Validation("invalid project status")
	}

	project := model.Project{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
		CreatedBy:   actor.UserID,
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := quota.ReserveProject(tx, tenantID); err != nil {
			return err
		}
		if err := tx.Create(&project).Error; err != nil {
			return apperr.Internal("project creation failed", err)
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindLimitExceeded {
			prometheus.RecordQuotaRejection(quota.ResourceProject)
		}
		return err
	}

	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   &tenantID,
		UserID:     actor.UserID,
		Action:     audit.ActionCreateProject,
		EntityType: "project",
		EntityID:   project.ID.String(),
		IPAddress:  c.RealIP(),
	})

	log.Info("Project created",
		zap.String("project_id", project.ID.String()),
		zap.String("tenant_id", tenantID.String()))

	return respond(c, http.StatusCreated, project)
}

// ListProjects returns a page of the working tenant's projects, with
// creator names and task counts.
func ListProjects(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	tenantID, err := workingTenant(c, actor)
	if err != nil {
		return err
	}
	if err := authz.Can(actor, authz.ProjectRead, authz.Target{TenantID: &tenantID}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	pageNum, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	page := store.NormalizePage(pageNum, limit, 20, 100)
	filter := store.ProjectListFilter{
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
	}
	if filter.Status != "" && !model.ValidProjectStatus(filter.Status) {
		return apperr.Validation("invalid project status")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	projects, total, err := store.ListProjects(database.GetDB(), tenantID, filter, page)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, echo.Map{
		"projects": projects,
		"pagination": Pagination{
			CurrentPage: page.Number,
			TotalPages:  page.TotalPages(total),
			Total:       total,
			Limit:       page.Size,
		},
	})
}

// GetProject returns a single project. Cross-tenant IDs read as 404,
// never as another tenant's data.
func GetProject(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid project ID")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	project, err := projectForActor(database.GetDB(), actor, projectID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, project)
}

// UpdateProject applies a partial update; plain users may only touch
// projects they created.
func UpdateProject(c echo.Context) error {
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
	if err := authz.Can(actor, authz.ProjectUpdate, authz.Target{TenantID: &project.TenantID, OwnerID: &project.CreatedBy}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	var patch store.ProjectPatch
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

	defer prometheus.TrackDBOperation("update")(time.Now())
	res := database.GetDB().Model(&model.Project{}).Where("id = ?", projectID).Updates(cols)
	if res.Error != nil {
		return apperr.Internal("failed to update project", res.Error)
	}

	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   &project.TenantID,
		UserID:     actor.UserID,
		Action:     audit.ActionUpdateProject,
		EntityType: "project",
		EntityID:   projectID.String(),
		IPAddress:  c.RealIP(),
	})

	updated, err := store.ProjectByID(database.GetDB(), projectID)
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "Project updated successfully", updated)
}

// DeleteProject removes a project and its tasks; same creator-or-admin rule
// as updates.
func DeleteProject(c echo.Context) error {
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
	if err := authz.Can(actor, authz.ProjectDelete, authz.Target{TenantID: &project.TenantID, OwnerID: &project.CreatedBy}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteProject(database.GetDB(), projectID); err != nil {
		return err
	}

	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   &project.TenantID,
		UserID:     actor.UserID,
		Action:     audit.ActionDeleteProject,
		EntityType: "project",
		EntityID:   projectID.String(),
		IPAddress:  c.RealIP(),
	})

	log.Info("Project deleted", zap.String("project_id", projectID.String()))
	return respondMessage(c, http.StatusOK, "Project deleted successfully", nil)
}
