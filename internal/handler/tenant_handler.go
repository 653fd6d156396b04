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
)

func tenantIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid tenant ID")
	}
	return id, nil
}

// GetTenant returns a tenant with its usage stats. Tenant admins see their
// own tenant; super admins see any.
func GetTenant(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	id, err := tenantIDParam(c)
	if err != nil {
		return err
	}
	if err := authz.Can(actor, authz.TenantRead, authz.Target{TenantID: &id}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	tenant, err := store.TenantByID(database.GetDB(), id)
	if err != nil {
		return err
	}
	stats, err := store.StatsForTenant(database.GetDB(), id)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, echo.Map{
		"id":                tenant.ID,
		"name":              tenant.Name,
		"subdomain":         tenant.Subdomain,
		"status":            tenant.Status,
		"subscription_plan": tenant.SubscriptionPlan,
		"max_users":         tenant.MaxUsers,
		"max_projects":      tenant.MaxProjects,
		"created_at":        tenant.CreatedAt,
		"stats":             stats,
	})
}

// UpdateTenant applies a partial update. Tenant admins may only rename;
// status, plan and limits are super-admin fields and denied before anything
// is written.
func UpdateTenant(c echo.Context) error {
	log := logger.FromContext(c)
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	id, err := tenantIDParam(c)
	if err != nil {
		return err
	}

	var patch store.TenantPatch
	if err := c.Bind(&patch); err != nil {
		return apperr.Validation("invalid request body")
	}

	perm := authz.TenantUpdateName
	if patch.HasAdminFields() {
		if !actor.Role.IsSuperAdmin() {
			prometheus.RecordAuthError("forbidden")
			return apperr.Authorization("tenant admins can only update the name")
		}
		perm = authz.TenantUpdateLimits
	}
	if err := authz.Can(actor, perm, authz.Target{TenantID: &id}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	cols, err := patch.Columns()
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return apperr.Validation("no updatable fields supplied")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	res := database.GetDB().Model(&model.Tenant{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return apperr.Internal("failed to update tenant", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("tenant not found")
	}

	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   &id,
		UserID:     actor.UserID,
		Action:     audit.ActionUpdateTenant,
		EntityType: "tenant",
		EntityID:   id.String(),
		IPAddress:  c.RealIP(),
	})

	tenant, err := store.TenantByID(database.GetDB(), id)
	if err != nil {
		return err
	}
	log.Info("Tenant updated", zap.String("tenant_id", id.String()))
	return respondMessage(c, http.StatusOK, "Tenant updated successfully", tenant)
}

// ListTenants is the super-admin-only paginated listing across all tenants.
func ListTenants(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	if err := authz.RequireSuperAdmin(actor); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	pageNum, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	page := store.NormalizePage(pageNum, limit, 10, 100)

	filter := store.TenantListFilter{
		Status:           c.QueryParam("status"),
		SubscriptionPlan: c.QueryParam("subscription_plan"),
	}
	if filter.Status != "" && !model.ValidTenantStatus(filter.Status) {
		return apperr.Validation("invalid tenant status")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	tenants, total, err := store.ListTenants(database.GetDB(), filter, page)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, echo.Map{
		"tenants": tenants,
		"pagination": Pagination{
			CurrentPage: page.Number,
			TotalPages:  page.TotalPages(total),
			Total:       total,
			Limit:       page.Size,
		},
	})
}
