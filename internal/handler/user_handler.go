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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateUser adds a user to a tenant. Capacity is reserved and the row
// inserted inside one transaction, so concurrent creations at the limit
// serialize on the tenant row and only one wins the last slot.
func CreateUser(c echo.Context) error {
	log := logger.FromContext(c)
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return err
	}
	if err := authz.Can(actor, authz.UserCreate, authz.Target{TenantID: &tenantID}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
		FullName string `json:"full_name" validate:"required"`
		Role     string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	role := model.RoleUser
	if req.Role != "" {
		role, err = model.ParseRole(req.Role)
		if err != nil {
			return apperr.Validation("invalid role")
		}
		// super_admin is tenant-less by definition and can never be
		// created inside a tenant.
		if role == model.RoleSuperAdmin {
			return apperr.Validation("cannot create super_admin within a tenant")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal("user creation failed", err)
	}

	user := model.User{
		TenantID:     &tenantID,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         role,
		IsActive:     true,
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := quota.ReserveUser(tx, tenantID); err != nil {
			return err
		}
		taken, err := store.EmailTakenInTenant(tx, tenantID, req.Email)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("email already exists in this organization")
		}
		if err := tx.Create(&user).Error; err != nil {
			return apperr.Internal("user creation failed", err)
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindLimitExceeded {
			prometheus.RecordQuotaRejection(quota.ResourceUser)
		}
		return err
	}

	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   &tenantID,
		UserID:     actor.UserID,
		Action:     audit.ActionCreateUser,
		EntityType: "user",
		EntityID:   user.ID.String(),
		IPAddress:  c.RealIP(),
	})

	log.Info("User created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	return respondMessage(c, http.StatusCreated, "User created successfully", user)
}

// ListUsers returns a page of a tenant's users.
func ListUsers(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	tenantID, err := tenantIDParam(c)
	if err != nil {
		return err
	}
	if err := authz.Can(actor, authz.UserList, authz.Target{TenantID: &tenantID}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	pageNum, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	page := store.NormalizePage(pageNum, limit, 50, 200)
	filter := store.UserListFilter{
		Search: c.QueryParam("search"),
		Role:   c.QueryParam("role"),
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	users, total, err := store.ListUsers(database.GetDB(), tenantID, filter, page)
	if err != nil {
		return err
	}

	return respond(c, http.StatusOK, echo.Map{
		"users": users,
		"pagination": Pagination{
			CurrentPage: page.Number,
			TotalPages:  page.TotalPages(total),
			Total:       total,
			Limit:       page.Size,
		},
	})
}

// UpdateUser applies a partial update to a user. Which permission is
// consulted depends on what the patch touches: full_name is a profile
// change, role and is_active are admin fields. A plain user patching their
// own role is denied before anything is written.
func UpdateUser(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid user ID")
	}

	var patch store.UserPatch
	if err := c.Bind(&patch); err != nil {
		return apperr.Validation("invalid request body")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	target, err := store.UserByID(database.GetDB(), userID)
	if err != nil {
		return err
	}

	perm := authz.UserUpdateProfile
	if patch.HasAdminFields() {
		perm = authz.UserUpdateRole
	}
	if err := authz.Can(actor, perm, authz.Target{TenantID: target.TenantID, OwnerID: &target.ID}); err != nil {
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

	res := database.GetDB().Model(&model.User{}).Where("id = ?", userID).Updates(cols)
	if res.Error != nil {
		return apperr.Internal("failed to update user", res.Error)
	}

	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   target.TenantID,
		UserID:     actor.UserID,
		Action:     audit.ActionUpdateUser,
		EntityType: "user",
		EntityID:   userID.String(),
		IPAddress:  c.RealIP(),
	})

	updated, err := store.UserByID(database.GetDB(), userID)
	if err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "User updated successfully", updated)
}

// DeleteUser removes a user from their tenant. Their tasks survive with the
// assignment cleared; tenant admins cannot delete themselves.
func DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid user ID")
	}

	target, err := store.UserByID(database.GetDB(), userID)
	if err != nil {
		return err
	}
	if err := authz.Can(actor, authz.UserDelete, authz.Target{TenantID: target.TenantID, OwnerID: &target.ID}); err != nil {
		prometheus.RecordAuthError("forbidden")
		return err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := store.DeleteUser(database.GetDB(), userID); err != nil {
		return err
	}

	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   target.TenantID,
		UserID:     actor.UserID,
		Action:     audit.ActionDeleteUser,
		EntityType: "user",
		EntityID:   userID.String(),
		IPAddress:  c.RealIP(),
	})

	log.Info("User deleted", zap.String("user_id", userID.String()))
	return respondMessage(c, http.StatusOK, "User deleted successfully", nil)
}
