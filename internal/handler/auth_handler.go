package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"taskhub/internal/apperr"
	"taskhub/internal/audit"
	"taskhub/internal/middleware"
	"taskhub/internal/model"
	"taskhub/internal/store"
	"taskhub/pkg/database"
	"taskhub/pkg/jwtutil"
	"taskhub/pkg/logger"
	"taskhub/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Every credential failure returns this exact message so a caller cannot
// tell a missing email from a wrong password.
const invalidCredentials = "invalid credentials"

// RegisterTenant creates a tenant and its first tenant_admin in one
// transaction. A duplicate subdomain rolls everything back with a 409.
func RegisterTenant(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.TenantRegistrationCounter.Inc()

	var req struct {
		TenantName    string `json:"tenant_name" validate:"required"`
		Subdomain     string `json:"subdomain" validate:"required,hostname_rfc1123"`
		AdminEmail    string `json:"admin_email" validate:"required,email"`
		AdminPassword string `json:"admin_password" validate:"required,min=8"`
		AdminFullName string `json:"admin_full_name" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	subdomain := strings.ToLower(strings.TrimSpace(req.Subdomain))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal("registration failed", err)
	}

	tenant := model.Tenant{
		Name:             req.TenantName,
		Subdomain:        subdomain,
		Status:           model.TenantStatusActive,
		SubscriptionPlan: model.PlanFree,
		MaxUsers:         model.FreePlanMaxUsers,
		MaxProjects:      model.FreePlanMaxProjects,
	}
	admin := model.User{
		Email:        req.AdminEmail,
		PasswordHash: string(hash),
		FullName:     req.AdminFullName,
		Role:         model.RoleTenantAdmin,
		IsActive:     true,
	}

	defer prometheus.TrackDBOperation("transaction")(time.Now())
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if _, err := store.TenantBySubdomain(tx, subdomain); err == nil {
			return apperr.Conflict("subdomain already exists")
		} else if apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}
		if err := tx.Create(&tenant).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("subdomain already exists")
			}
			return apperr.Internal("registration failed", err)
		}
		admin.TenantID = &tenant.ID
		if err := tx.Create(&admin).Error; err != nil {
			return apperr.Internal("registration failed", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   &tenant.ID,
		UserID:     admin.ID,
		Action:     audit.ActionRegisterTenant,
		EntityType: "tenant",
		EntityID:   tenant.ID.String(),
		IPAddress:  c.RealIP(),
	})

	log.Info("Tenant registered",
		zap.String("subdomain", tenant.Subdomain),
		zap.String("tenant_id", tenant.ID.String()))

	return respondMessage(c, http.StatusCreated, "Tenant registered successfully", echo.Map{
		"tenant_id": tenant.ID,
		"subdomain": tenant.Subdomain,
		"admin_user": echo.Map{
			"id":        admin.ID,
			"email":     admin.Email,
			"full_name": admin.FullName,
			"role":      admin.Role,
		},
	})
}

// Login validates credentials and tenant status and issues a signed token.
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := store.ActiveUserByEmail(database.GetDB(), req.Email)
	if err != nil {
		prometheus.RecordAuthError("user_not_found")
		return apperr.Authentication(invalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		prometheus.RecordAuthError("invalid_password")
		return apperr.Authentication(invalidCredentials)
	}

	var tenant *model.Tenant
	if user.TenantID != nil {
		tenant, err = store.TenantByID(database.GetDB(), *user.TenantID)
		if err != nil {
			prometheus.RecordAuthError("tenant_not_found")
			return apperr.Authentication(invalidCredentials)
		}
		if !tenant.IsActive() {
			prometheus.RecordAuthError("tenant_suspended")
			return apperr.Authentication("tenant is suspended")
		}
	} else if user.Role != model.RoleSuperAdmin {
		// Tenant-less non-super-admin rows are invalid; never let one in.
		prometheus.RecordAuthError("invalid_account_state")
		return apperr.Authentication(invalidCredentials)
	}

	token, err := jwtutil.GenerateToken(user)
	if err != nil {
		return apperr.Internal("token error", err)
	}

	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   user.TenantID,
		UserID:     user.ID,
		Action:     audit.ActionLogin,
		EntityType: "user",
		EntityID:   user.ID.String(),
		IPAddress:  c.RealIP(),
	})

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)))

	data := echo.Map{
		"token":      token,
		"expires_in": 86400,
		"user": echo.Map{
			"id":        user.ID,
			"email":     user.Email,
			"full_name": user.FullName,
			"role":      user.Role,
			"tenant_id": user.TenantID,
		},
	}
	if tenant != nil {
		data["tenant"] = echo.Map{
			"id":        tenant.ID,
			"name":      tenant.Name,
			"subdomain": tenant.Subdomain,
		}
	}
	return respond(c, http.StatusOK, data)
}

// Me returns the caller's live profile and tenant summary. Claims are
// stateless so this endpoint re-reads the stored rows.
func Me(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := store.UserByID(database.GetDB(), claims.UserID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return apperr.Authentication("account is deactivated")
	}

	data := echo.Map{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"role":      user.Role,
		"is_active": user.IsActive,
	}
	if user.TenantID != nil {
		tenant, err := store.TenantByID(database.GetDB(), *user.TenantID)
		if err != nil {
			return err
		}
		data["tenant"] = echo.Map{
			"id":                tenant.ID,
			"name":              tenant.Name,
			"subdomain":         tenant.Subdomain,
			"subscription_plan": tenant.SubscriptionPlan,
			"max_users":         tenant.MaxUsers,
			"max_projects":      tenant.MaxProjects,
		}
	}
	return respond(c, http.StatusOK, data)
}

// Logout only exists for the audit trail; tokens stay stateless.
func Logout(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return err
	}
	audit.Record(database.GetDB(), audit.Entry{
		TenantID:   claims.TenantID,
		UserID:     claims.UserID,
		Action:     audit.ActionLogout,
		EntityType: "user",
		EntityID:   claims.UserID.String(),
		IPAddress:  c.RealIP(),
	})
	return respondMessage(c, http.StatusOK, "Logged out successfully", nil)
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler(c echo.Context) error {
	prometheus.GetPrometheusHandler().ServeHTTP(c.Response(), c.Request())
	return nil
}
