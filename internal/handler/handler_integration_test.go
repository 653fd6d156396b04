package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"taskhub/internal/middleware"
	"taskhub/internal/model"
	"taskhub/pkg/config"
	"taskhub/pkg/database"
	"taskhub/pkg/jwtutil"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	jwtutil.Initialize(&config.JWTConfig{SigningKey: "handler-test-key", ExpirationHours: 1})

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Printf("docker not available, running handler tests without a database: %v", err)
		os.Exit(m.Run())
	}

	resource, err := pool.Run("postgres", "15", []string{
		"POSTGRES_USER=taskhub",
		"POSTGRES_PASSWORD=taskhub",
		"POSTGRES_DB=taskhub_test",
	})
	if err != nil {
		log.Printf("could not start postgres, running handler tests without a database: %v", err)
		os.Exit(m.Run())
	}

	dsn := fmt.Sprintf(
		"host=localhost port=%s user=taskhub password=taskhub dbname=taskhub_test sslmode=disable",
		resource.GetPort("5432/tcp"),
	)

	if err := pool.Retry(func() error {
		// Same error translation as pkg/database.InitDB, so unique-index
		// violations surface as gorm.ErrDuplicatedKey here too.
		testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		if err != nil {
			return err
		}
		sqlDB, err := testDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	}); err != nil {
		log.Fatalf("could not connect to postgres: %v", err)
	}

	if err := database.MigrateModels(testDB); err != nil {
		log.Fatalf("could not migrate: %v", err)
	}
	database.DB = testDB

	code := m.Run()

	if err := pool.Purge(resource); err != nil {
		log.Printf("could not purge postgres container: %v", err)
	}
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("database not available")
	}
}

func newTestServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	auth := e.Group("/auth")
	auth.POST("/register-tenant", RegisterTenant)
	auth.POST("/login", Login)

	api := e.Group("", middleware.AuthMiddleware)
	api.PUT("/users/:id", UpdateUser)
	api.DELETE("/users/:id", DeleteUser)
	api.POST("/projects", CreateProject)
	api.GET("/projects/:id", GetProject)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, token, body string) (int, Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func seedTenant(t *testing.T, maxUsers, maxProjects int) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{
		Name:        "Handler Test " + uuid.NewString()[:8],
		Subdomain:   "handler-" + uuid.NewString()[:8],
		Status:      model.TenantStatusActive,
		MaxUsers:    maxUsers,
		MaxProjects: maxProjects,
	}
	require.NoError(t, testDB.Create(tenant).Error)
	return tenant
}

func seedUser(t *testing.T, tenantID uuid.UUID, role model.Role, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		TenantID:     &tenantID,
		Email:        uuid.NewString()[:8] + "@handler.test",
		PasswordHash: string(hash),
		FullName:     "Handler Test User",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, testDB.Create(user).Error)
	return user
}

func tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := jwtutil.GenerateToken(user)
	require.NoError(t, err)
	return token
}

func TestRegisterTenant_DuplicateSubdomain(t *testing.T) {
	requireDB(t)
	e := newTestServer()

	subdomain := "dupecheck-" + uuid.NewString()[:8]
	body := func(name, email string) string {
		return fmt.Sprintf(`{"tenant_name":%q,"subdomain":%q,"admin_email":%q,"admin_password":"long-enough-pw","admin_full_name":"Admin"}`,
			name, subdomain, email)
	}

	code, env := doJSON(t, e, http.MethodPost, "/auth/register-tenant", "", body("First Org", "first@dupe.test"))
	require.Equal(t, http.StatusCreated, code)
	require.True(t, env.Success)

	code, env = doJSON(t, e, http.MethodPost, "/auth/register-tenant", "", body("Second Org", "second@dupe.test"))
	require.Equal(t, http.StatusConflict, code)
	require.False(t, env.Success)
	require.Equal(t, "subdomain already exists", env.Message)

	var tenants []model.Tenant
	require.NoError(t, testDB.Where("subdomain = ?", subdomain).Find(&tenants).Error)
	require.Len(t, tenants, 1)
	require.Equal(t, "First Org", tenants[0].Name)
}

func TestRegisterTenant_ConcurrentDuplicateSubdomain(t *testing.T) {
	requireDB(t)
	e := newTestServer()

	subdomain := "race-" + uuid.NewString()[:8]
	const attempts = 4

	var wg sync.WaitGroup
	codes := make([]int, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"tenant_name":"Race Org %d","subdomain":%q,"admin_email":"race%d@race.test","admin_password":"long-enough-pw","admin_full_name":"Admin"}`,
				i, subdomain, i)
			codes[i], _ = doJSON(t, e, http.MethodPost, "/auth/register-tenant", "", body)
		}(i)
	}
	wg.Wait()

	created, conflicted := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
		default:
			t.Errorf("unexpected status %d for concurrent registration", code)
		}
	}
	require.Equal(t, 1, created)
	require.Equal(t, attempts-1, conflicted)

	var count int64
	require.NoError(t, testDB.Model(&model.Tenant{}).Where("subdomain = ?", subdomain).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCreate_DuplicateSubdomainTranslatesToDuplicatedKey(t *testing.T) {
	requireDB(t)
	tenant := seedTenant(t, 5, 3)

	err := testDB.Create(&model.Tenant{
		Name:      "Clone",
		Subdomain: tenant.Subdomain,
		Status:    model.TenantStatusActive,
	}).Error
	require.Error(t, err)
	require.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "unique violation should translate, got %v", err)
}

func TestLogin_UniformUnauthorizedMessage(t *testing.T) {
	requireDB(t)
	e := newTestServer()

	tenant := seedTenant(t, 5, 3)
	user := seedUser(t, tenant.ID, model.RoleUser, "correct-password")

	code, unknown := doJSON(t, e, http.MethodPost, "/auth/login", "",
		`{"email":"nobody@handler.test","password":"whatever-pw"}`)
	require.Equal(t, http.StatusUnauthorized, code)

	code, wrongPw := doJSON(t, e, http.MethodPost, "/auth/login", "",
		fmt.Sprintf(`{"email":%q,"password":"wrong-password"}`, user.Email))
	require.Equal(t, http.StatusUnauthorized, code)

	// The body must not reveal whether the email exists.
	require.Equal(t, unknown.Message, wrongPw.Message)

	code, env := doJSON(t, e, http.MethodPost, "/auth/login", "",
		fmt.Sprintf(`{"email":%q,"password":"correct-password"}`, user.Email))
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success)
}

func TestUpdateUser_SelfRoleEscalationLeavesRowUnchanged(t *testing.T) {
	requireDB(t)
	e := newTestServer()

	tenant := seedTenant(t, 5, 3)
	user := seedUser(t, tenant.ID, model.RoleUser, "member-password")

	code, env := doJSON(t, e, http.MethodPut, "/users/"+user.ID.String(), tokenFor(t, user),
		`{"role":"tenant_admin"}`)
	require.Equal(t, http.StatusForbidden, code)
	require.False(t, env.Success)

	var reloaded model.User
	require.NoError(t, testDB.First(&reloaded, "id = ?", user.ID).Error)
	require.Equal(t, model.RoleUser, reloaded.Role)
}

func TestDeleteUser_UnassignsTasks(t *testing.T) {
	requireDB(t)
	e := newTestServer()

	tenant := seedTenant(t, 5, 3)
	admin := seedUser(t, tenant.ID, model.RoleTenantAdmin, "admin-password")
	member := seedUser(t, tenant.ID, model.RoleUser, "member-password")

	project := &model.Project{
		TenantID:  tenant.ID,
		Name:      "Cleanup",
		Status:    model.ProjectStatusActive,
		CreatedBy: admin.ID,
	}
	require.NoError(t, testDB.Create(project).Error)

	task := &model.Task{
		ProjectID:  project.ID,
		TenantID:   tenant.ID,
		Title:      "Assigned work",
		Status:     model.TaskStatusTodo,
		Priority:   model.TaskPriorityMedium,
		AssignedTo: &member.ID,
	}
	require.NoError(t, testDB.Create(task).Error)

	code, env := doJSON(t, e, http.MethodDelete, "/users/"+member.ID.String(), tokenFor(t, admin), "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success)

	var deleted int64
	require.NoError(t, testDB.Model(&model.User{}).Where("id = ?", member.ID).Count(&deleted).Error)
	require.EqualValues(t, 0, deleted)

	var reloaded model.Task
	require.NoError(t, testDB.First(&reloaded, "id = ?", task.ID).Error)
	require.Nil(t, reloaded.AssignedTo)
}

func TestGetProject_CrossTenantReadsAsNotFound(t *testing.T) {
	requireDB(t)
	e := newTestServer()

	tenantA := seedTenant(t, 5, 3)
	tenantB := seedTenant(t, 5, 3)
	owner := seedUser(t, tenantA.ID, model.RoleUser, "owner-password")
	outsider := seedUser(t, tenantB.ID, model.RoleUser, "outsider-password")

	project := &model.Project{
		TenantID:  tenantA.ID,
		Name:      "Private",
		Status:    model.ProjectStatusActive,
		CreatedBy: owner.ID,
	}
	require.NoError(t, testDB.Create(project).Error)

	code, env := doJSON(t, e, http.MethodGet, "/projects/"+project.ID.String(), tokenFor(t, outsider), "")
	require.Equal(t, http.StatusNotFound, code)
	require.False(t, env.Success)

	code, _ = doJSON(t, e, http.MethodGet, "/projects/"+project.ID.String(), tokenFor(t, owner), "")
	require.Equal(t, http.StatusOK, code)
}

func TestCreateProject_SuperAdminRejected(t *testing.T) {
	e := newTestServer()

	super := &model.User{
		ID:    uuid.New(),
		Email: "root@handler.test",
		Role:  model.RoleSuperAdmin,
	}
	tenantID := uuid.New()

	code, env := doJSON(t, e, http.MethodPost, "/projects?tenant_id="+tenantID.String(), tokenFor(t, super),
		`{"name":"Operator Project"}`)
	require.Equal(t, http.StatusForbidden, code)
	require.False(t, env.Success)
	require.Equal(t, "projects are created by tenant members", env.Message)
}
