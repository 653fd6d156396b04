package main

import (
	"taskhub/internal/handler"
	"taskhub/internal/middleware"
	"taskhub/pkg/config"
	"taskhub/pkg/database"
	"taskhub/pkg/jwtutil"
	"taskhub/pkg/logger"
	"taskhub/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting taskhub...", zap.String("environment", cfg.Server.Env))

	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// The signing key reaches the token layer exactly once, from config
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	auth := e.Group("/auth")
	auth.POST("/register-tenant", handler.RegisterTenant)
	auth.POST("/login", handler.Login)

	// Everything below requires a verified bearer token
	api := e.Group("", middleware.AuthMiddleware)

	api.GET("/auth/me", handler.Me)
	api.POST("/auth/logout", handler.Logout)

	tenants := api.Group("/tenants")
	tenants.GET("", handler.ListTenants)
	tenants.GET("/:id", handler.GetTenant)
	tenants.PUT("/:id", handler.UpdateTenant)
	tenants.POST("/:id/users", handler.CreateUser)
	tenants.GET("/:id/users", handler.ListUsers)

	users := api.Group("/users")
	users.PUT("/:id", handler.UpdateUser)
	users.DELETE("/:id", handler.DeleteUser)

	projects := api.Group("/projects")
	projects.POST("", handler.CreateProject)
	projects.GET("", handler.ListProjects)
	projects.GET("/:id", handler.GetProject)
	projects.PUT("/:id", handler.UpdateProject)
	projects.DELETE("/:id", handler.DeleteProject)
	projects.POST("/:id/tasks", handler.CreateTask)
	projects.GET("/:id/tasks", handler.ListTasks)

	tasks := api.Group("/tasks")
	tasks.PUT("/:id", handler.UpdateTask)
	tasks.PATCH("/:id/status", handler.UpdateTaskStatus)

	log.Info("Starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
