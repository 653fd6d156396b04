package handler

import (
	"net/http"

	"taskhub/pkg/database"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports liveness and database connectivity.
func HealthCheck(c echo.Context) error {
	if err := database.Ping(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"status":   "error",
			"database": "disconnected",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":   "ok",
		"database": "connected",
	})
}
