package handler

import (
	"net/http"

	"taskhub/internal/apperr"
	"taskhub/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Envelope is the uniform response shape for every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Pagination is the list-response metadata block.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int64 `json:"total_pages"`
	Total       int64 `json:"total"`
	Limit       int   `json:"limit"`
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

func respondMessage(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

// HTTPErrorHandler is the request boundary: every error a handler or
// middleware returns is classified here and mapped to the envelope. Internal
// causes are logged with the request ID and never serialized.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	if he, ok := err.(*echo.HTTPError); ok {
		// Routing-level errors (404 on unknown path, 405) from echo itself.
		status = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
	} else {
		status = apperr.KindOf(err).HTTPStatus()
		message = apperr.MessageOf(err)
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(c).Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err))
	}

	if writeErr := c.JSON(status, Envelope{Success: false, Message: message}); writeErr != nil {
		logger.FromContext(c).Error("failed to write error response", zap.Error(writeErr))
	}
}
