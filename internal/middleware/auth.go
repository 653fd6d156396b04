package middleware

import (
	"errors"
	"strings"

	"taskhub/internal/apperr"
	"taskhub/internal/authz"
	"taskhub/pkg/jwtutil"
	"taskhub/pkg/logger"
	"taskhub/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const claimsKey = "claims"

// AuthMiddleware validates the bearer token from the Authorization header
// and stores the verified claims for downstream handlers. Verification is
// purely against the signature and expiry; handlers that need live account
// state re-check the stored rows themselves.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			prometheus.RecordAuthError("missing_token")
			return apperr.Authentication("missing authorization token")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			prometheus.RecordAuthError("invalid_auth_format")
			return apperr.Authentication("invalid authorization format, expected Bearer token")
		}

		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Warn("Token validation failed", zap.Error(err))
			if errors.Is(err, jwtutil.ErrExpiredToken) {
				prometheus.RecordAuthError("expired_token")
				return apperr.Authentication("token expired")
			}
			prometheus.RecordAuthError("invalid_token")
			return apperr.Authentication("invalid token")
		}

		c.Set(claimsKey, claims)
		return next(c)
	}
}

// ClaimsFromContext returns the verified claims stored by AuthMiddleware.
func ClaimsFromContext(c echo.Context) (*jwtutil.UserClaims, error) {
	claims, ok := c.Get(claimsKey).(*jwtutil.UserClaims)
	if !ok {
		return nil, apperr.Authentication("authentication required")
	}
	return claims, nil
}

// ActorFromContext builds the authorization actor for the current request.
func ActorFromContext(c echo.Context) (authz.Actor, error) {
	claims, err := ClaimsFromContext(c)
	if err != nil {
		return authz.Actor{}, err
	}
	return authz.Actor{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		Role:     claims.Role,
	}, nil
}
