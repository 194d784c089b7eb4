package middleware

import (
	"strings"

	"disclosure-service/internal/response"
	"disclosure-service/pkg/jwtutil"
	"disclosure-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const claimsKey = "claims"

// TokenValidator parses a signed session token
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwtutil.UserClaims, error)
}

// Auth validates the bearer token from the Authorization header and stores its claims on the context
func Auth(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return response.Fail(c, response.Unauthorized("UNAUTHORIZED", "未提供访问令牌"))
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
			if err != nil {
				log.Debug("Token rejected", zap.Error(err))
				return response.Fail(c, response.Forbidden("INVALID_TOKEN", "令牌无效或已过期"))
			}
			if claims.Type != jwtutil.TokenTypeAccess {
				log.Debug("Non-session token presented", zap.String("type", claims.Type))
				return response.Fail(c, response.Forbidden("INVALID_TOKEN", "令牌无效或已过期"))
			}

			c.Set(claimsKey, claims)
			log.Debug("Request authenticated",
				zap.String("user_id", claims.UserID),
				zap.String("enterprise_id", claims.EnterpriseID),
				zap.String("role", claims.Role))

			return next(c)
		}
	}
}

// ClaimsFromContext returns the claims stored by Auth
func ClaimsFromContext(c echo.Context) (*jwtutil.UserClaims, bool) {
	claims, ok := c.Get(claimsKey).(*jwtutil.UserClaims)
	return claims, ok && claims != nil
}
