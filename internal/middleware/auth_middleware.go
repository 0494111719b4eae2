// internal/middleware/auth_middleware.go
package middleware

import (
	"strings"

	"fieldcrm-service/internal/pkg/jwt"
	"fieldcrm-service/internal/pkg/response"
	"fieldcrm-service/internal/service/access"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const callerKey = "caller"

// TokenVerifier validates bearer access tokens.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*jwt.Claims, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// Auth rejects requests without a valid access token and stores the caller
// for handlers.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, response.MsgUnauthorized)
			return
		}

		claims, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			m.logger.Debug("token rejected",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			response.Unauthorized(c, "Invalid or expired token.")
			return
		}

		c.Set(callerKey, access.Caller{
			UserID: claims.IdentityID,
			Email:  strings.TrimSpace(claims.Email),
			Roles:  claims.Roles,
		})
		c.Set("jti", claims.ID)

		c.Next()
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
