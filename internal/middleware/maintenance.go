package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/noah-isme/wellbeing-api/pkg/errors"
	"github.com/noah-isme/wellbeing-api/pkg/logger"
	"github.com/noah-isme/wellbeing-api/pkg/response"
)

type maintenanceVerifier interface {
	Enabled() bool
	Verify(token string) (*jwt.RegisteredClaims, error)
}

// Maintenance protects operator endpoints with a maintenance bearer token.
// It is a pass-through when no maintenance secret is configured.
func Maintenance(tokens maintenanceVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil || !tokens.Enabled() {
			c.Next()
			return
		}
		token := bearerToken(c)
		if token == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, err := tokens.Verify(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(logger.UserIDKey, "maintenance:"+claims.Subject)
		c.Next()
	}
}
