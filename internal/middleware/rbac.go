package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wellbeing-api/internal/models"
	"github.com/noah-isme/wellbeing-api/internal/service"
	appErrors "github.com/noah-isme/wellbeing-api/pkg/errors"
	"github.com/noah-isme/wellbeing-api/pkg/response"
)

// RequireRoles enforces role-based access control for API routes.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAuthenticated {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[user.User.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

type routeDecider interface {
	Decide(user *models.UserContext, path string) models.RouteDecision
}

// RouteGuard redirects page requests the current user may not visit. Paths
// under a public prefix are served to everyone.
func RouteGuard(guard routeDecider, public ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, prefix := range public {
			if service.UnderPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}
		decision := guard.Decide(CurrentUser(c), c.Request.URL.Path)
		if !decision.Allow {
			c.Redirect(http.StatusFound, decision.RedirectTo)
			c.Abort()
			return
		}
		c.Next()
	}
}
