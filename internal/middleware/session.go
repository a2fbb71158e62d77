package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/wellbeing-api/pkg/errors"
	"github.com/noah-isme/wellbeing-api/pkg/logger"
	"github.com/noah-isme/wellbeing-api/pkg/response"
)

// ContextUserKey is the gin context key storing the *models.UserContext.
const ContextUserKey = "currentUser"

type sessionValidator interface {
	Validate(ctx context.Context, token string) (*models.SessionWithUser, error)
}

// RequestToken returns the session token from the Authorization bearer header
// or, failing that, the session cookie.
func RequestToken(c *gin.Context, cookies *SessionCookies) string {
	if token := bearerToken(c); token != "" {
		return token
	}
	if cookies == nil {
		return ""
	}
	return cookies.Token(c.Request)
}

// Session resolves the request token into a user context. Requests without a
// valid session continue anonymously.
func Session(sessions sessionValidator, cookies *SessionCookies, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := RequestToken(c, cookies)
		if token == "" {
			c.Next()
			return
		}

		record, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			if appErrors.FromError(err).Status >= 500 {
				log.Warn("session lookup failed", zap.Error(err))
			}
			c.Next()
			return
		}

		c.Set(ContextUserKey, &models.UserContext{
			User:            record.User.Info(),
			SessionID:       record.Session.ID,
			IsAuthenticated: true,
		})
		c.Set(logger.UserIDKey, record.User.ID)
		if record.Renewed {
			RefreshCookie(c, cookies, token, record.Session.ExpiresAt, log)
		}
		c.Next()
	}
}

// RefreshCookie re-issues the session cookie after its expiry slid forward.
// Bearer clients carry no cookie and are left alone.
func RefreshCookie(c *gin.Context, cookies *SessionCookies, token string, expiresAt time.Time, log *zap.Logger) {
	if cookies == nil || bearerToken(c) != "" {
		return
	}
	if err := cookies.Refresh(c.Writer, c.Request, token, expiresAt); err != nil && log != nil {
		log.Warn("failed to refresh session cookie", zap.Error(err))
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *gin.Context) *models.UserContext {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.UserContext)
	if !ok {
		return nil
	}
	return user
}

// RequireSession rejects requests without an authenticated session.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := CurrentUser(c); user == nil || !user.IsAuthenticated {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
