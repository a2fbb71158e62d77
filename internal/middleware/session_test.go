package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/wellbeing-api/pkg/errors"
	"github.com/noah-isme/wellbeing-api/pkg/config"
)

type stubValidator map[string]*models.SessionWithUser

func (s stubValidator) Validate(ctx context.Context, token string) (*models.SessionWithUser, error) {
	record, ok := s[token]
	if !ok {
		return nil, appErrors.ErrSessionNotFound
	}
	return record, nil
}

func testCookies() *SessionCookies {
	return NewSessionCookies(config.SessionConfig{
		TTL:            24 * time.Hour,
		CookieName:     "wellbeing_session",
		CookieSecret:   "test-cookie-secret",
		CookieSameSite: "lax",
	}, false)
}

func sessionFor(role models.UserRole) *models.SessionWithUser {
	return &models.SessionWithUser{
		Session: models.Session{ID: "s-1", UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)},
		User:    models.User{ID: "u-1", FirstName: "Jane", Role: role},
	}
}

func TestSessionCookieRoundTrip(t *testing.T) {
	cookies := testCookies()
	rec := httptest.NewRecorder()
	require.NoError(t, cookies.Save(rec, httptest.NewRequest(http.MethodPost, "/", nil), "opaque-token"))

	setCookie := rec.Result().Cookies()
	require.Len(t, setCookie, 1)
	assert.Equal(t, "wellbeing_session", setCookie[0].Name)
	assert.True(t, setCookie[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, setCookie[0].SameSite)
	assert.Equal(t, 86400, setCookie[0].MaxAge)
	assert.NotContains(t, setCookie[0].Value, "opaque-token")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(setCookie[0])
	assert.Equal(t, "opaque-token", cookies.Token(req))

	tampered := httptest.NewRequest(http.MethodGet, "/", nil)
	tampered.AddCookie(&http.Cookie{Name: "wellbeing_session", Value: setCookie[0].Value + "x"})
	assert.Empty(t, cookies.Token(tampered))
}

func TestSessionCookieClear(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, testCookies().Clear(rec, httptest.NewRequest(http.MethodPost, "/", nil)))

	setCookie := rec.Result().Cookies()
	require.Len(t, setCookie, 1)
	assert.True(t, setCookie[0].MaxAge < 0)
}

func newGuardedRouter(validator stubValidator, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Session(validator, testCookies(), nil))
	chain := append(handlers, func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, string(user.User.Role))
	})
	router.GET("/*path", chain...)
	return router
}

func TestSessionMiddlewareResolvesBearerAndCookie(t *testing.T) {
	router := newGuardedRouter(stubValidator{"tok": sessionFor(models.RoleCounselor)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer tok")
	router.ServeHTTP(rec, req)
	assert.Equal(t, "COUNSELOR", rec.Body.String())

	saved := httptest.NewRecorder()
	require.NoError(t, testCookies().Save(saved, req, "tok"))
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(saved.Result().Cookies()[0])
	router.ServeHTTP(rec, req)
	assert.Equal(t, "COUNSELOR", rec.Body.String())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer unknown")
	router.ServeHTTP(rec, req)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestSessionMiddlewareRefreshesRenewedCookie(t *testing.T) {
	renewed := sessionFor(models.RoleStudent)
	renewed.Session.ExpiresAt = time.Now().Add(2 * time.Hour)
	renewed.Renewed = true
	router := newGuardedRouter(stubValidator{"renewed": renewed, "steady": sessionFor(models.RoleStudent)})

	cookieRequest := func(token string) *http.Request {
		saved := httptest.NewRecorder()
		require.NoError(t, testCookies().Save(saved, httptest.NewRequest(http.MethodPost, "/", nil), token))
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.AddCookie(saved.Result().Cookies()[0])
		return req
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, cookieRequest("renewed"))
	refreshed := rec.Result().Cookies()
	require.Len(t, refreshed, 1)
	assert.InDelta(t, 7200, refreshed[0].MaxAge, 5)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(refreshed[0])
	assert.Equal(t, "renewed", testCookies().Token(req))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, cookieRequest("steady"))
	assert.Empty(t, rec.Result().Cookies())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer renewed")
	router.ServeHTTP(rec, req)
	assert.Equal(t, "STUDENT", rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
}

func TestRequireSessionAndRoles(t *testing.T) {
	validator := stubValidator{
		"student":   sessionFor(models.RoleStudent),
		"counselor": sessionFor(models.RoleCounselor),
	}
	router := newGuardedRouter(validator, RequireSession(), RequireRoles(models.RoleCounselor, models.RoleAdmin))

	cases := map[string]int{
		"":          http.StatusUnauthorized,
		"student":   http.StatusForbidden,
		"counselor": http.StatusOK,
	}
	for token, want := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		router.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "token %q", token)
	}
}

type fixedDecider map[string]models.RouteDecision

func (f fixedDecider) Decide(user *models.UserContext, path string) models.RouteDecision {
	if d, ok := f[path]; ok {
		return d
	}
	return models.Allow()
}

func TestRouteGuardRedirects(t *testing.T) {
	router := newGuardedRouter(stubValidator{}, RouteGuard(fixedDecider{
		"/students":    models.RedirectTo("/student/dashboard"),
		"/auth/signin": models.RedirectTo("/auth/signin"),
		"/authority":   models.RedirectTo("/auth/signin"),
	}, "/auth"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/student/dashboard", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resources", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/signin", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "public prefixes bypass the guard")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/authority", nil))
	assert.Equal(t, http.StatusFound, rec.Code, "public prefixes match whole segments")
	assert.Equal(t, "/auth/signin", rec.Header().Get("Location"))
}

type stubMaintenance struct {
	enabled bool
}

func (s stubMaintenance) Enabled() bool { return s.enabled }

func (s stubMaintenance) Verify(token string) (*jwt.RegisteredClaims, error) {
	if token != "good" {
		return nil, appErrors.ErrUnauthorized
	}
	return &jwt.RegisteredClaims{Subject: "ops"}, nil
}

func TestMaintenanceMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	serve := func(tokens maintenanceVerifier, header string) int {
		router := gin.New()
		router.POST("/cleanup", Maintenance(tokens), func(c *gin.Context) { c.Status(http.StatusOK) })
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/cleanup", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve(stubMaintenance{enabled: false}, ""))
	assert.Equal(t, http.StatusUnauthorized, serve(stubMaintenance{enabled: true}, ""))
	assert.Equal(t, http.StatusUnauthorized, serve(stubMaintenance{enabled: true}, "Bearer bad"))
	assert.Equal(t, http.StatusOK, serve(stubMaintenance{enabled: true}, "Bearer good"))
}
