package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/wellbeing-api/internal/middleware"
	"github.com/noah-isme/wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/wellbeing-api/pkg/errors"
	"github.com/noah-isme/wellbeing-api/pkg/response"
)

type authService interface {
	Signup(ctx context.Context, req models.SignupRequest, meta models.ClientMeta) (*models.AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest, meta models.ClientMeta) (*models.AuthResult, error)
	Logout(ctx context.Context, token string, meta models.ClientMeta) error
	CurrentSession(ctx context.Context, token string) (*models.SessionView, error)
}

type routeGuard interface {
	Decide(user *models.UserContext, path string) models.RouteDecision
}

type sessionCleanup interface {
	Run(ctx context.Context, trigger string) (int64, error)
}

// AuthHandler wires HTTP endpoints to the auth and session services.
type AuthHandler struct {
	auth    authService
	guard   routeGuard
	cleanup sessionCleanup
	cookies *middleware.SessionCookies
	logger  *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth authService, guard routeGuard, cleanup sessionCleanup, cookies *middleware.SessionCookies, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, guard: guard, cleanup: cleanup, cookies: cookies, logger: logger}
}

// Signup godoc
// @Summary Register a user
// @Description Create an account and open a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SignupRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signup payload"))
		return
	}

	res, err := h.auth.Signup(c.Request.Context(), req, clientMeta(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	h.setCookie(c, res.Token)
	response.Created(c, res)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req, clientMeta(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	h.setCookie(c, res.Token)
	response.JSON(c, http.StatusOK, res)
}

// Signout godoc
// @Summary Sign out
// @Description Invalidate the current session and clear its cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/signout [post]
func (h *AuthHandler) Signout(c *gin.Context) {
	token := middleware.RequestToken(c, h.cookies)
	h.clearCookie(c)
	if err := h.auth.Logout(c.Request.Context(), token, clientMeta(c)); err != nil {
		fail(c, h.logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"success": true})
}

// Session godoc
// @Summary Current session
// @Description Return the authenticated session or null
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	token := middleware.RequestToken(c, h.cookies)
	if token == "" {
		response.JSON(c, http.StatusOK, nil)
		return
	}

	view, err := h.auth.CurrentSession(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, appErrors.ErrSessionNotFound), errors.Is(err, appErrors.ErrSessionExpired):
			h.clearCookie(c)
		default:
			h.logger.Warn("session lookup failed", zap.Error(err))
		}
		response.JSON(c, http.StatusOK, nil)
		return
	}
	if view.Renewed {
		middleware.RefreshCookie(c, h.cookies, token, view.ExpiresAt, h.logger)
	}
	response.JSON(c, http.StatusOK, view)
}

// Route godoc
// @Summary Route decision
// @Description Decide whether the current user may visit a page path
// @Tags Authentication
// @Produce json
// @Param path query string true "Page path"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/route [get]
func (h *AuthHandler) Route(c *gin.Context) {
	path := strings.TrimSpace(c.Query("path"))
	if !strings.HasPrefix(path, "/") {
		response.Error(c, appErrors.WithDetails(appErrors.ErrValidation, "invalid route query", map[string]string{"path": "must be an absolute path"}))
		return
	}
	response.JSON(c, http.StatusOK, h.guard.Decide(middleware.CurrentUser(c), path))
}

// Cleanup godoc
// @Summary Sweep expired sessions
// @Description Delete every expired session
// @Tags Maintenance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/session/cleanup [post]
func (h *AuthHandler) Cleanup(c *gin.Context) {
	removed, err := h.cleanup.Run(c.Request.Context(), "http")
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": removed})
}

func (h *AuthHandler) setCookie(c *gin.Context, token string) {
	if h.cookies == nil {
		return
	}
	if err := h.cookies.Save(c.Writer, c.Request, token); err != nil {
		h.logger.Warn("failed to write session cookie", zap.Error(err))
	}
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	if h.cookies == nil {
		return
	}
	if err := h.cookies.Clear(c.Writer, c.Request); err != nil {
		h.logger.Warn("failed to clear session cookie", zap.Error(err))
	}
}
