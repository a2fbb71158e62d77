package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/wellbeing-api/internal/models"
	"github.com/noah-isme/wellbeing-api/internal/repository"
	"github.com/noah-isme/wellbeing-api/internal/validation"
	appErrors "github.com/noah-isme/wellbeing-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type sessionManager interface {
	Create(ctx context.Context, userID string, ttl time.Duration, meta models.ClientMeta) (string, *models.Session, error)
	Validate(ctx context.Context, token string) (*models.SessionWithUser, error)
	Invalidate(ctx context.Context, token string) (string, error)
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

const authResource = "auth"

// AuthService provides signup, login and logout use cases.
type AuthService struct {
	users     authUserRepository
	sessions  sessionManager
	hasher    passwordHasher
	audit     *auditTrail
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger

	// dummyDigest is compared against when the email is unknown so both
	// failure paths spend a bcrypt comparison.
	dummyDigest string
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, sessions sessionManager, hasher passwordHasher, audit auditRepository, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	svc := &AuthService{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		audit:     newAuditTrail(audit, logger),
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
	if digest, err := hasher.Hash("wellbeing-dummy-password"); err == nil {
		svc.dummyDigest = digest
	} else {
		logger.Warn("failed to prepare dummy digest", zap.Error(err))
	}
	return svc
}

// Signup registers a user and opens a session for them.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest, meta models.ClientMeta) (*models.AuthResult, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		s.metrics.ObserveAuthAttempt("signup", "invalid")
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid signup payload", validation.Details(err))
	}
	if req.Role == "" {
		req.Role = models.RoleStudent
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		s.metrics.ObserveAuthAttempt("signup", "exists")
		return nil, appErrors.ErrUserExists
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check email")
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: digest,
		Role:         req.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.ObserveAuthAttempt("signup", "exists")
			return nil, appErrors.ErrUserExists
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	result, err := s.issue(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, user.ID, models.AuditActionSignup, authResource, meta, map[string]interface{}{"role": user.Role})
	s.metrics.ObserveAuthAttempt("signup", "success")
	s.logger.Info("user signed up", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return result, nil
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords fail identically.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, meta models.ClientMeta) (*models.AuthResult, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		s.metrics.ObserveAuthAttempt("login", "invalid")
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid login payload", validation.Details(err))
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to fetch user")
		}
		s.hasher.Verify(req.Password, s.dummyDigest)
		return nil, s.loginFailed(ctx, "", req.Email, meta)
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, s.loginFailed(ctx, user.ID, req.Email, meta)
	}

	result, err := s.issue(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	s.audit.record(ctx, user.ID, models.AuditActionLogin, authResource, meta, nil)
	s.metrics.ObserveAuthAttempt("login", "success")
	return result, nil
}

// Logout invalidates the session behind token. It is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string, meta models.ClientMeta) error {
	userID, err := s.sessions.Invalidate(ctx, token)
	if err != nil {
		return err
	}
	if userID != "" {
		s.audit.record(ctx, userID, models.AuditActionLogout, authResource, meta, nil)
	}
	return nil
}

// CurrentSession returns the authenticated view of token.
func (s *AuthService) CurrentSession(ctx context.Context, token string) (*models.SessionView, error) {
	record, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &models.SessionView{
		User:            record.User.Info(),
		ExpiresAt:       record.Session.ExpiresAt,
		IsAuthenticated: true,
		Renewed:         record.Renewed,
	}, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, meta models.ClientMeta) (*models.AuthResult, error) {
	token, session, err := s.sessions.Create(ctx, user.ID, 0, meta)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{User: user.Info(), Token: token, ExpiresAt: session.ExpiresAt}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, email string, meta models.ClientMeta) error {
	s.audit.record(ctx, userID, models.AuditActionLoginFailed, authResource, meta, map[string]interface{}{"email": email})
	s.metrics.ObserveAuthAttempt("login", "failure")
	return appErrors.ErrInvalidCredentials
}
