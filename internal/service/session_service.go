package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/wellbeing-api/internal/models"
	appErrors "github.com/noah-isme/wellbeing-api/pkg/errors"
)

// DefaultSessionTTL is the lifetime of a freshly issued session.
const DefaultSessionTTL = 24 * time.Hour

const sessionCachePrefix = "session:"

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindWithUser(ctx context.Context, tokenHash string) (*models.SessionWithUser, error)
	Touch(ctx context.Context, tokenHash string, now, expiresAt time.Time) (bool, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) (string, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	ListActive(ctx context.Context, now time.Time) ([]models.ActiveSession, error)
}

// SessionConfig tunes session lifetime.
type SessionConfig struct {
	TTL           time.Duration
	SlidingExpiry bool
}

// SessionService issues, validates and revokes opaque session tokens.
type SessionService struct {
	repo    sessionRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	config  SessionConfig
	now     func() time.Time
}

// NewSessionService constructs a SessionService. cache and metrics may be nil.
func NewSessionService(repo sessionRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, config SessionConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TTL <= 0 {
		config.TTL = DefaultSessionTTL
	}
	return &SessionService{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		config:  config,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	if now != nil {
		s.now = now
	}
	return s
}

// TTL returns the default session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.config.TTL
}

// Create issues a new session for userID. A zero ttl uses the configured default;
// a negative ttl is honoured and yields an already expired session.
func (s *SessionService) Create(ctx context.Context, userID string, ttl time.Duration, meta models.ClientMeta) (string, *models.Session, error) {
	if ttl == 0 {
		ttl = s.config.TTL
	}
	token, err := newSessionToken()
	if err != nil {
		return "", nil, appErrors.Internal(err, "failed to generate session token")
	}

	now := s.now()
	session := &models.Session{
		UserID:    userID,
		TokenHash: hashSessionToken(token),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return "", nil, appErrors.Internal(err, "failed to create session")
	}
	return token, session, nil
}

// Validate resolves token to its live session and owner.
func (s *SessionService) Validate(ctx context.Context, token string) (*models.SessionWithUser, error) {
	record, err := s.validate(ctx, token)
	s.metrics.ObserveSessionValidation(validationResult(err))
	return record, err
}

func (s *SessionService) validate(ctx context.Context, token string) (*models.SessionWithUser, error) {
	if token == "" {
		return nil, appErrors.ErrSessionNotFound
	}
	hash := hashSessionToken(token)
	now := s.now()

	record, cached := s.cached(ctx, hash)
	if !cached {
		found, err := s.repo.FindWithUser(ctx, hash)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrSessionNotFound
			}
			return nil, appErrors.Internal(err, "failed to load session")
		}
		record = found
	}

	if !record.Session.Live(now) {
		if cached {
			s.cache.Invalidate(ctx, sessionCachePrefix+hash)
		}
		return nil, appErrors.ErrSessionExpired
	}

	if s.config.SlidingExpiry {
		next := now.Add(s.config.TTL)
		if next.After(record.Session.ExpiresAt) {
			ok, err := s.repo.Touch(ctx, hash, now, next)
			if err != nil {
				return nil, appErrors.Internal(err, "failed to renew session")
			}
			if !ok {
				s.cache.Invalidate(ctx, sessionCachePrefix+hash)
				return nil, appErrors.ErrSessionExpired
			}
			record.Session.ExpiresAt = next
			record.Session.LastAccessedAt = &now
			record.Renewed = true
			cached = false
		}
	}

	if !cached {
		s.store(ctx, hash, record, now)
	}
	return record, nil
}

// Invalidate deletes the session identified by token and returns its owner id.
// Unknown or empty tokens are not an error.
func (s *SessionService) Invalidate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	hash := hashSessionToken(token)
	userID, err := s.repo.DeleteByTokenHash(ctx, hash)
	if err != nil {
		return "", appErrors.Internal(err, "failed to delete session")
	}
	s.cache.Invalidate(ctx, sessionCachePrefix+hash)
	return userID, nil
}

// Sweep removes every expired session and returns how many were deleted.
func (s *SessionService) Sweep(ctx context.Context) (int64, error) {
	start := time.Now()
	removed, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, appErrors.Internal(err, "failed to sweep sessions")
	}
	s.metrics.ObserveSweep(removed, time.Since(start))
	s.logger.Info("expired sessions swept", zap.Int64("removed", removed))
	return removed, nil
}

// ListActive returns the sessions still live now.
func (s *SessionService) ListActive(ctx context.Context) ([]models.ActiveSession, error) {
	rows, err := s.repo.ListActive(ctx, s.now())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list sessions")
	}
	return rows, nil
}

func (s *SessionService) cached(ctx context.Context, hash string) (*models.SessionWithUser, bool) {
	if !s.cache.Enabled() {
		return nil, false
	}
	var record models.SessionWithUser
	if !s.cache.Get(ctx, sessionCachePrefix+hash, &record) {
		return nil, false
	}
	return &record, true
}

func (s *SessionService) store(ctx context.Context, hash string, record *models.SessionWithUser, now time.Time) {
	if !s.cache.Enabled() {
		return
	}
	ttl := record.Session.ExpiresAt.Sub(now)
	if limit := s.cache.DefaultTTL(); limit < ttl {
		ttl = limit
	}
	if ttl <= 0 {
		return
	}
	s.cache.Set(ctx, sessionCachePrefix+hash, record, ttl)
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, appErrors.ErrSessionNotFound):
		return "not_found"
	case errors.Is(err, appErrors.ErrSessionExpired):
		return "expired"
	default:
		return "error"
	}
}
