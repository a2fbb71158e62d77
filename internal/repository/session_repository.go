package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/wellbeing-api/internal/models"
)

// SessionRepository persists login sessions keyed by token hash.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session row.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	const query = `INSERT INTO sessions (id, user_id, token_hash, issued_at, expires_at, last_accessed_at, ip_address, user_agent) VALUES (:id, :user_id, :token_hash, :issued_at, :expires_at, :last_accessed_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindWithUser returns the session matching tokenHash joined with its owner.
// Expired rows are returned as well; callers decide liveness.
func (r *SessionRepository) FindWithUser(ctx context.Context, tokenHash string) (*models.SessionWithUser, error) {
	const query = `SELECT
		s.id AS "session.id", s.user_id AS "session.user_id", s.token_hash AS "session.token_hash",
		s.issued_at AS "session.issued_at", s.expires_at AS "session.expires_at",
		s.last_accessed_at AS "session.last_accessed_at", s.ip_address AS "session.ip_address",
		s.user_agent AS "session.user_agent",
		u.id AS "user.id", u.first_name AS "user.first_name", u.last_name AS "user.last_name",
		u.email AS "user.email", u.password_hash AS "user.password_hash", u.role AS "user.role",
		u.created_at AS "user.created_at", u.updated_at AS "user.updated_at"
	FROM sessions s JOIN users u ON u.id = s.user_id
	WHERE s.token_hash = $1 LIMIT 1`

	var row models.SessionWithUser
	if err := r.db.GetContext(ctx, &row, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &row, nil
}

// Touch slides the expiry of a still-live session. It reports false when the
// session is gone or already expired at now, in which case nothing changes.
func (r *SessionRepository) Touch(ctx context.Context, tokenHash string, now, expiresAt time.Time) (bool, error) {
	const query = `UPDATE sessions SET expires_at = $3, last_accessed_at = $2 WHERE token_hash = $1 AND expires_at > $2`
	res, err := r.db.ExecContext(ctx, query, tokenHash, now, expiresAt)
	if err != nil {
		return false, fmt.Errorf("touch session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("touch session rows: %w", err)
	}
	return n > 0, nil
}

// DeleteByTokenHash removes a session and returns its owner. An unknown hash
// yields an empty user id and no error.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (string, error) {
	var userID string
	err := r.db.GetContext(ctx, &userID, `DELETE FROM sessions WHERE token_hash = $1 RETURNING user_id`, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("delete session: %w", err)
	}
	return userID, nil
}

// DeleteExpired removes every session with expires_at <= now in one statement.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions rows: %w", err)
	}
	return n, nil
}

// ListActive returns live sessions with their owner, most recently issued first.
func (r *SessionRepository) ListActive(ctx context.Context, now time.Time) ([]models.ActiveSession, error) {
	const query = `SELECT s.id AS session_id, u.email, u.role, s.issued_at, s.expires_at, s.last_accessed_at, s.ip_address
	FROM sessions s JOIN users u ON u.id = s.user_id
	WHERE s.expires_at > $1
	ORDER BY s.issued_at DESC`

	var rows []models.ActiveSession
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return rows, nil
}
