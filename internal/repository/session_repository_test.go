package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wellbeing-api/internal/models"
)

func TestCreateSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.Session{UserID: "u1", TokenHash: "hash", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(context.Background(), session))
	assert.NotEmpty(t, session.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindWithUserScansNestedColumns(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"session.id", "session.user_id", "session.token_hash", "session.issued_at", "session.expires_at",
		"session.last_accessed_at", "session.ip_address", "session.user_agent",
		"user.id", "user.first_name", "user.last_name", "user.email", "user.password_hash", "user.role",
		"user.created_at", "user.updated_at",
	}).AddRow("s1", "u1", "hash", now, now.Add(time.Hour), nil, "127.0.0.1", "test",
		"u1", "Jane", "Doe", "jane@x.com", "digest", "COUNSELOR", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions s JOIN users u ON u.id = s.user_id")).
		WithArgs("hash").
		WillReturnRows(rows)

	row, err := repo.FindWithUser(context.Background(), "hash")
	require.NoError(t, err)
	assert.Equal(t, "s1", row.Session.ID)
	assert.Nil(t, row.Session.LastAccessedAt)
	assert.Equal(t, models.RoleCounselor, row.User.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindWithUserNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("FROM sessions s JOIN users u").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindWithUser(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTouchOnlyUpdatesLiveSessions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now().UTC()
	next := now.Add(24 * time.Hour)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET expires_at = $3, last_accessed_at = $2 WHERE token_hash = $1 AND expires_at > $2")).
		WithArgs("hash", now, next).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions").
		WithArgs("gone", now, next).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Touch(context.Background(), "hash", now, next)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Touch(context.Background(), "gone", now, next)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByTokenHashIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	query := regexp.QuoteMeta("DELETE FROM sessions WHERE token_hash = $1 RETURNING user_id")
	mock.ExpectQuery(query).WithArgs("hash").WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectQuery(query).WithArgs("hash").WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	userID, err := repo.DeleteByTokenHash(context.Background(), "hash")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	userID, err = repo.DeleteByTokenHash(context.Background(), "hash")
	require.NoError(t, err)
	assert.Empty(t, userID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredSingleStatement(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires_at <= $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"session_id", "email", "role", "issued_at", "expires_at", "last_accessed_at", "ip_address"}).
		AddRow("s1", "jane@x.com", "STUDENT", now, now.Add(time.Hour), now, "10.0.0.1")
	mock.ExpectQuery("WHERE s.expires_at > \\$1").WithArgs(now).WillReturnRows(rows)

	sessions, err := repo.ListActive(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "jane@x.com", sessions[0].Email)
	require.NotNil(t, sessions[0].LastAccessedAt)
}
