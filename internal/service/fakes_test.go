package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/wellbeing-api/internal/models"
	"github.com/noah-isme/wellbeing-api/internal/repository"
)

type memoryStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	sessions map[string]*models.Session
	audits   []*models.AuditLog

	findErr  error
	auditErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[string]*models.User{}, sessions: map[string]*models.Session{}}
}

func (m *memoryStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStore) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(user.Email) {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memoryStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.auditErr != nil {
		return m.auditErr
	}
	m.audits = append(m.audits, log)
	return nil
}

func (m *memoryStore) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.audits))
	for _, a := range m.audits {
		out = append(out, a.Action)
	}
	return out
}

// sessionStore adapts memoryStore to the session repository contract.
type sessionStore struct {
	*memoryStore
}

func (s sessionStore) Create(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	clone := *session
	s.sessions[session.TokenHash] = &clone
	return nil
}

func (s sessionStore) FindWithUser(ctx context.Context, tokenHash string) (*models.SessionWithUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[tokenHash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	user, ok := s.users[session.UserID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.SessionWithUser{Session: *session, User: *user}, nil
}

func (s sessionStore) Touch(ctx context.Context, tokenHash string, now, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[tokenHash]
	if !ok || !session.ExpiresAt.After(now) {
		return false, nil
	}
	session.ExpiresAt = expiresAt
	session.LastAccessedAt = &now
	return true, nil
}

func (s sessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[tokenHash]
	if !ok {
		return "", nil
	}
	delete(s.sessions, tokenHash)
	return session.UserID, nil
}

func (s sessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for hash, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

func (s sessionStore) ListActive(ctx context.Context, now time.Time) ([]models.ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.ActiveSession
	for _, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			continue
		}
		user := s.users[session.UserID]
		rows = append(rows, models.ActiveSession{
			SessionID: session.ID,
			Email:     user.Email,
			Role:      user.Role,
			IssuedAt:  session.IssuedAt,
			ExpiresAt: session.ExpiresAt,
			IPAddress: session.IPAddress,
		})
	}
	return rows, nil
}

func (s sessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (m *memoryStore) addUser(role models.UserRole) *models.User {
	user := &models.User{FirstName: "Test", LastName: "User", Email: uuid.NewString() + "@example.com", Role: role}
	_ = m.Create(context.Background(), user)
	return user
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
