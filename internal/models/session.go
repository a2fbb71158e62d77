package models

import "time"

// Session is a persisted login. Only the SHA-256 hash of the opaque token is stored.
type Session struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"userId"`
	TokenHash      string     `db:"token_hash" json:"-"`
	IssuedAt       time.Time  `db:"issued_at" json:"issuedAt"`
	ExpiresAt      time.Time  `db:"expires_at" json:"expiresAt"`
	LastAccessedAt *time.Time `db:"last_accessed_at" json:"lastAccessedAt,omitempty"`
	IPAddress      string     `db:"ip_address" json:"-"`
	UserAgent      string     `db:"user_agent" json:"-"`
}

// Live reports whether the session is usable at now.
func (s *Session) Live(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// SessionWithUser is the joined session and owner record returned by validation.
type SessionWithUser struct {
	Session Session `db:"session" json:"session"`
	User    User    `db:"user" json:"user"`
	// Renewed is set when validation slid ExpiresAt forward.
	Renewed bool `db:"-" json:"-"`
}

// SessionView is the payload of GET /auth/session.
type SessionView struct {
	User            UserInfo  `json:"user"`
	ExpiresAt       time.Time `json:"expiresAt"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	Renewed         bool      `json:"-"`
}

// ClientMeta carries request provenance recorded with sessions and audit entries.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// UserContext is the request scoped authentication state handed to handlers and guards.
type UserContext struct {
	User            UserInfo
	SessionID       string
	IsAuthenticated bool
}

// ActiveSession is a row of the active session report.
type ActiveSession struct {
	SessionID      string     `db:"session_id"`
	Email          string     `db:"email"`
	Role           UserRole   `db:"role"`
	IssuedAt       time.Time  `db:"issued_at"`
	ExpiresAt      time.Time  `db:"expires_at"`
	LastAccessedAt *time.Time `db:"last_accessed_at"`
	IPAddress      string     `db:"ip_address"`
}
