package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"

	"github.com/noah-isme/wellbeing-api/pkg/config"
)

const cookieTokenKey = "token"

// SessionCookies carries the opaque session token in a signed cookie.
type SessionCookies struct {
	store *sessions.CookieStore
	name  string
}

// NewSessionCookies builds the cookie adapter from session settings.
func NewSessionCookies(cfg config.SessionConfig, secure bool) *SessionCookies {
	name := cfg.CookieName
	if name == "" {
		name = "wellbeing_session"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	store := sessions.NewCookieStore([]byte(cfg.CookieSecret))
	store.MaxAge(int(ttl.Seconds()))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = sameSiteFromString(cfg.CookieSameSite)
	return &SessionCookies{store: store, name: name}
}

// Name returns the cookie name.
func (s *SessionCookies) Name() string {
	return s.name
}

// Token returns the token held by the request cookie, or "" when absent or tampered.
func (s *SessionCookies) Token(r *http.Request) string {
	if _, err := r.Cookie(s.name); err != nil {
		return ""
	}
	session, err := s.store.Get(r, s.name)
	if err != nil {
		return ""
	}
	token, _ := session.Values[cookieTokenKey].(string)
	return token
}

// Save writes token into the response cookie.
func (s *SessionCookies) Save(w http.ResponseWriter, r *http.Request, token string) error {
	session, _ := s.store.New(r, s.name)
	session.Values[cookieTokenKey] = token
	return session.Save(r, w)
}

// Refresh re-issues token with a lifetime matching expiresAt. A deadline
// already past clears the cookie.
func (s *SessionCookies) Refresh(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) error {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		return s.Clear(w, r)
	}
	session, _ := s.store.New(r, s.name)
	session.Values[cookieTokenKey] = token
	opts := *s.store.Options
	opts.MaxAge = maxAge
	session.Options = &opts
	return session.Save(r, w)
}

// Clear expires the cookie on the client.
func (s *SessionCookies) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.New(r, s.name)
	opts := *s.store.Options
	opts.MaxAge = -1
	session.Options = &opts
	return session.Save(r, w)
}

func sameSiteFromString(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
