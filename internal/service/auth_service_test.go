package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/wellbeing-api/internal/models"
	"github.com/noah-isme/wellbeing-api/internal/validation"
	appErrors "github.com/noah-isme/wellbeing-api/pkg/errors"
)

type authFixture struct {
	auth     *AuthService
	sessions *SessionService
	store    sessionStore
	clock    *fakeClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := sessionStore{newMemoryStore()}
	clock := newFakeClock()
	sessions := NewSessionService(store, nil, nil, zap.NewNop(), SessionConfig{}).WithClock(clock.Now)
	auth := NewAuthService(store.memoryStore, sessions, NewPasswordHasher(bcrypt.MinCost), store.memoryStore, validation.New(), NewMetricsService(), zap.NewNop())
	return &authFixture{auth: auth, sessions: sessions, store: store, clock: clock}
}

func janeSignup() models.SignupRequest {
	return models.SignupRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@school.edu",
		Password:  "Str0ng!pass",
	}
}

func TestSignupThenValidate(t *testing.T) {
	f := newAuthFixture(t)

	result, err := f.auth.Signup(context.Background(), janeSignup(), models.ClientMeta{IP: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, result.User.Role)
	assert.Equal(t, "jane@school.edu", result.User.Email)
	assert.NotEmpty(t, result.Token)

	record, err := f.sessions.Validate(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, record.User.ID)
	assert.Equal(t, models.RoleStudent, record.User.Role)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), record.Session.ExpiresAt)

	stored := f.store.users[result.User.ID]
	assert.NotEqual(t, "Str0ng!pass", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Str0ng!pass")))
	assert.Contains(t, f.store.auditActions(), models.AuditActionSignup)
}

func TestSignupCounselorRole(t *testing.T) {
	f := newAuthFixture(t)
	req := janeSignup()
	req.Role = models.RoleCounselor

	result, err := f.auth.Signup(context.Background(), req, models.ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCounselor, result.User.Role)
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.auth.Signup(context.Background(), janeSignup(), models.ClientMeta{})
	require.NoError(t, err)

	dup := janeSignup()
	dup.Email = "  JANE@school.edu "
	_, err = f.auth.Signup(context.Background(), dup, models.ClientMeta{})
	assert.ErrorIs(t, err, appErrors.ErrUserExists)
	assert.Len(t, f.store.users, 1)
}

func TestSignupValidation(t *testing.T) {
	f := newAuthFixture(t)
	req := models.SignupRequest{FirstName: "J", LastName: "Doe3", Email: "nope", Password: "weak", Role: "PRINCIPAL"}

	_, err := f.auth.Signup(context.Background(), req, models.ClientMeta{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	for _, field := range []string{"firstName", "lastName", "email", "password", "role"} {
		assert.Contains(t, appErr.Details, field)
	}
	assert.Empty(t, f.store.users)
}

func TestSignupRejectsPasswordOverBcryptLimit(t *testing.T) {
	f := newAuthFixture(t)
	req := janeSignup()
	req.Password = "Ab1!" + strings.Repeat("é", 40)

	_, err := f.auth.Signup(context.Background(), req, models.ClientMeta{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "must be at most 72 bytes", appErr.Details["password"])
	assert.Empty(t, f.store.users)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.auth.Signup(context.Background(), janeSignup(), models.ClientMeta{})
	require.NoError(t, err)

	_, wrongPassword := f.auth.Login(context.Background(), models.LoginRequest{Email: "jane@school.edu", Password: "Wr0ng!pass"}, models.ClientMeta{})
	_, unknownEmail := f.auth.Login(context.Background(), models.LoginRequest{Email: "ghost@school.edu", Password: "Wr0ng!pass"}, models.ClientMeta{})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, appErrors.FromError(wrongPassword), appErrors.FromError(unknownEmail))
	assert.ErrorIs(t, wrongPassword, appErrors.ErrInvalidCredentials)

	failed := 0
	for _, action := range f.store.auditActions() {
		if action == models.AuditActionLoginFailed {
			failed++
		}
	}
	assert.Equal(t, 2, failed)
}

func TestLoginRequiresFields(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.auth.Login(context.Background(), models.LoginRequest{Email: "jane@school.edu"}, models.ClientMeta{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestLoginIssuesFreshSession(t *testing.T) {
	f := newAuthFixture(t)
	signup, err := f.auth.Signup(context.Background(), janeSignup(), models.ClientMeta{})
	require.NoError(t, err)

	login, err := f.auth.Login(context.Background(), models.LoginRequest{Email: "Jane@School.edu", Password: "Str0ng!pass"}, models.ClientMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, signup.Token, login.Token)
	assert.Equal(t, signup.User.ID, login.User.ID)
	assert.Equal(t, 2, f.store.count())
}

func TestLoginStoreFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.store.findErr = errors.New("connection refused")

	_, err := f.auth.Login(context.Background(), models.LoginRequest{Email: "jane@school.edu", Password: "x"}, models.ClientMeta{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrInternal.Code))
}

func TestLogoutTwiceSucceeds(t *testing.T) {
	f := newAuthFixture(t)
	result, err := f.auth.Signup(context.Background(), janeSignup(), models.ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(context.Background(), result.Token, models.ClientMeta{}))
	require.NoError(t, f.auth.Logout(context.Background(), result.Token, models.ClientMeta{}))
	require.NoError(t, f.auth.Logout(context.Background(), "", models.ClientMeta{}))

	_, err = f.sessions.Validate(context.Background(), result.Token)
	assert.ErrorIs(t, err, appErrors.ErrSessionNotFound)

	logouts := 0
	for _, action := range f.store.auditActions() {
		if action == models.AuditActionLogout {
			logouts++
		}
	}
	assert.Equal(t, 1, logouts)
}

func TestAuditFailureDoesNotFailLogin(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.auth.Signup(context.Background(), janeSignup(), models.ClientMeta{})
	require.NoError(t, err)
	f.store.auditErr = errors.New("audit table locked")

	_, err = f.auth.Login(context.Background(), models.LoginRequest{Email: "jane@school.edu", Password: "Str0ng!pass"}, models.ClientMeta{})
	assert.NoError(t, err)
}

func TestCurrentSession(t *testing.T) {
	f := newAuthFixture(t)
	result, err := f.auth.Signup(context.Background(), janeSignup(), models.ClientMeta{})
	require.NoError(t, err)

	view, err := f.auth.CurrentSession(context.Background(), result.Token)
	require.NoError(t, err)
	assert.True(t, view.IsAuthenticated)
	assert.Equal(t, "Jane", view.User.FirstName)
	assert.Equal(t, result.ExpiresAt, view.ExpiresAt)

	f.clock.Advance(25 * time.Hour)
	_, err = f.auth.CurrentSession(context.Background(), result.Token)
	assert.ErrorIs(t, err, appErrors.ErrSessionExpired)
}

func TestJaneDoeScenario(t *testing.T) {
	f := newAuthFixture(t)
	guard := NewRouteGuard(DefaultRoutePolicy())

	result, err := f.auth.Signup(context.Background(), janeSignup(), models.ClientMeta{})
	require.NoError(t, err)

	record, err := f.sessions.Validate(context.Background(), result.Token)
	require.NoError(t, err)
	user := &models.UserContext{User: record.User.Info(), SessionID: record.Session.ID, IsAuthenticated: true}

	assert.Equal(t, models.RedirectTo(StudentDashboardPath), guard.Decide(user, "/students"))
	assert.Equal(t, models.Allow(), guard.Decide(user, "/student/dashboard"))

	require.NoError(t, f.auth.Logout(context.Background(), result.Token, models.ClientMeta{}))
	_, err = f.sessions.Validate(context.Background(), result.Token)
	assert.ErrorIs(t, err, appErrors.ErrSessionNotFound)
}
