package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/noah-isme/wellbeing-api/pkg/errors"
)

const (
	maintenanceIssuer   = "wellbeing-api"
	maintenanceAudience = "session-maintenance"
)

// MaintenanceTokens issues and verifies short lived operator bearer tokens.
type MaintenanceTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewMaintenanceTokens builds the issuer. An empty secret disables verification.
func NewMaintenanceTokens(secret string, ttl time.Duration) *MaintenanceTokens {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MaintenanceTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Enabled reports whether a secret is configured.
func (m *MaintenanceTokens) Enabled() bool {
	return m != nil && len(m.secret) > 0
}

// Issue signs a token for subject.
func (m *MaintenanceTokens) Issue(subject string) (string, time.Time, error) {
	if !m.Enabled() {
		return "", time.Time{}, errors.New("maintenance token secret not configured")
	}
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    maintenanceIssuer,
		Audience:  jwt.ClaimStrings{maintenanceAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks a token's signature, issuer, audience and expiry.
func (m *MaintenanceTokens) Verify(token string) (*jwt.RegisteredClaims, error) {
	if !m.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "maintenance token not configured")
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(maintenanceIssuer),
		jwt.WithAudience(maintenanceAudience),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid maintenance token")
	}
	return claims, nil
}
