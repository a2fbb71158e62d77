package models

import "time"

// SignupRequest holds the registration payload.
type SignupRequest struct {
	FirstName string   `json:"firstName" validate:"required,personname"`
	LastName  string   `json:"lastName" validate:"required,personname"`
	Email     string   `json:"email" validate:"required,email,max=255"`
	Password  string   `json:"password" validate:"required,maxbytes=72,strongpassword"`
	Role      UserRole `json:"role,omitempty" validate:"omitempty,oneof=STUDENT COUNSELOR ADMIN"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is the successful outcome of signup or login.
type AuthResult struct {
	User      UserInfo  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RouteDecision is the outcome of the role router guard.
type RouteDecision struct {
	Allow      bool   `json:"allow"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// Allow permits the requested path.
func Allow() RouteDecision {
	return RouteDecision{Allow: true}
}

// RedirectTo sends the caller to path instead.
func RedirectTo(path string) RouteDecision {
	return RouteDecision{RedirectTo: path}
}
