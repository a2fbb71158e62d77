package service

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/wellbeing-api/internal/models"
)

// Well known landing paths.
const (
	SigninPath             = "/auth/signin"
	StudentDashboardPath   = "/student/dashboard"
	CounselorDashboardPath = "/counselor/dashboard"
)

var (
	studentOnlyPrefixes   = []string{"/student"}
	counselorOnlyPrefixes = []string{"/students", "/reports", "/intervention", "/counselor"}
)

// rolePolicy sends a role home when it requests a path under one of its denied prefixes.
type rolePolicy struct {
	Home   string   `yaml:"home"`
	Denied []string `yaml:"denied"`
}

// RoutePolicy is the role → policy dispatch table consulted by the guard.
type RoutePolicy struct {
	Signin string                         `yaml:"signin"`
	Roles  map[models.UserRole]rolePolicy `yaml:"roles"`
}

// DefaultRoutePolicy returns the built in routing table. ADMIN shares the counselor policy.
func DefaultRoutePolicy() RoutePolicy {
	counselor := rolePolicy{Home: CounselorDashboardPath, Denied: studentOnlyPrefixes}
	return RoutePolicy{
		Signin: SigninPath,
		Roles: map[models.UserRole]rolePolicy{
			models.RoleStudent:   {Home: StudentDashboardPath, Denied: counselorOnlyPrefixes},
			models.RoleCounselor: counselor,
			models.RoleAdmin:     counselor,
		},
	}
}

// LoadRoutePolicy reads a YAML override. Roles absent from the file keep their defaults.
func LoadRoutePolicy(path string) (RoutePolicy, error) {
	policy := DefaultRoutePolicy()
	if path == "" {
		return policy, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read route policy: %w", err)
	}
	var override RoutePolicy
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return policy, fmt.Errorf("parse route policy: %w", err)
	}
	if override.Signin != "" {
		policy.Signin = override.Signin
	}
	for role, rp := range override.Roles {
		if !role.Valid() {
			return policy, fmt.Errorf("route policy: unknown role %q", role)
		}
		if rp.Home == "" {
			return policy, fmt.Errorf("route policy: role %s has no home", role)
		}
		policy.Roles[role] = rp
	}
	return policy, nil
}

// RouteGuard decides whether a user may visit a page path.
type RouteGuard struct {
	policy RoutePolicy
}

// NewRouteGuard builds a guard over policy.
func NewRouteGuard(policy RoutePolicy) *RouteGuard {
	if policy.Signin == "" {
		policy.Signin = SigninPath
	}
	return &RouteGuard{policy: policy}
}

// Decide returns Allow or a redirect for user visiting path. It is pure.
func (g *RouteGuard) Decide(user *models.UserContext, path string) models.RouteDecision {
	if user == nil || !user.IsAuthenticated {
		return models.RedirectTo(g.policy.Signin)
	}
	rp, ok := g.policy.Roles[user.User.Role]
	if !ok {
		return models.RedirectTo(g.policy.Signin)
	}
	for _, prefix := range rp.Denied {
		if UnderPrefix(path, prefix) {
			return models.RedirectTo(rp.Home)
		}
	}
	return models.Allow()
}

// UnderPrefix matches whole path segments so /students is not under /student.
func UnderPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return false
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/' || rest[0] == '?' || rest[0] == '#'
}
