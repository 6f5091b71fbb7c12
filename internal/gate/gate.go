package gate

import (
	"strings"

	"AuthPortalwebserver/internal/domain"
)

const (
	SignInPath    = "/auth/signin"
	DashboardPath = "/dashboard"
)

type RouteClass int

const (
	ClassPublic RouteClass = iota
	ClassAuthInfra
	ClassAuthOnly
	ClassAdmin
	ClassProtected
)

func (c RouteClass) String() string {
	switch c {
	case ClassAuthInfra:
		return "auth_infra"
	case ClassAuthOnly:
		return "auth_only"
	case ClassAdmin:
		return "admin"
	case ClassProtected:
		return "protected"
	default:
		return "public"
	}
}

var (
	authInfraPrefixes = []string{"/api/auth"}
	authOnlyPaths     = []string{"/auth/signin", "/auth/signup", "/auth/reset-password", "/auth/new-password"}
	adminPrefixes     = []string{"/admin", "/api/admin"}
	protectedPrefixes = []string{"/dashboard", "/profile", "/user", "/api/protected"}
)

// Classify assigns path to exactly one route class. Earlier classes win, so
// /admin is admin even though it would also count as protected.
func Classify(path string) RouteClass {
	switch {
	case matchesPrefix(path, authInfraPrefixes):
		return ClassAuthInfra
	case matchesExact(path, authOnlyPaths):
		return ClassAuthOnly
	case matchesPrefix(path, adminPrefixes):
		return ClassAdmin
	case matchesPrefix(path, protectedPrefixes):
		return ClassProtected
	default:
		return ClassPublic
	}
}

type Decision struct {
	Class    RouteClass
	Redirect string
}

func (d Decision) Allowed() bool { return d.Redirect == "" }

// Decide maps a request path and the caller's session (nil when anonymous)
// to allow or redirect.
func Decide(path string, sess *domain.Session) Decision {
	class := Classify(path)
	d := Decision{Class: class}

	switch class {
	case ClassAuthOnly:
		if sess != nil {
			d.Redirect = DashboardPath
		}
	case ClassAdmin:
		switch {
		case sess == nil:
			d.Redirect = SignInPath
		case sess.Role != domain.RoleAdmin:
			d.Redirect = DashboardPath
		}
	case ClassProtected:
		if sess == nil {
			d.Redirect = SignInPath
		}
	}
	return d
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func matchesExact(path string, paths []string) bool {
	for _, p := range paths {
		if path == p {
			return true
		}
	}
	return false
}
