package gate

import "AuthPortalwebserver/internal/domain"

func RequireSession(sess *domain.Session) (*domain.Session, error) {
	if sess == nil {
		return nil, domain.ErrUnauthorized
	}
	return sess, nil
}

// RequireRole fails with ErrUnauthorized without a session and ErrForbidden
// when the session's role is not one of roles.
func RequireRole(sess *domain.Session, roles ...domain.Role) (*domain.Session, error) {
	if sess == nil {
		return nil, domain.ErrUnauthorized
	}
	if !HasRole(sess, roles...) {
		return nil, domain.ErrForbidden
	}
	return sess, nil
}

func RequireAdmin(sess *domain.Session) (*domain.Session, error) {
	return RequireRole(sess, domain.RoleAdmin)
}

func RequireModerator(sess *domain.Session) (*domain.Session, error) {
	return RequireRole(sess, domain.RoleModerator, domain.RoleAdmin)
}

func HasRole(sess *domain.Session, roles ...domain.Role) bool {
	if sess == nil {
		return false
	}
	for _, r := range roles {
		if sess.Role == r {
			return true
		}
	}
	return false
}

func IsAdmin(sess *domain.Session) bool { return HasRole(sess, domain.RoleAdmin) }

func IsModerator(sess *domain.Session) bool {
	return HasRole(sess, domain.RoleModerator, domain.RoleAdmin)
}
