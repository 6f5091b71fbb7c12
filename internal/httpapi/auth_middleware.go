package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/domain"
	"AuthPortalwebserver/internal/gate"
)

type authCtxKey int

const authSessionKey authCtxKey = iota

// loadSession resolves the session cookie, if any, and stores the session in
// the request context. A bad or revoked cookie is cleared and the request
// continues anonymously.
func (a *api) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(auth.SessionCookieName)
		if err != nil || c.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := a.codec.Decode(c.Value)
		if err == nil && a.authSvc != nil {
			err = a.authSvc.CheckSession(r.Context(), sess)
		}
		if err != nil {
			if errors.Is(err, domain.ErrStoreFailure) {
				a.logger.Error("check session failed", "err", err)
				WriteDomainError(w, err)
				return
			}
			auth.ClearSessionCookie(w, a.cookieSecure)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), authSessionKey, &sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// enforceGate applies the route gate to every request.
func (a *api) enforceGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := gate.Decide(r.URL.Path, CurrentSession(r.Context()))
		a.metrics.RecordRouteDecision(d.Class.String(), d.Allowed())
		if !d.Allowed() {
			http.Redirect(w, r, d.Redirect, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := gate.RequireSession(CurrentSession(r.Context())); err != nil {
			WriteDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// CurrentSession returns the caller's session or nil when anonymous.
func CurrentSession(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(authSessionKey).(*domain.Session)
	return s
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// normalizeEmail is applied to every email entering through HTTP; services
// compare emails exactly.
func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
