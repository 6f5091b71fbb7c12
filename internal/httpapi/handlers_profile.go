package httpapi

import (
	"net/http"
	"time"

	"AuthPortalwebserver/internal/domain"
)

func (a *api) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := CurrentSession(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{
		"session": toSessionResponse(*sess),
		"links":   dashboardLinks(sess),
	})
}

func dashboardLinks(sess *domain.Session) []string {
	links := []string{"/profile", "/user/posts", "/posts"}
	if sess.Role == domain.RoleAdmin {
		links = append(links, "/admin")
	}
	return links
}

func (a *api) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess := CurrentSession(r.Context())
	u, err := a.profileSvc.GetProfile(r.Context(), sess.UserID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	resp := toUserResponse(u.User)
	hasPassword := u.HasPassword()
	resp.HasPassword = &hasPassword
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, resp)
}

func (a *api) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	sess := *CurrentSession(r.Context())
	if err := a.profileSvc.UpdateName(r.Context(), sess.UserID, req.Name); err != nil {
		WriteDomainError(w, err)
		return
	}

	u, err := a.profileSvc.GetProfile(r.Context(), sess.UserID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	sess.Name = u.Name
	if err := a.refreshSession(w, sess); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toUserResponse(u.User))
}

func (a *api) handleProfilePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	sess := CurrentSession(r.Context())
	if !a.loginLimiter.Allow("password:"+sess.UserID, time.Now()) {
		WriteDomainError(w, domain.ErrRateLimited)
		return
	}
	if err := a.profileSvc.ChangePassword(r.Context(), sess.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleProfileTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req twoFactorToggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	sess := *CurrentSession(r.Context())
	if err := a.profileSvc.SetTwoFactor(r.Context(), sess.UserID, *req.Enabled); err != nil {
		WriteDomainError(w, err)
		return
	}
	sess.IsTwoFactorEnabled = *req.Enabled
	if err := a.refreshSession(w, sess); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"is_two_factor_enabled": *req.Enabled})
}

// handleProtected echoes the caller's identity and, for POST, the request
// body. It exists to exercise the gate from API clients.
func (a *api) handleProtected(w http.ResponseWriter, r *http.Request) {
	sess := CurrentSession(r.Context())
	resp := map[string]any{
		"message": "this is a protected route",
		"user":    toSessionResponse(*sess).User,
	}

	if r.Method == http.MethodPost {
		var body any
		if _, err := decodeJSONAllowEmpty(w, r, &body); err != nil {
			writeDecodeError(w, err)
			return
		}
		resp["received"] = body
	}
	WriteJSON(w, http.StatusOK, resp)
}
