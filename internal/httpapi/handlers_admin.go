package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"AuthPortalwebserver/internal/domain"
	"AuthPortalwebserver/internal/gate"
)

// requireAdmin is the action-level check behind the gate's redirect.
func (a *api) requireAdmin(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	sess, err := gate.RequireAdmin(CurrentSession(r.Context()))
	if err != nil {
		WriteDomainError(w, err)
		return nil, false
	}
	return sess, true
}

func (a *api) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	st, err := a.adminSvc.Stats(r.Context())
	if err != nil {
		a.logger.Error("admin stats failed", "err", err)
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{
		"total_users":  st.TotalUsers,
		"total_posts":  st.TotalPosts,
		"total_admins": st.TotalAdmins,
	})
}

func (a *api) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}
	limit, offset := pageParams(r)
	users, err := a.adminSvc.ListUsers(r.Context(), limit, offset)
	if err != nil {
		a.logger.Error("admin list users failed", "err", err)
		WriteDomainError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp := toUserResponse(u.User)
		postCount := u.PostCount
		hasPassword := u.HasPassword
		resp.PostCount = &postCount
		resp.HasPassword = &hasPassword
		out = append(out, resp)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

// handleAdminUserRoleBody accepts the target user in the body for clients
// that PATCH the collection.
func (a *api) handleAdminUserRoleBody(w http.ResponseWriter, r *http.Request) {
	a.updateRole(w, r, "")
}

func (a *api) handleAdminUserRole(w http.ResponseWriter, r *http.Request) {
	a.updateRole(w, r, chi.URLParam(r, "id"))
}

func (a *api) updateRole(w http.ResponseWriter, r *http.Request, userID string) {
	sess, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}

	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}
	if userID == "" {
		userID = req.UserID
	}
	if userID == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"user_id": "is required"}))
		return
	}

	u, err := a.adminSvc.UpdateUserRole(r.Context(), sess.UserID, userID, domain.Role(req.Role))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	a.logger.Info("user role changed", "actor_id", sess.UserID, "user_id", u.ID, "role", u.Role)
	WriteJSON(w, http.StatusOK, toUserResponse(u))
}

func (a *api) handleAdminUserDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	userID := chi.URLParam(r, "id")
	if err := a.adminSvc.DeleteUser(r.Context(), sess.UserID, userID); err != nil {
		WriteDomainError(w, err)
		return
	}
	a.logger.Info("user deleted", "actor_id", sess.UserID, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
