package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"AuthPortalwebserver/internal/service"
)

func (a *api) handlePostsList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	posts, err := a.postSvc.ListPublished(r.Context(), limit, offset)
	if err != nil {
		a.logger.Error("list posts failed", "err", err)
		WriteDomainError(w, err)
		return
	}
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostWithAuthorResponse(p))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"posts": out})
}

func (a *api) handlePostGet(w http.ResponseWriter, r *http.Request) {
	p, err := a.postSvc.Get(r.Context(), CurrentSession(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toPostWithAuthorResponse(p))
}

func (a *api) handleMyPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.postSvc.ListMine(r.Context(), CurrentSession(r.Context()))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"posts": out})
}

func (a *api) handlePostCreate(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	p, err := a.postSvc.Create(r.Context(), CurrentSession(r.Context()), req.Title, req.Content)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toPostResponse(p))
}

func (a *api) handlePostUpdate(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	p, err := a.postSvc.Update(r.Context(), CurrentSession(r.Context()), chi.URLParam(r, "id"), req.Title, req.Content)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toPostResponse(p))
}

func (a *api) handlePostDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.postSvc.Delete(r.Context(), CurrentSession(r.Context()), chi.URLParam(r, "id")); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handlePostModerate(w http.ResponseWriter, r *http.Request) {
	var req moderateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	p, err := a.postSvc.Moderate(r.Context(), CurrentSession(r.Context()), chi.URLParam(r, "id"), service.ModerationAction(req.Action))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toPostResponse(p))
}

// pageParams reads limit and offset; bad values fall back to the service
// defaults.
func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return limit, offset
}
