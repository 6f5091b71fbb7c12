package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/domain"
	"AuthPortalwebserver/internal/gate"
)

type idTokenVerifyFunc func(context.Context, string) (*auth.ExternalIdentity, error)

func (a *api) handleGoogle(w http.ResponseWriter, r *http.Request) {
	if a.idTokens == nil {
		writeProviderNotConfigured(w)
		return
	}
	a.handleIDTokenLogin(w, r, "google", a.idTokens.VerifyGoogle)
}

func (a *api) handleApple(w http.ResponseWriter, r *http.Request) {
	if a.idTokens == nil {
		writeProviderNotConfigured(w)
		return
	}
	a.handleIDTokenLogin(w, r, "apple", a.idTokens.VerifyApple)
}

func (a *api) handleIDTokenLogin(w http.ResponseWriter, r *http.Request, provider string, verify idTokenVerifyFunc) {
	var req idTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	ext, err := verify(r.Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, auth.ErrProviderNotConfigured) {
			writeProviderNotConfigured(w)
			return
		}
		a.logger.Info("id token rejected", "provider", provider, "err", err)
		WriteError(w, http.StatusUnauthorized, "invalid_id_token", "invalid id token")
		return
	}

	id, err := a.authSvc.LoginWithExternal(r.Context(), *ext)
	if err != nil {
		a.logExternalFailure(provider, err)
		WriteDomainError(w, err)
		return
	}
	if err := a.startSession(w, id); err != nil {
		a.logger.Error("start session failed", "err", err)
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"user": toIdentityResponse(id)})
}

func (a *api) handleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if a.github == nil {
		writeProviderNotConfigured(w)
		return
	}
	state, err := auth.NewOAuthState()
	if err != nil {
		a.logger.Error("oauth state failed", "err", err)
		WriteDomainError(w, err)
		return
	}
	auth.SetOAuthStateCookie(w, state, a.cookieSecure)
	http.Redirect(w, r, a.github.AuthCodeURL(state), http.StatusFound)
}

func (a *api) handleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if a.github == nil {
		writeProviderNotConfigured(w)
		return
	}

	q := r.URL.Query()
	c, err := r.Cookie(auth.OAuthStateCookieName)
	auth.ClearOAuthStateCookie(w, a.cookieSecure)
	if err != nil || c.Value == "" || subtle.ConstantTimeCompare([]byte(c.Value), []byte(q.Get("state"))) != 1 {
		WriteError(w, http.StatusBadRequest, "invalid_oauth_state", "sign-in request expired, try again")
		return
	}
	if e := q.Get("error"); e != "" {
		a.logger.Info("github sign in declined", "error", e)
		WriteError(w, http.StatusUnauthorized, "oauth_denied", "sign-in was cancelled")
		return
	}
	code := q.Get("code")
	if code == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"code": "is required"}))
		return
	}

	ext, err := a.github.Exchange(r.Context(), code)
	if err != nil {
		a.logger.Warn("github exchange failed", "err", err)
		WriteError(w, http.StatusBadGateway, "oauth_exchange_failed", "could not complete sign-in with GitHub")
		return
	}

	id, err := a.authSvc.LoginWithExternal(r.Context(), *ext)
	if err != nil {
		a.logExternalFailure("github", err)
		WriteDomainError(w, err)
		return
	}
	if err := a.startSession(w, id); err != nil {
		a.logger.Error("start session failed", "err", err)
		WriteDomainError(w, err)
		return
	}
	http.Redirect(w, r, gate.DashboardPath, http.StatusFound)
}

func (a *api) logExternalFailure(provider string, err error) {
	if errors.Is(err, domain.ErrStoreFailure) {
		a.logger.Error("external sign in failed", "provider", provider, "err", err)
		return
	}
	a.logger.Info("external sign in rejected", "provider", provider, "err", err)
}

func writeProviderNotConfigured(w http.ResponseWriter) {
	WriteError(w, http.StatusNotImplemented, "provider_not_configured", "sign-in provider not configured")
}
