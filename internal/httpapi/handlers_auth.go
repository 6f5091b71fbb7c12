package httpapi

import (
	"errors"
	"net/http"
	"time"

	"AuthPortalwebserver/internal/auth"
	"AuthPortalwebserver/internal/domain"
	"AuthPortalwebserver/internal/service"
)

func (a *api) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	now := time.Now()
	if !a.loginLimiter.Allow("ip:"+clientIP(r), now) || !a.loginLimiter.Allow("email:"+req.Email, now) {
		WriteDomainError(w, domain.ErrRateLimited)
		return
	}

	out, err := a.authSvc.Authenticate(r.Context(), req.Email, req.Password, "")
	if err != nil {
		a.logger.Error("sign in failed", "err", err)
		WriteDomainError(w, err)
		return
	}

	switch out.Kind {
	case domain.OutcomeSuccess:
		a.loginLimiter.Reset("email:" + req.Email)
		if err := a.startSession(w, *out.Identity); err != nil {
			a.logger.Error("start session failed", "err", err)
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"user": toIdentityResponse(*out.Identity)})
	case domain.OutcomeTwoFactorRequired:
		marker, err := a.codec.EncodeTwoFactorPending(out.Email, now)
		if err != nil {
			a.logger.Error("encode two factor marker failed", "err", err)
			WriteDomainError(w, err)
			return
		}
		auth.SetTwoFactorCookie(w, marker, a.cookieSecure)
		WriteJSON(w, http.StatusAccepted, map[string]any{
			"two_factor_required": true,
			"email":               out.Email,
		})
	default:
		writeOutcomeError(w, out)
	}
}

// handleTwoFactor completes a sign-in with the emailed code. The code is
// only accepted together with the marker cookie set by a password step for
// the same email.
func (a *api) handleTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req twoFactorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	c, err := r.Cookie(auth.TwoFactorCookieName)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "two_factor_session_missing", "sign in with your password first")
		return
	}
	pendingEmail, err := a.codec.DecodeTwoFactorPending(c.Value)
	if err != nil || pendingEmail != req.Email {
		auth.ClearTwoFactorCookie(w, a.cookieSecure)
		WriteError(w, http.StatusUnauthorized, "two_factor_session_missing", "sign in with your password first")
		return
	}

	if !a.loginLimiter.Allow("2fa:"+req.Email, time.Now()) {
		WriteDomainError(w, domain.ErrRateLimited)
		return
	}

	out, err := a.authSvc.Authenticate(r.Context(), req.Email, "", req.Code)
	if err != nil {
		a.logger.Error("two factor sign in failed", "err", err)
		WriteDomainError(w, err)
		return
	}
	if !out.Succeeded() {
		if out.Kind == domain.OutcomeTwoFactorCodeExpired {
			auth.ClearTwoFactorCookie(w, a.cookieSecure)
		}
		writeOutcomeError(w, out)
		return
	}

	a.loginLimiter.Reset("2fa:" + req.Email)
	a.loginLimiter.Reset("email:" + req.Email)
	auth.ClearTwoFactorCookie(w, a.cookieSecure)
	if err := a.startSession(w, *out.Identity); err != nil {
		a.logger.Error("start session failed", "err", err)
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"user": toIdentityResponse(*out.Identity)})
}

func (a *api) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	u, err := a.authSvc.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if u.ID != "" && errors.Is(err, domain.ErrDeliveryFailed) {
			a.logger.Warn("verification email not sent", "user_id", u.ID, "err", err)
			WriteJSON(w, http.StatusCreated, map[string]any{
				"user":              toUserResponse(u),
				"verification_sent": false,
			})
			return
		}
		if !errors.Is(err, domain.ErrEmailAlreadyInUse) && !errors.Is(err, domain.ErrValidation) {
			a.logger.Error("sign up failed", "err", err)
		}
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"user":              toUserResponse(u),
		"verification_sent": true,
	})
}

func (a *api) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if sess := CurrentSession(r.Context()); sess != nil {
		if err := a.authSvc.Logout(r.Context(), *sess); err != nil {
			a.logger.Error("sign out failed", "session_id", sess.ID, "err", err)
			WriteDomainError(w, err)
			return
		}
	}
	auth.ClearSessionCookie(w, a.cookieSecure)
	auth.ClearTwoFactorCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := CurrentSession(r.Context())
	if sess == nil {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, http.StatusOK, toSessionResponse(*sess))
}

func (a *api) startSession(w http.ResponseWriter, id domain.Identity) error {
	sess := a.authSvc.NewSession(id)
	token, err := a.codec.Encode(sess)
	if err != nil {
		return err
	}
	auth.SetSessionCookie(w, token, a.sessionTTL, a.cookieSecure)
	return nil
}

// refreshSession re-signs sess after a profile change so the cookie carries
// the new claims. The id and expiry stay the same.
func (a *api) refreshSession(w http.ResponseWriter, sess domain.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return domain.ErrUnauthorized
	}
	token, err := a.codec.Encode(sess)
	if err != nil {
		return err
	}
	auth.SetSessionCookie(w, token, ttl, a.cookieSecure)
	return nil
}
