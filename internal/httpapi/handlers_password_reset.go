package httpapi

import (
	"errors"
	"net/http"
	"time"

	"AuthPortalwebserver/internal/domain"
)

// Both request endpoints answer the same way whether or not the email
// belongs to an account.
var acceptedResponse = map[string]string{"status": "accepted"}

// writeAccepted holds the 202 until acceptedFloor has passed since start, so
// issuing a token and mailing it takes no visibly longer than an unknown
// email. Mail slower than the floor still shows through.
func (a *api) writeAccepted(w http.ResponseWriter, r *http.Request, start time.Time) {
	if wait := a.acceptedFloor - time.Since(start); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-t.C:
		case <-r.Context().Done():
		}
	}
	a.writeAccepted(w, r, start)
}

func (a *api) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	start := time.Now()
	err := a.resetSvc.RequestPasswordReset(r.Context(), req.Email)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		a.logger.Debug("password reset for unknown email")
	default:
		a.logger.Error("password reset request failed", "err", err)
		WriteDomainError(w, err)
		return
	}
	a.writeAccepted(w, r, start)
}

func (a *api) handleNewPassword(w http.ResponseWriter, r *http.Request) {
	var req newPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := a.resetSvc.CompletePasswordReset(r.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, domain.ErrStoreFailure) {
			a.logger.Error("password reset failed", "err", err)
		}
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}

func (a *api) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	email, err := a.verifySvc.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, domain.ErrStoreFailure) {
			a.logger.Error("verify email failed", "err", err)
		}
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"email": email, "verified": true})
}

func (a *api) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.Email = normalizeEmail(req.Email)
	if err := validateRequest(req); err != nil {
		WriteDomainError(w, err)
		return
	}

	start := time.Now()
	err := a.verifySvc.ResendVerification(r.Context(), req.Email)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		a.logger.Debug("verification resend for unknown email")
	default:
		a.logger.Error("verification resend failed", "err", err)
		WriteDomainError(w, err)
		return
	}
	a.writeAccepted(w, r, start)
}
