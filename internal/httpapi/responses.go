package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"AuthPortalwebserver/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDomainError maps service errors to a status and a stable code.
// Anything unrecognised, including store failures, is a 500 that reveals
// nothing about the cause.
func WriteDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, errorEnvelope{Error: apiError{
			Code:    "validation_error",
			Message: "invalid request",
			Fields:  verr.Fields,
		}})
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", "invalid request")
	case errors.Is(err, domain.ErrEmailAlreadyInUse):
		WriteError(w, http.StatusConflict, "email_taken", "email already in use")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, domain.ErrEmailNotVerified):
		WriteError(w, http.StatusForbidden, "email_not_verified", "email address has not been verified")
	case errors.Is(err, domain.ErrTwoFactorRequired):
		WriteError(w, http.StatusUnauthorized, "two_factor_required", "a verification code was sent to your email")
	case errors.Is(err, domain.ErrInvalidTwoFactorCode):
		WriteError(w, http.StatusUnauthorized, "invalid_two_factor_code", "invalid verification code")
	case errors.Is(err, domain.ErrTwoFactorCodeExpired):
		WriteError(w, http.StatusUnauthorized, "two_factor_code_expired", "verification code has expired")
	case errors.Is(err, domain.ErrTokenNotFound):
		WriteError(w, http.StatusBadRequest, "token_not_found", "invalid or already used token")
	case errors.Is(err, domain.ErrTokenExpired):
		WriteError(w, http.StatusGone, "token_expired", "token has expired")
	case errors.Is(err, domain.ErrUserNotFound):
		WriteError(w, http.StatusNotFound, "user_not_found", "user not found")
	case errors.Is(err, domain.ErrSelfModificationForbidden):
		WriteError(w, http.StatusForbidden, "self_modification_forbidden", "you cannot change your own account here")
	case errors.Is(err, domain.ErrExternalAccountExists):
		WriteError(w, http.StatusConflict, "external_account_exists", "an account with this email already exists")
	case errors.Is(err, domain.ErrPasswordNotSet):
		WriteError(w, http.StatusBadRequest, "password_not_set", "this account has no password")
	case errors.Is(err, domain.ErrDeliveryFailed):
		WriteError(w, http.StatusBadGateway, "delivery_failed", "could not send email, try again later")
	case errors.Is(err, domain.ErrRateLimited):
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// writeOutcomeError renders a failed sign-in outcome.
func writeOutcomeError(w http.ResponseWriter, out domain.AuthOutcome) {
	WriteDomainError(w, out.Err())
}

type userResponse struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Role               string     `json:"role"`
	EmailVerified      *time.Time `json:"email_verified"`
	IsTwoFactorEnabled bool       `json:"is_two_factor_enabled"`
	HasPassword        *bool      `json:"has_password,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	PostCount          *int       `json:"post_count,omitempty"`
}

func toUserResponse(u domain.User) userResponse {
	resp := userResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Role:               string(u.Role),
		EmailVerified:      u.EmailVerified,
		IsTwoFactorEnabled: u.IsTwoFactorEnabled,
		LastLoginAt:        u.LastLoginAt,
	}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

type identityResponse struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Role               string     `json:"role"`
	EmailVerified      *time.Time `json:"email_verified"`
	IsTwoFactorEnabled bool       `json:"is_two_factor_enabled"`
}

func toIdentityResponse(id domain.Identity) identityResponse {
	return identityResponse{
		ID:                 id.ID,
		Email:              id.Email,
		Name:               id.Name,
		Role:               string(id.Role),
		EmailVerified:      id.EmailVerified,
		IsTwoFactorEnabled: id.IsTwoFactorEnabled,
	}
}

type sessionResponse struct {
	User      sessionUser `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type sessionUser struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	Role               string `json:"role"`
	IsTwoFactorEnabled bool   `json:"is_two_factor_enabled"`
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		User: sessionUser{
			ID:                 s.UserID,
			Email:              s.Email,
			Name:               s.Name,
			Role:               string(s.Role),
			IsTwoFactorEnabled: s.IsTwoFactorEnabled,
		},
		ExpiresAt: s.ExpiresAt,
	}
}

type postResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	AuthorID    string    `json:"author_id"`
	AuthorName  string    `json:"author_name,omitempty"`
	AuthorEmail string    `json:"author_email,omitempty"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toPostResponse(p domain.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		AuthorID:  p.AuthorID,
		Published: p.Published,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toPostWithAuthorResponse(p domain.PostWithAuthor) postResponse {
	resp := toPostResponse(p.Post)
	resp.AuthorName = p.AuthorName
	resp.AuthorEmail = p.AuthorEmail
	return resp
}
