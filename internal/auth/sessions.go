package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"AuthPortalwebserver/internal/domain"
)

const (
	SessionCookieName   = "authportal_session"
	TwoFactorCookieName = "authportal_2fa"

	DefaultSessionTTL   = 30 * time.Minute
	TwoFactorPendingTTL = 5 * time.Minute

	sessionIssuer = "authportal"
	audSession    = "session"
	audTwoFactor  = "two_factor_pending"
)

var ErrInvalidSessionToken = errors.New("invalid session token")

type sessionClaims struct {
	Email              string `json:"email"`
	Name               string `json:"name,omitempty"`
	Role               string `json:"role"`
	IsTwoFactorEnabled bool   `json:"isTwoFactorEnabled"`
	jwt.RegisteredClaims
}

type pendingClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionFromIdentity is the single place that decides what a session
// carries.
func SessionFromIdentity(id domain.Identity, now time.Time, ttl time.Duration) domain.Session {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now = now.UTC().Truncate(time.Second)
	return domain.Session{
		ID:                 uuid.NewString(),
		UserID:             id.ID,
		Email:              id.Email,
		Name:               id.Name,
		Role:               id.Role,
		IsTwoFactorEnabled: id.IsTwoFactorEnabled,
		IssuedAt:           now,
		ExpiresAt:          now.Add(ttl),
	}
}

type SessionCodec struct {
	secret []byte
	now    func() time.Time
}

func NewSessionCodec(secret []byte) SessionCodec {
	secretCopy := make([]byte, len(secret))
	copy(secretCopy, secret)
	return SessionCodec{secret: secretCopy, now: time.Now}
}

// WithClock returns a copy of the codec that validates expiry against now.
func (c SessionCodec) WithClock(now func() time.Time) SessionCodec {
	c.now = now
	return c
}

func (c SessionCodec) Encode(s domain.Session) (string, error) {
	if len(c.secret) == 0 {
		return "", errors.New("session secret not configured")
	}
	claims := sessionClaims{
		Email:              s.Email,
		Name:               s.Name,
		Role:               string(s.Role),
		IsTwoFactorEnabled: s.IsTwoFactorEnabled,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.UserID,
			Issuer:    sessionIssuer,
			Audience:  jwt.ClaimStrings{audSession},
			IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

func (c SessionCodec) Decode(raw string) (domain.Session, error) {
	if raw == "" || len(c.secret) == 0 {
		return domain.Session{}, ErrInvalidSessionToken
	}

	var claims sessionClaims
	if _, err := c.parse(raw, audSession, &claims); err != nil {
		return domain.Session{}, err
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok || claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return domain.Session{}, ErrInvalidSessionToken
	}

	s := domain.Session{
		ID:                 claims.ID,
		UserID:             claims.Subject,
		Email:              claims.Email,
		Name:               claims.Name,
		Role:               role,
		IsTwoFactorEnabled: claims.IsTwoFactorEnabled,
		ExpiresAt:          claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s, nil
}

// EncodeTwoFactorPending signs a short-lived marker proving that the holder
// passed the password step for email.
func (c SessionCodec) EncodeTwoFactorPending(email string, now time.Time) (string, error) {
	if len(c.secret) == 0 {
		return "", errors.New("session secret not configured")
	}
	claims := pendingClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Audience:  jwt.ClaimStrings{audTwoFactor},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TwoFactorPendingTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign two factor marker: %w", err)
	}
	return signed, nil
}

func (c SessionCodec) DecodeTwoFactorPending(raw string) (string, error) {
	if raw == "" || len(c.secret) == 0 {
		return "", ErrInvalidSessionToken
	}
	var claims pendingClaims
	if _, err := c.parse(raw, audTwoFactor, &claims); err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", ErrInvalidSessionToken
	}
	return claims.Email, nil
}

func (c SessionCodec) parse(raw, audience string, claims jwt.Claims) (*jwt.Token, error) {
	now := c.now
	if now == nil {
		now = time.Now
	}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidSessionToken
	}
	return tok, nil
}

func SetSessionCookie(w http.ResponseWriter, cookieValue string, ttl time.Duration, secure bool) {
	setCookie(w, SessionCookieName, cookieValue, ttl, secure)
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	clearCookie(w, SessionCookieName, secure)
}

func SetTwoFactorCookie(w http.ResponseWriter, cookieValue string, secure bool) {
	setCookie(w, TwoFactorCookieName, cookieValue, TwoFactorPendingTTL, secure)
}

func ClearTwoFactorCookie(w http.ResponseWriter, secure bool) {
	clearCookie(w, TwoFactorCookieName, secure)
}

// The state cookie only has to survive the round trip to the provider.
const oauthStateTTL = 10 * time.Minute

func SetOAuthStateCookie(w http.ResponseWriter, state string, secure bool) {
	setCookie(w, OAuthStateCookieName, state, oauthStateTTL, secure)
}

func ClearOAuthStateCookie(w http.ResponseWriter, secure bool) {
	clearCookie(w, OAuthStateCookieName, secure)
}

func setCookie(w http.ResponseWriter, name, value string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	})
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
