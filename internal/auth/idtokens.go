package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"

	"AuthPortalwebserver/internal/domain"
)

// ExternalIdentity is what an OAuth provider vouches for.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

var ErrProviderNotConfigured = errors.New("provider not configured")

// IDTokenVerifier checks ID tokens minted by Google and Apple for this
// application's client ids.
type IDTokenVerifier struct {
	GoogleClientID string
	AppleServiceID string

	// Overridable in tests.
	ValidateGoogle func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
	ValidateApple  func(audience, token string) (*AppleClaims, error)
}

type AppleClaims struct {
	Iss   string
	Sub   string
	Email string
}

func validateAppleIDToken(audience, token string) (*AppleClaims, error) {
	client := validator.NewClient()
	tok, err := client.VerifyIdToken(audience, token)
	if err != nil {
		return nil, err
	}
	return &AppleClaims{Iss: tok.Iss, Sub: tok.Sub, Email: tok.Email}, nil
}

func (v *IDTokenVerifier) VerifyGoogle(ctx context.Context, tokenString string) (*ExternalIdentity, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(v.GoogleClientID) == "" {
		return nil, fmt.Errorf("google: %w", ErrProviderNotConfigured)
	}

	validate := v.ValidateGoogle
	if validate == nil {
		validate = idtoken.Validate
	}
	payload, err := validate(ctx, tokenString, v.GoogleClientID)
	if err != nil {
		return nil, err
	}
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	return &ExternalIdentity{
		Provider:      domain.ProviderGoogle,
		Subject:       payload.Subject,
		Email:         normalizeEmail(claimString(payload.Claims, "email")),
		Name:          strings.TrimSpace(claimString(payload.Claims, "name")),
		EmailVerified: claimBool(payload.Claims, "email_verified"),
	}, nil
}

func (v *IDTokenVerifier) VerifyApple(ctx context.Context, tokenString string) (*ExternalIdentity, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(v.AppleServiceID) == "" {
		return nil, fmt.Errorf("apple: %w", ErrProviderNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	validate := v.ValidateApple
	if validate == nil {
		validate = validateAppleIDToken
	}
	tok, err := validate(v.AppleServiceID, tokenString)
	if err != nil {
		return nil, err
	}
	if tok.Iss != "https://appleid.apple.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", tok.Iss)
	}

	return &ExternalIdentity{
		Provider: domain.ProviderApple,
		Subject:  tok.Sub,
		Email:    normalizeEmail(tok.Email),
		// Apple only hands out addresses it has verified.
		EmailVerified: tok.Email != "",
	}, nil
}

func claimString(claims map[string]any, key string) string {
	if raw, ok := claims[key]; ok {
		if v, ok := raw.(string); ok {
			return v
		}
	}
	return ""
}

func claimBool(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func normalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
