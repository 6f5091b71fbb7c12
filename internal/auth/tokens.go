package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"AuthPortalwebserver/internal/domain"
)

const (
	PasswordResetTTL = time.Hour
	VerificationTTL  = 24 * time.Hour
	TwoFactorCodeTTL = 5 * time.Minute

	twoFactorDigits = 6
)

// TokenTTL returns how long a token of purpose stays usable.
func TokenTTL(p domain.TokenPurpose) time.Duration {
	switch p {
	case domain.TokenPasswordReset:
		return PasswordResetTTL
	case domain.TokenVerification:
		return VerificationTTL
	case domain.TokenTwoFactor:
		return TwoFactorCodeTTL
	default:
		return 0
	}
}

// NewTokenValue generates the secret for purpose: a random UUID for link
// tokens, a zero-padded 6 digit code for two-factor challenges.
func NewTokenValue(p domain.TokenPurpose) (string, error) {
	switch p {
	case domain.TokenPasswordReset, domain.TokenVerification:
		id, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		return id.String(), nil
	case domain.TokenTwoFactor:
		return newNumericCode(twoFactorDigits)
	default:
		return "", fmt.Errorf("unknown token purpose %q", p)
	}
}

func newNumericCode(digits int) (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
