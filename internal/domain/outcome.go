package domain

type AuthOutcomeKind string

const (
	OutcomeSuccess              AuthOutcomeKind = "success"
	OutcomeInvalidCredentials   AuthOutcomeKind = "invalid_credentials"
	OutcomeEmailNotVerified     AuthOutcomeKind = "email_not_verified"
	OutcomeTwoFactorRequired    AuthOutcomeKind = "two_factor_required"
	OutcomeInvalidTwoFactorCode AuthOutcomeKind = "invalid_two_factor_code"
	OutcomeTwoFactorCodeExpired AuthOutcomeKind = "two_factor_code_expired"
)

// AuthOutcome is the result of a credential authentication attempt. Identity
// is set only for OutcomeSuccess and Email only for OutcomeTwoFactorRequired.
type AuthOutcome struct {
	Kind     AuthOutcomeKind
	Identity *Identity
	Email    string
}

func (o AuthOutcome) Succeeded() bool { return o.Kind == OutcomeSuccess }

// Err returns the sentinel error matching a non-success outcome, or nil.
func (o AuthOutcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeEmailNotVerified:
		return ErrEmailNotVerified
	case OutcomeTwoFactorRequired:
		return ErrTwoFactorRequired
	case OutcomeInvalidTwoFactorCode:
		return ErrInvalidTwoFactorCode
	case OutcomeTwoFactorCodeExpired:
		return ErrTwoFactorCodeExpired
	default:
		return ErrInvalidCredentials
	}
}

func Succeeded(id Identity) AuthOutcome {
	return AuthOutcome{Kind: OutcomeSuccess, Identity: &id}
}

func Failed(kind AuthOutcomeKind) AuthOutcome {
	return AuthOutcome{Kind: kind}
}

func TwoFactorChallenge(email string) AuthOutcome {
	return AuthOutcome{Kind: OutcomeTwoFactorRequired, Email: email}
}
