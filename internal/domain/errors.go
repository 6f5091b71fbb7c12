package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnauthorized              = errors.New("unauthorized")
	ErrForbidden                 = errors.New("forbidden")
	ErrNotFound                  = errors.New("not_found")
	ErrUserNotFound              = errors.New("user_not_found")
	ErrEmailAlreadyInUse         = errors.New("email_taken")
	ErrInvalidCredentials        = errors.New("invalid_credentials")
	ErrEmailNotVerified          = errors.New("email_not_verified")
	ErrTwoFactorRequired         = errors.New("two_factor_required")
	ErrInvalidTwoFactorCode      = errors.New("invalid_two_factor_code")
	ErrTwoFactorCodeExpired      = errors.New("two_factor_code_expired")
	ErrTokenNotFound             = errors.New("token_not_found")
	ErrTokenExpired              = errors.New("token_expired")
	ErrTokenCollision            = errors.New("token_collision")
	ErrSelfModificationForbidden = errors.New("self_modification_forbidden")
	ErrExternalAccountExists     = errors.New("external_account_exists")
	ErrPasswordNotSet            = errors.New("password_not_set")
	ErrDeliveryFailed            = errors.New("delivery_failed")
	ErrRateLimited               = errors.New("rate_limited")
	ErrStoreFailure              = errors.New("store_failure")
	ErrValidation                = errors.New("validation")
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

// StoreError carries the underlying cause of a store failure for logging
// while matching ErrStoreFailure with errors.Is.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
