package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"AuthPortalwebserver/internal/domain"
	"AuthPortalwebserver/internal/email"
	"AuthPortalwebserver/internal/metrics"
)

// AccountMailer sends the three kinds of account email. Failures are
// reported to the caller; nothing is retried here.
type AccountMailer interface {
	SendPasswordReset(ctx context.Context, toEmail, token string) error
	SendVerification(ctx context.Context, toEmail, token string) error
	SendTwoFactorCode(ctx context.Context, toEmail, code string) error
}

type EmailService struct {
	Mailer    email.Mailer
	PublicURL *url.URL
	AppName   string
	Metrics   metrics.Recorder
}

func (s *EmailService) SendPasswordReset(ctx context.Context, toEmail, token string) error {
	link := s.link("/auth/new-password", token)
	body := strings.Join([]string{
		"You requested a password reset.",
		"",
		"Reset your password using this link (valid for one hour):",
		link,
		"",
		"If you did not request this, you can ignore this email.",
	}, "\n")
	return s.send(ctx, "password_reset", toEmail, "Reset your "+s.appName()+" password", body)
}

func (s *EmailService) SendVerification(ctx context.Context, toEmail, token string) error {
	link := s.link("/auth/verify-email", token)
	body := strings.Join([]string{
		"Welcome to " + s.appName() + ".",
		"",
		"Confirm your email address using this link (valid for 24 hours):",
		link,
	}, "\n")
	return s.send(ctx, "verification", toEmail, "Confirm your email", body)
}

func (s *EmailService) SendTwoFactorCode(ctx context.Context, toEmail, code string) error {
	body := strings.Join([]string{
		"Your sign-in code is: " + code,
		"",
		"The code expires in 5 minutes. If you did not try to sign in, change your password.",
	}, "\n")
	return s.send(ctx, "two_factor", toEmail, s.appName()+" sign-in code", body)
}

func (s *EmailService) send(ctx context.Context, kind, toEmail, subject, body string) error {
	if s.Mailer == nil {
		return fmt.Errorf("send %s email: %w", kind, domain.ErrDeliveryFailed)
	}
	err := s.Mailer.Send(ctx, email.Message{ToEmail: toEmail, Subject: subject, TextBody: body})
	metrics.OrNop(s.Metrics).RecordEmailSent(kind, err)
	if err != nil {
		return fmt.Errorf("send %s email: %w: %w", kind, domain.ErrDeliveryFailed, err)
	}
	return nil
}

func (s *EmailService) link(path, token string) string {
	base := &url.URL{Scheme: "http", Host: "localhost:8080"}
	if s.PublicURL != nil {
		base = s.PublicURL
	}
	u := base.JoinPath(path)
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String()
}

func (s *EmailService) appName() string {
	if s.AppName == "" {
		return "AuthPortal"
	}
	return s.AppName
}
