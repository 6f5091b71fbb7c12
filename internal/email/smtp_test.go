package email

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("App <noreply@example.com>", "a@example.com", "Hello", "line1\nline2")
	if !strings.HasPrefix(msg, "From: App <noreply@example.com>\r\nTo: a@example.com\r\nSubject: Hello\r\n") {
		t.Fatalf("unexpected headers:\n%q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nline1\r\nline2") {
		t.Fatalf("expected CRLF body, got %q", msg)
	}
}

func TestSMTPMailer_RejectsHeaderInjection(t *testing.T) {
	m := &SMTPMailer{Settings: SMTPSettings{Host: "localhost", Port: 25, FromEmail: "noreply@example.com"}}
	err := m.Send(context.Background(), Message{ToEmail: "a@example.com\r\nBcc: x@example.com", Subject: "s"})
	if err == nil || !strings.Contains(err.Error(), "line break") {
		t.Fatalf("expected header injection to be rejected, got %v", err)
	}
}

func TestSMTPMailer_NotConfigured(t *testing.T) {
	m := &SMTPMailer{}
	if err := m.Send(context.Background(), Message{ToEmail: "a@example.com"}); err == nil {
		t.Fatalf("expected error without settings")
	}
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := &LogMailer{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	if err := m.Send(context.Background(), Message{ToEmail: "a@example.com", Subject: "Code", TextBody: "123456"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "a@example.com") || !strings.Contains(buf.String(), "123456") {
		t.Fatalf("expected message to be logged, got %q", buf.String())
	}
}
