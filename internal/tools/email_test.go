package tools

import (
	"net/smtp"
	"strings"
	"testing"

	"github.com/timeros/timeros/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return log
}

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func captureSend(captured *capturedMail) sendFunc {
	return func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured.addr = addr
		captured.from = from
		captured.to = to
		captured.msg = string(msg)
		return nil
	}
}

func TestSendEmail(t *testing.T) {
	tool := NewSendEmailTool(EmailConfig{
		SMTPHost:    "mail.example.com",
		SMTPPort:    587,
		FromAddress: "timeros@example.com",
	}, testLogger(t))

	var captured capturedMail
	tool.sender.send = captureSend(&captured)

	result, err := tool.Execute(`{"to":["a@example.com","b@example.com"],"subject":"Hi","body":"Hello there"}`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if captured.addr != "mail.example.com:587" {
		t.Errorf("SMTP addr = %q", captured.addr)
	}
	if len(captured.to) != 2 {
		t.Errorf("Recipients = %v", captured.to)
	}
	if !strings.Contains(captured.msg, "Subject: Hi") {
		t.Errorf("Message missing subject:\n%s", captured.msg)
	}
	if !strings.Contains(captured.msg, "Hello there") {
		t.Errorf("Message missing body:\n%s", captured.msg)
	}
	if !strings.Contains(result, "a@example.com") {
		t.Errorf("Result = %q", result)
	}
}

func TestSendEmail_StringRecipients(t *testing.T) {
	tool := NewSendEmailTool(EmailConfig{
		SMTPHost:    "mail.example.com",
		SMTPPort:    587,
		FromAddress: "timeros@example.com",
	}, testLogger(t))

	var captured capturedMail
	tool.sender.send = captureSend(&captured)

	// Models sometimes pass a comma-separated string instead of an array.
	_, err := tool.Execute(`{"to":"a@example.com, b@example.com","subject":"Hi","body":"x"}`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(captured.to) != 2 {
		t.Errorf("Recipients = %v, want 2 addresses", captured.to)
	}
}

func TestSendEmail_NotConfigured(t *testing.T) {
	tool := NewSendEmailTool(EmailConfig{}, testLogger(t))

	_, err := tool.Execute(`{"to":["a@example.com"],"subject":"Hi","body":"x"}`)
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("Expected configuration error, got %v", err)
	}
}

func TestSendTaskResultEmail(t *testing.T) {
	tool := NewSendTaskResultEmailTool(EmailConfig{
		SMTPHost:    "mail.example.com",
		SMTPPort:    587,
		FromAddress: "timeros@example.com",
	}, testLogger(t))

	var captured capturedMail
	tool.sender.send = captureSend(&captured)

	_, err := tool.Execute(`{"to":["ops@example.com"],"task_name":"Daily digest","result":"All quiet."}`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(captured.msg, "Subject: Task report: Daily digest") {
		t.Errorf("Message missing report subject:\n%s", captured.msg)
	}
	if !strings.Contains(captured.msg, "All quiet.") {
		t.Errorf("Message missing result:\n%s", captured.msg)
	}
}
