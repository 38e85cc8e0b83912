package tools

import (
	"encoding/json"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/timeros/timeros/internal/logger"
)

// EmailConfig configures the SMTP-backed email tools.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromAddress  string
}

// sendFunc matches smtp.SendMail and is swapped out in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// emailSender builds and sends RFC 5322 messages over SMTP.
type emailSender struct {
	cfg    EmailConfig
	send   sendFunc
	logger *logger.Logger
}

func newEmailSender(cfg EmailConfig, log *logger.Logger) *emailSender {
	return &emailSender{
		cfg:    cfg,
		send:   smtp.SendMail,
		logger: log,
	}
}

func (s *emailSender) deliver(to []string, subject, body string) error {
	if s.cfg.SMTPHost == "" || s.cfg.FromAddress == "" {
		return fmt.Errorf("email is not configured: missing SMTP host or from address")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients given")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.FromAddress)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if err := s.send(addr, auth, s.cfg.FromAddress, to, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("Email sent",
		logger.Field{Key: "recipients", Value: len(to)},
		logger.Field{Key: "subject", Value: subject})
	return nil
}

// parseRecipients accepts either a JSON array of addresses or a single
// comma-separated string, since models produce both.
func parseRecipients(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("recipients are required")
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanAddresses(list), nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return cleanAddresses(strings.Split(single, ",")), nil
	}

	return nil, fmt.Errorf("recipients must be a string or an array of strings")
}

func cleanAddresses(in []string) []string {
	var out []string
	for _, addr := range in {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// SendEmailTool implements the send_email tool.
type SendEmailTool struct {
	sender *emailSender
}

// NewSendEmailTool creates a new SendEmailTool instance.
func NewSendEmailTool(cfg EmailConfig, log *logger.Logger) *SendEmailTool {
	return &SendEmailTool{sender: newEmailSender(cfg, log)}
}

type sendEmailArgs struct {
	To      json.RawMessage `json:"to"`
	Subject string          `json:"subject"`
	Body    string          `json:"body"`
}

func (t *SendEmailTool) Name() string {
	return ToolSendEmail
}

func (t *SendEmailTool) Description() string {
	return "Send a plain-text email to one or more recipients."
}

func (t *SendEmailTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"to": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Recipient email addresses",
			},
			"subject": map[string]interface{}{
				"type":        "string",
				"description": "Email subject line",
			},
			"body": map[string]interface{}{
				"type":        "string",
				"description": "Plain-text email body",
			},
		},
		"required": []string{"to", "subject", "body"},
	}
}

func (t *SendEmailTool) Execute(args string) (string, error) {
	var parsed sendEmailArgs
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	to, err := parseRecipients(parsed.To)
	if err != nil {
		return "", err
	}
	if err := t.sender.deliver(to, parsed.Subject, parsed.Body); err != nil {
		return "", err
	}
	return fmt.Sprintf("Email sent to %s", strings.Join(to, ", ")), nil
}

// SendTaskResultEmailTool implements the send_task_result_email tool. It wraps
// the task outcome in a standard report layout so every run notification looks
// the same regardless of what the model wrote.
type SendTaskResultEmailTool struct {
	sender *emailSender
}

// NewSendTaskResultEmailTool creates a new SendTaskResultEmailTool instance.
func NewSendTaskResultEmailTool(cfg EmailConfig, log *logger.Logger) *SendTaskResultEmailTool {
	return &SendTaskResultEmailTool{sender: newEmailSender(cfg, log)}
}

type sendTaskResultEmailArgs struct {
	To       json.RawMessage `json:"to"`
	TaskName string          `json:"task_name"`
	Result   string          `json:"result"`
}

func (t *SendTaskResultEmailTool) Name() string {
	return ToolSendTaskResultEmail
}

func (t *SendTaskResultEmailTool) Description() string {
	return "Send the result of a completed task as a formatted report email."
}

func (t *SendTaskResultEmailTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"to": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Recipient email addresses",
			},
			"task_name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the task whose result is being sent",
			},
			"result": map[string]interface{}{
				"type":        "string",
				"description": "The task result text to include in the report",
			},
		},
		"required": []string{"to", "task_name", "result"},
	}
}

func (t *SendTaskResultEmailTool) Execute(args string) (string, error) {
	var parsed sendTaskResultEmailArgs
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	to, err := parseRecipients(parsed.To)
	if err != nil {
		return "", err
	}

	subject := fmt.Sprintf("Task report: %s", parsed.TaskName)
	var body strings.Builder
	fmt.Fprintf(&body, "Task: %s\n", parsed.TaskName)
	fmt.Fprintf(&body, "Completed: %s\n\n", time.Now().UTC().Format(time.RFC3339))
	body.WriteString(parsed.Result)

	if err := t.sender.deliver(to, subject, body.String()); err != nil {
		return "", err
	}
	return fmt.Sprintf("Task report sent to %s", strings.Join(to, ", ")), nil
}
