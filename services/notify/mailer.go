package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"time"
)

// SendGridAPIBaseURL is the SendGrid v3 mail endpoint root.
const SendGridAPIBaseURL = "https://api.sendgrid.com"

// Mailer delivers one plain-text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SendGridMailer sends mail through the SendGrid v3 HTTP API.
type SendGridMailer struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
}

// NewSendGridMailer creates a mailer authenticated with the given API key.
func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{
		apiKey:     apiKey,
		from:       from,
		baseURL:    SendGridAPIBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// sendGridRequest is the minimal v3 mail/send payload.
type sendGridRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send posts one message to /v3/mail/send. Any non-2xx status is an error.
func (m *SendGridMailer) Send(ctx context.Context, to, subject, body string) error {
	payload := sendGridRequest{
		Personalizations: []sendGridPersonalization{
			{To: []sendGridAddress{{Email: to}}},
		},
		From:    sendGridAddress{Email: m.from},
		Subject: subject,
		Content: []sendGridContent{
			{Type: "text/plain", Value: body},
		},
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.baseURL+"/v3/mail/send", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mail API error for %s (status %d): %s",
			to, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// SMTPMailer sends mail through a plain SMTP relay. Used when no SendGrid
// key is configured, typically against a local relay in development.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPMailer creates an SMTP mailer. Username may be empty for relays
// that accept unauthenticated mail.
func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

// Send delivers one message via smtp.SendMail. The context deadline is not
// honored mid-transfer; net/smtp offers no hook for it.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
