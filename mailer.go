package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// sendVerificationEmail renders and sends the confirmation email. It must be
// called after the token row committed; failures surface to the caller and
// are recovered via resend.
func sendVerificationEmail(ctx context.Context, mailer Mailer, cfg Config, to, tokenValue string) error {
	base := strings.TrimRight(cfg.GetVerificationBaseURL(), "/")
	link := fmt.Sprintf("%s/api/auth/confirm-email/%s/", base, tokenValue)

	subject := "Verify your email"
	body := fmt.Sprintf(
		"Welcome! Please confirm your email address by visiting the link below.\n\n%s\n\nIf you did not create this account you can ignore this message.",
		link,
	)

	return mailer.Send(ctx, to, subject, body)
}

// HTTPMailer delivers mail through an HTTP mail API using the configured
// host credentials.
type HTTPMailer struct {
	endpoint  string
	username  string
	password  string
	fromEmail string
	client    *http.Client
}

type mailPayload struct {
	From    mailAddress   `json:"from"`
	To      []mailAddress `json:"to"`
	Subject string        `json:"subject"`
	Text    string        `json:"text"`
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func NewHTTPMailer(endpoint, username, password, fromEmail string) *HTTPMailer {
	return &HTTPMailer{
		endpoint:  endpoint,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		client:    http.DefaultClient,
	}
}

// WithClient overrides the HTTP client, mostly for tests.
func (m *HTTPMailer) WithClient(client *http.Client) *HTTPMailer {
	if client != nil {
		m.client = client
	}
	return m
}

func (m *HTTPMailer) Send(ctx context.Context, to, subject, body string) error {
	payload := mailPayload{
		From:    mailAddress{Email: m.fromEmail},
		To:      []mailAddress{{Email: to}},
		Subject: subject,
		Text:    body,
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}
	req.SetBasicAuth(m.username, m.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail API returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// LogMailer logs outbound mail instead of sending it. Useful in development
// where no mail credentials exist.
type LogMailer struct {
	logger Logger
}

func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("outbound email to=%s subject=%q\n%s", to, subject, body)
	return nil
}
