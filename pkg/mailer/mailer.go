package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tarely-backend/pkg/config"
	"tarely-backend/pkg/logging"
)

// Mailer sends transactional email. Delivery is best-effort: callers log
// failures and move on rather than failing the request.
type Mailer interface {
	SendInvite(ctx context.Context, toEmail, inviterName, workspaceName string) error
	SendWelcome(ctx context.Context, toEmail, name string) error
}

// HTTPMailer posts messages to a Resend-style transactional email API.
type HTTPMailer struct {
	apiURL     string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewHTTPMailer(cfg *config.Config) *HTTPMailer {
	return &HTTPMailer{
		apiURL:     cfg.EmailAPIURL,
		apiKey:     cfg.EmailAPIKey,
		from:       cfg.EmailFrom,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (m *HTTPMailer) SendInvite(ctx context.Context, toEmail, inviterName, workspaceName string) error {
	subject := fmt.Sprintf("%s invited you to %s", inviterName, workspaceName)
	body := fmt.Sprintf("<p>%s invited you to join the workspace <strong>%s</strong>.</p><p>Sign in to accept or decline the invitation.</p>", inviterName, workspaceName)
	return m.send(ctx, toEmail, subject, body)
}

func (m *HTTPMailer) SendWelcome(ctx context.Context, toEmail, name string) error {
	subject := "Welcome to Tarely"
	body := fmt.Sprintf("<p>Hi %s, your account is ready.</p><p>Create your first workspace and start organizing your tasks.</p>", name)
	return m.send(ctx, toEmail, subject, body)
}

func (m *HTTPMailer) send(ctx context.Context, to, subject, html string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"from":    m.from,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email API returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// NoopMailer is used when no email provider is configured. It logs the
// message instead of sending it.
type NoopMailer struct{}

func (NoopMailer) SendInvite(ctx context.Context, toEmail, inviterName, workspaceName string) error {
	logging.Get().WithField("to", toEmail).WithField("workspace", workspaceName).Info("Email disabled, skipping invite email")
	return nil
}

func (NoopMailer) SendWelcome(ctx context.Context, toEmail, name string) error {
	logging.Get().WithField("to", toEmail).Info("Email disabled, skipping welcome email")
	return nil
}

// FromConfig picks the HTTP mailer when a provider is configured.
func FromConfig(cfg *config.Config) Mailer {
	if cfg.EmailAPIURL == "" || cfg.EmailAPIKey == "" {
		return NoopMailer{}
	}
	return NewHTTPMailer(cfg)
}
