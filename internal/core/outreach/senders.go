package outreach

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jordan-wright/email"
)

// ErrNotConfigured is returned when no provider can deliver on a channel.
var ErrNotConfigured = errors.New("provider not configured")

// ProviderError is a delivery failure reported by a provider. The message
// is shown to the user on the failed lead.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// UseTLS upgrades with STARTTLS. Without it the connection is TLS from
	// the first byte (port 465 style).
	UseTLS bool
}

func (c SMTPConfig) Complete() bool {
	return c.Host != "" && c.Port > 0 && c.From != ""
}

type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if !cfg.Complete() {
		return nil, fmt.Errorf("SMTP: %w", ErrNotConfigured)
	}
	return &SMTPSender{cfg: cfg}, nil
}

// SendEmail sends body as both text and HTML. When the server does not
// offer AUTH the message is retried without credentials.
func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mail := email.NewEmail()
	mail.From = s.cfg.From
	mail.To = []string{to}
	mail.Subject = subject
	mail.Text = []byte(body + Footer)
	mail.HTML = []byte(HTMLBody(body))

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	err := s.send(mail, addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = s.send(mail, addr, nil)
	}
	if err != nil {
		return &ProviderError{Provider: "SMTP", Message: err.Error()}
	}
	return nil
}

func (s *SMTPSender) send(mail *email.Email, addr string, auth smtp.Auth) error {
	if s.cfg.UseTLS {
		return mail.Send(addr, auth)
	}
	return mail.SendWithTLS(addr, auth, &tls.Config{ServerName: s.cfg.Host})
}

const (
	SendGridBaseURL = "https://api.sendgrid.com/v3"
	TwilioBaseURL   = "https://api.twilio.com/2010-04-01"
)

type SendGridSender struct {
	http *resty.Client
	from string
}

func NewSendGridSender(apiKey, from, baseURL string) (*SendGridSender, error) {
	if apiKey == "" || from == "" {
		return nil, fmt.Errorf("SendGrid: %w", ErrNotConfigured)
	}
	if baseURL == "" {
		baseURL = SendGridBaseURL
	}
	c := resty.New().SetBaseURL(baseURL).SetAuthToken(apiKey).SetTimeout(15 * time.Second)
	return &SendGridSender{http: c, from: from}, nil
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridMail struct {
	Personalizations []struct {
		To []sendGridAddress `json:"to"`
	} `json:"personalizations"`
	From    sendGridAddress   `json:"from"`
	Subject string            `json:"subject"`
	Content []sendGridContent `json:"content"`
}

func (s *SendGridSender) SendEmail(ctx context.Context, to, subject, body string) error {
	msg := sendGridMail{
		From:    sendGridAddress{Email: s.from},
		Subject: subject,
		Content: []sendGridContent{
			{Type: "text/plain", Value: body + Footer},
			{Type: "text/html", Value: HTMLBody(body)},
		},
	}
	msg.Personalizations = make([]struct {
		To []sendGridAddress `json:"to"`
	}, 1)
	msg.Personalizations[0].To = []sendGridAddress{{Email: to}}

	resp, err := s.http.R().SetContext(ctx).SetBody(msg).Post("/mail/send")
	if err != nil {
		return &ProviderError{Provider: "SendGrid", Message: err.Error()}
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusAccepted {
		return &ProviderError{Provider: "SendGrid", Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), resp.String())}
	}
	return nil
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
}

func (c TwilioConfig) Complete() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

type TwilioSender struct {
	http *resty.Client
	cfg  TwilioConfig
}

func NewTwilioSender(cfg TwilioConfig) (*TwilioSender, error) {
	if !cfg.Complete() {
		return nil, fmt.Errorf("Twilio: %w", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = TwilioBaseURL
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetTimeout(15 * time.Second)
	return &TwilioSender{http: c, cfg: cfg}, nil
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *TwilioSender) SendSMS(ctx context.Context, to, message string) error {
	if strings.TrimSpace(to) == "" {
		return &ProviderError{Provider: "Twilio", Message: "recipient phone number is required"}
	}
	var apiErr twilioError
	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"To": to, "From": s.cfg.From, "Body": message}).
		SetError(&apiErr).
		Post("/Accounts/" + s.cfg.AccountSID + "/Messages.json")
	if err != nil {
		return &ProviderError{Provider: "Twilio", Message: err.Error()}
	}
	if resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode())
		}
		return &ProviderError{Provider: "Twilio", Message: msg}
	}
	return nil
}
