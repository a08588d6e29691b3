package core

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/core/outreach"
)

var (
	ErrNoEmailProvider = &Error{Kind: KindInvalid, Message: "No email provider configured. Please set up an email provider first."}
	ErrTestTimeout     = &Error{Kind: KindTimeout, Message: "Test email timed out. Please check your provider settings."}
)

type TestEmailRequest struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type TestEmailResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Provider string `json:"provider"`
	ToEmail  string `json:"to_email"`
}

// SendTestEmail sends req through the provider the user connected. The
// server's fallback sender is not used and no credits are charged.
func (s *LeadBlitz) SendTestEmail(ctx context.Context, userID string, req TestEmailRequest) (*TestEmailResult, error) {
	to := strings.TrimSpace(req.ToEmail)
	if _, err := mail.ParseAddress(to); err != nil {
		return nil, invalidf("Invalid recipient email address")
	}
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st.EmailProvider != model.ProviderSMTP && st.EmailProvider != model.ProviderSendGrid {
		return nil, ErrNoEmailProvider
	}
	sender, err := s.emailSender(st)
	if err != nil {
		if errors.Is(err, outreach.ErrNotConfigured) {
			return nil, ErrNoEmailProvider
		}
		return nil, err
	}
	subject := req.Subject
	if strings.TrimSpace(subject) == "" {
		subject = "LeadBlitz test email"
	}
	body := req.Body
	if strings.TrimSpace(body) == "" {
		body = "This is a test email from LeadBlitz. Your email provider is working."
	}
	if err := sender.SendEmail(ctx, to, subject, body); err != nil {
		s.logger.Info("test email failed", zap.String("user_id", userID), zap.String("provider", st.EmailProvider), zap.Error(err))
		var pe *outreach.ProviderError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, ErrTestTimeout
		case errors.As(err, &pe):
			return nil, invalidf("Test email failed: %s", pe.Message)
		}
		return nil, invalidf("Test email failed: %s", err.Error())
	}
	return &TestEmailResult{
		Success:  true,
		Message:  fmt.Sprintf("Test email sent successfully via %s", st.EmailProvider),
		Provider: st.EmailProvider,
		ToEmail:  to,
	}, nil
}

// SendPasswordReset emails a reset link through the server's own
// SendGrid or SMTP account.
func (s *LeadBlitz) SendPasswordReset(ctx context.Context, to, link string) error {
	sender, err := s.emailSender(&model.UserSettings{EmailProvider: model.ProviderNone})
	if err != nil {
		return err
	}
	body := fmt.Sprintf("We received a request to reset your LeadBlitz password.\n\n"+
		"Open this link to choose a new one:\n%s\n\n"+
		"The link expires in one hour. If you did not ask for a reset, you can ignore this email.", link)
	return sender.SendEmail(ctx, to, "Reset Your Password - LeadBlitz", body)
}
