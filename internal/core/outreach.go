package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/core/outreach"
)

var (
	ErrEmailNotConfigured = &Error{Kind: KindInvalid, Message: "No email provider configured. Please connect SMTP or SendGrid in Settings."}
	ErrSMSNotConfigured   = &Error{Kind: KindInvalid, Message: "SMS is not configured yet. Please set up your Twilio credentials in Settings to enable SMS campaigns."}
	ErrNoValidEmail       = &Error{Kind: KindInvalid, Message: "Lead does not have a valid email address"}
	ErrAINotConfigured    = &Error{Kind: KindUnavailable, Message: "AI personalization is not configured"}
)

type EmailRequest struct {
	SubjectTemplate    string   `json:"subject_template"`
	BodyTemplate       string   `json:"body_template"`
	OnlyScoredAbove    *int     `json:"only_scored_above"`
	StageFilter        string   `json:"stage_filter"`
	IncludeScoreReport bool     `json:"include_score_report"`
	LeadIDs            []string `json:"lead_ids"`
}

type SingleEmailRequest struct {
	LeadID             string `json:"lead_id"`
	SubjectTemplate    string `json:"subject_template"`
	BodyTemplate       string `json:"body_template"`
	IncludeScoreReport bool   `json:"include_score_report"`
}

type SMSRequest struct {
	MessageTemplate string   `json:"message_template"`
	OnlyScoredAbove *int     `json:"only_scored_above"`
	StageFilter     string   `json:"stage_filter"`
	LeadIDs         []string `json:"lead_ids"`
}

type PreviewList struct {
	Count    int                `json:"count"`
	Previews []outreach.Preview `json:"previews"`
}

type SingleSend struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	CreditsUsed int    `json:"credits_used"`
}

type PersonalizedEmail struct {
	LeadID      string `json:"lead_id"`
	LeadName    string `json:"lead_name"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	CreditsUsed int    `json:"credits_used"`
}

func (s *LeadBlitz) allLeads(ctx context.Context, userID string) ([]*model.Lead, error) {
	return s.store.ListLeads(ctx, model.LeadFilter{UserID: userID})
}

func (s *LeadBlitz) PreviewEmails(ctx context.Context, userID, subject, body string) (*PreviewList, error) {
	leads, err := s.allLeads(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := outreach.PreviewEmails(leads, subject, body)
	return &PreviewList{Count: len(p), Previews: p}, nil
}

func (s *LeadBlitz) PreviewSMS(ctx context.Context, userID, message string) (*PreviewList, error) {
	leads, err := s.allLeads(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := outreach.PreviewSMS(leads, message)
	return &PreviewList{Count: len(p), Previews: p}, nil
}

// campaign builds a sender set for one user. Secrets are decrypted here and
// never leave the request.
func (s *LeadBlitz) campaign(ctx context.Context, userID string) (*outreach.Campaign, error) {
	st, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	c := &outreach.Campaign{
		Store:   s.store,
		Credits: s.credits,
		Delay:   time.Duration(s.cfg.Outreach.Delay) * time.Millisecond,
		Logger:  s.logger,
	}
	email, err := s.emailSender(st)
	switch {
	case err == nil:
		c.Email = email
	case !errors.Is(err, outreach.ErrNotConfigured):
		return nil, err
	}
	sms, err := s.smsSender(st)
	switch {
	case err == nil:
		c.SMS = sms
	case !errors.Is(err, outreach.ErrNotConfigured):
		return nil, err
	}
	return c, nil
}

// emailSender prefers the user's connected provider and falls back to the
// server's SendGrid, then SMTP, configuration.
func (s *LeadBlitz) emailSender(st *model.UserSettings) (outreach.EmailSender, error) {
	switch st.EmailProvider {
	case model.ProviderSMTP:
		password, err := s.open(st.SMTPPassword)
		if err != nil {
			return nil, err
		}
		return outreach.NewSMTPSender(outreach.SMTPConfig{
			Host:     st.SMTPHost,
			Port:     st.SMTPPort,
			Username: st.SMTPUsername,
			Password: password,
			From:     st.SMTPFrom,
			UseTLS:   st.SMTPUseTLS,
		})
	case model.ProviderSendGrid:
		key, err := s.open(st.SendGridKey)
		if err != nil {
			return nil, err
		}
		return outreach.NewSendGridSender(key, st.SendGridFrom, s.cfg.SendGrid.BaseURL)
	}
	if s.cfg.SendGrid.APIKey != "" {
		return outreach.NewSendGridSender(s.cfg.SendGrid.APIKey, s.cfg.SendGrid.From, s.cfg.SendGrid.BaseURL)
	}
	if s.cfg.SMTP.Host != "" {
		return outreach.NewSMTPSender(outreach.SMTPConfig{
			Host:     s.cfg.SMTP.Host,
			Port:     s.cfg.SMTP.Port,
			Username: s.cfg.SMTP.Username,
			Password: s.cfg.SMTP.Password,
			From:     s.cfg.SMTP.From,
			UseTLS:   true,
		})
	}
	return nil, outreach.ErrNotConfigured
}

// smsSender uses the user's Twilio account, falling back to the server's.
func (s *LeadBlitz) smsSender(st *model.UserSettings) (outreach.SMSSender, error) {
	token, err := s.open(st.TwilioToken)
	if err != nil {
		return nil, err
	}
	cfg := outreach.TwilioConfig{AccountSID: st.TwilioSID, AuthToken: token, From: st.TwilioPhone, BaseURL: s.cfg.Twilio.BaseURL}
	if !cfg.Complete() {
		cfg = outreach.TwilioConfig{
			AccountSID: s.cfg.Twilio.AccountSID,
			AuthToken:  s.cfg.Twilio.AuthToken,
			From:       s.cfg.Twilio.From,
			BaseURL:    s.cfg.Twilio.BaseURL,
		}
	}
	return outreach.NewTwilioSender(cfg)
}

// SendEmails runs an email batch over all of the user's leads.
func (s *LeadBlitz) SendEmails(ctx context.Context, userID string, req EmailRequest) (*outreach.Outcome, error) {
	c, err := s.campaign(ctx, userID)
	if err != nil {
		return nil, err
	}
	leads, err := s.allLeads(ctx, userID)
	if err != nil {
		return nil, err
	}
	out, err := c.Run(ctx, outreach.Batch{
		UserID:             userID,
		Channel:            outreach.ChannelEmail,
		Subject:            req.SubjectTemplate,
		Body:               req.BodyTemplate,
		IncludeScoreReport: req.IncludeScoreReport,
		Signature:          s.signature(ctx, userID),
		Selection:          outreach.Selection{LeadIDs: req.LeadIDs, OnlyScoredAbove: req.OnlyScoredAbove, StageFilter: req.StageFilter},
	}, leads)
	return out, s.sendError(err, "emails")
}

// SendSMS runs an SMS batch. Twilio must be configured before anything is
// priced.
func (s *LeadBlitz) SendSMS(ctx context.Context, userID string, req SMSRequest) (*outreach.Outcome, error) {
	c, err := s.campaign(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.SMS == nil {
		return nil, ErrSMSNotConfigured
	}
	leads, err := s.allLeads(ctx, userID)
	if err != nil {
		return nil, err
	}
	out, err := c.Run(ctx, outreach.Batch{
		UserID:    userID,
		Channel:   outreach.ChannelSMS,
		Body:      req.MessageTemplate,
		Selection: outreach.Selection{LeadIDs: req.LeadIDs, OnlyScoredAbove: req.OnlyScoredAbove, StageFilter: req.StageFilter},
	}, leads)
	return out, s.sendError(err, "SMS messages")
}

// sendError rewords batch failures for the user. An interrupted batch is
// passed through with its partial outcome.
func (s *LeadBlitz) sendError(err error, what string) error {
	var ie *credits.InsufficientError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ie):
		return paymentf("Insufficient credits. Need %d credits to send %s, but only have %d. Please purchase more credits.", ie.Need, what, ie.Have)
	case errors.Is(err, outreach.ErrNotConfigured):
		if what == "emails" {
			return ErrEmailNotConfigured
		}
		return ErrSMSNotConfigured
	}
	return err
}

func (s *LeadBlitz) SendSingleEmail(ctx context.Context, userID string, req SingleEmailRequest) (*SingleSend, error) {
	l, err := s.store.GetLead(ctx, userID, req.LeadID)
	if err != nil {
		return nil, lookup(err, ErrLeadNotFound)
	}
	if !l.HasEmail() {
		return nil, ErrNoValidEmail
	}
	c, err := s.campaign(ctx, userID)
	if err != nil {
		return nil, err
	}
	used, err := c.SendOne(ctx, outreach.Batch{
		UserID:             userID,
		Channel:            outreach.ChannelEmail,
		Subject:            req.SubjectTemplate,
		Body:               req.BodyTemplate,
		IncludeScoreReport: req.IncludeScoreReport,
		Signature:          s.signature(ctx, userID),
	}, l)
	if err != nil {
		var pe *outreach.ProviderError
		if errors.As(err, &pe) {
			return nil, invalidf("%s", pe.Error())
		}
		return nil, s.sendError(err, "emails")
	}
	s.mirrorLeads(ctx, []*model.Lead{l})
	return &SingleSend{Success: true, Message: fmt.Sprintf("Email sent successfully to %s", l.Email), CreditsUsed: used}, nil
}

// GeneratePersonalized writes an AI email for one lead. The credit is
// taken before the model is called.
func (s *LeadBlitz) GeneratePersonalized(ctx context.Context, userID, leadID, pitch string) (*PersonalizedEmail, error) {
	l, err := s.store.GetLead(ctx, userID, leadID)
	if err != nil {
		return nil, lookup(err, ErrLeadNotFound)
	}
	if !s.personalizer.Enabled() {
		return nil, ErrAINotConfigured
	}
	ok, balance, err := s.credits.Has(ctx, userID, credits.EmailPersonalization, 1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, paymentf("Insufficient credits. Need %d credit for AI personalization, but only have %d. Please purchase more credits.",
			credits.Cost(credits.EmailPersonalization, 1), balance)
	}
	if _, err := s.credits.Deduct(ctx, userID, credits.EmailPersonalization, 1); err != nil {
		return nil, paymentf("Failed to deduct credits. Please try again.")
	}
	msg, err := s.personalizer.Personalize(ctx, l, pitch)
	if err != nil {
		s.logger.Warn("personalization failed", zap.String("lead_id", l.ID), zap.Error(err))
		return nil, invalidf("Unable to generate email: %s", err.Error())
	}
	return &PersonalizedEmail{
		LeadID:      l.ID,
		LeadName:    l.Name,
		Subject:     msg.Subject,
		Body:        msg.Body,
		CreditsUsed: credits.Cost(credits.EmailPersonalization, 1),
	}, nil
}
